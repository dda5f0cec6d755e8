// Package ipfs is a minimal client for an IPFS node's HTTP RPC API. The relay
// stores stage metadata documents there and records only the returned hash
// on-chain; the chain side never dereferences a hash.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one IPFS node.
type Client struct {
	apiURL     string
	gatewayURL string
	httpClient *http.Client
}

// AddResult describes a stored object.
type AddResult struct {
	Hash string `json:"hash"`
	Size string `json:"size"`
	URL  string `json:"url"`
}

// New returns a client for the node at apiURL. gatewayURL is the public read
// gateway used to build the shareable URL in AddResult.
func New(apiURL, gatewayURL string) *Client {
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AddJSON marshals v and stores it as a pinned JSON document.
func (c *Client) AddJSON(ctx context.Context, v interface{}) (*AddResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return c.AddFile(ctx, "metadata.json", bytes.NewReader(data))
}

// AddFile stores the contents of r under the given name, pinned.
func (c *Client) AddFile(ctx context.Context, name string, r io.Reader) (*AddResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to buffer file contents: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/add?pin=true", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content store unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content store add failed with status %d", resp.StatusCode)
	}

	var added struct {
		Name string `json:"Name"`
		Hash string `json:"Hash"`
		Size string `json:"Size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return nil, fmt.Errorf("failed to decode add response: %w", err)
	}
	return &AddResult{
		Hash: added.Hash,
		Size: added.Size,
		URL:  c.gatewayURL + "/" + added.Hash,
	}, nil
}

// Cat retrieves the raw contents stored under hash.
func (c *Client) Cat(ctx context.Context, hash string) ([]byte, error) {
	resp, err := c.post(ctx, "/api/v0/cat", hash)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content store cat failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Pin pins the object so the node retains it.
func (c *Client) Pin(ctx context.Context, hash string) error {
	return c.pinOp(ctx, "/api/v0/pin/add", hash)
}

// Unpin releases the pin; the node may garbage collect the object.
func (c *Client) Unpin(ctx context.Context, hash string) error {
	return c.pinOp(ctx, "/api/v0/pin/rm", hash)
}

func (c *Client) pinOp(ctx context.Context, path, hash string) error {
	resp, err := c.post(ctx, path, hash)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("content store %s failed with status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, hash string) (*http.Response, error) {
	endpoint := fmt.Sprintf("%s%s?arg=%s", c.apiURL, path, url.QueryEscape(hash))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content store unreachable: %w", err)
	}
	return resp, nil
}
