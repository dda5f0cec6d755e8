// Package gateway wraps the Fabric Gateway API connection to the peer. It
// exposes generic Submit/Evaluate calls against the coffee chaincode plus the
// mapping from chaincode failure text back to HTTP status codes.
package gateway

import (
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"coffeetrace/internal/relay/config"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Client is a live connection to one peer's gateway service, scoped to the
// coffee chaincode.
type Client struct {
	conn     *grpc.ClientConn
	gateway  *client.Gateway
	contract *client.Contract
}

// Connect dials the peer and opens a gateway session using the configured
// X.509 enrollment material.
func Connect(cfg config.FabricConfig) (*Client, error) {
	conn, err := newGrpcConnection(cfg)
	if err != nil {
		return nil, err
	}

	id, err := newIdentity(cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	sign, err := newSign(cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(5*time.Second),
		client.WithEndorseTimeout(15*time.Second),
		client.WithSubmitTimeout(5*time.Second),
		client.WithCommitStatusTimeout(1*time.Minute),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	contract := gw.GetNetwork(cfg.ChannelName).GetContract(cfg.ChaincodeName)
	return &Client{conn: conn, gateway: gw, contract: contract}, nil
}

// Close tears down the gateway session and the underlying gRPC connection.
func (c *Client) Close() {
	if c.gateway != nil {
		c.gateway.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// Evaluate runs a read-only transaction on the peer.
func (c *Client) Evaluate(name string, args ...string) ([]byte, error) {
	return c.contract.EvaluateTransaction(name, args...)
}

// Submit endorses, submits and waits for commit of a transaction, returning
// the chaincode result and the transaction id.
func (c *Client) Submit(name string, args ...string) ([]byte, string, error) {
	proposal, err := c.contract.NewProposal(name, client.WithArguments(args...))
	if err != nil {
		return nil, "", fmt.Errorf("failed to build proposal for %s: %w", name, err)
	}
	txn, err := proposal.Endorse()
	if err != nil {
		return nil, "", err
	}
	commit, err := txn.Submit()
	if err != nil {
		return nil, "", err
	}
	status, err := commit.Status()
	if err != nil {
		return nil, commit.TransactionID(), err
	}
	if !status.Successful {
		return nil, commit.TransactionID(), fmt.Errorf("transaction %s failed to commit with status %d", status.TransactionID, int32(status.Code))
	}
	return txn.Result(), commit.TransactionID(), nil
}

func newGrpcConnection(cfg config.FabricConfig) (*grpc.ClientConn, error) {
	tlsPEM, err := os.ReadFile(cfg.TLSCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read peer TLS certificate: %w", err)
	}
	certificate, err := identity.CertificateFromPEM(tlsPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse peer TLS certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(certificate)
	creds := credentials.NewClientTLSFromCert(pool, cfg.GatewayPeer)

	conn, err := grpc.Dial(cfg.PeerEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to dial peer %s: %w", cfg.PeerEndpoint, err)
	}
	return conn, nil
}

func newIdentity(cfg config.FabricConfig) (*identity.X509Identity, error) {
	certPEM, err := os.ReadFile(cfg.CertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read enrollment certificate: %w", err)
	}
	certificate, err := identity.CertificateFromPEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse enrollment certificate: %w", err)
	}
	return identity.NewX509Identity(cfg.MSPID, certificate)
}

func newSign(cfg config.FabricConfig) (identity.Sign, error) {
	keyPEM, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	privateKey, err := identity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return identity.NewPrivateKeySign(privateKey)
}

// StatusOf maps a chaincode invocation error to the HTTP status the relay
// should answer with. The chaincode wraps every failure with one of its
// sentinel reasons, so the text carries the class across the wire.
func StatusOf(err error) int {
	if err == nil {
		return 200
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "not authorized"),
		strings.Contains(msg, "not the administrator"),
		strings.Contains(msg, "only "):
		return 403
	case strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "not found"):
		return 404
	case strings.Contains(msg, "invalid transition"),
		strings.Contains(msg, "cannot move"),
		strings.Contains(msg, "validation"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "must be"),
		strings.Contains(msg, "already"):
		return 400
	default:
		return 502
	}
}
