package handlers

import (
	"context"
	"io"

	"coffeetrace/internal/relay/ipfs"
)

// Invoker is the slice of the gateway client the handlers depend on.
type Invoker interface {
	Submit(name string, args ...string) ([]byte, string, error)
	Evaluate(name string, args ...string) ([]byte, error)
}

// ContentStore is the slice of the IPFS client the handlers depend on.
type ContentStore interface {
	AddJSON(ctx context.Context, v interface{}) (*ipfs.AddResult, error)
	AddFile(ctx context.Context, name string, r io.Reader) (*ipfs.AddResult, error)
	Cat(ctx context.Context, hash string) ([]byte, error)
	Pin(ctx context.Context, hash string) error
	Unpin(ctx context.Context, hash string) error
}
