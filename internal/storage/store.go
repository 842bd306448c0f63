package storage

import (
	"fmt"
	"strings"

	"github.com/conorfennell/spacedeck/internal/domain"
)

// Store is a durable key → document store. Documents are opaque bytes; the
// deck package encodes them as JSON.
type Store interface {
	// Load returns the document saved under key, or an error wrapping
	// domain.ErrNotFound.
	Load(key string) ([]byte, error)
	// Save replaces the document under key. A failed Save leaves the
	// previously saved document intact.
	Save(key string, doc []byte) error
	// Delete removes the document under key, or returns an error wrapping
	// domain.ErrNotFound.
	Delete(key string) error
	// Keys lists every stored key in ascending order.
	Keys() ([]string, error)
	Close() error
}

// ValidateKey rejects keys that cannot be used as a single file name.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidName, key)
	}
	return nil
}
