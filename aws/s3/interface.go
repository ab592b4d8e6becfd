//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package s3

import (
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// ReadClient is the read-only view of a bucket that the pipeline needs before running COPY.
type ReadClient interface {
	Lister
	Getter
}

type Lister interface {
	// List returns up to max keys found under prefix. Use max <= 0 to fetch all keys.
	List(prefix string, max int) (keys []string, err error)
}

type Getter interface {
	// Get returns ErrKeyNotFound if the given key doesn't exist.
	Get(key string) (data []byte, err error)
}
