package handler

import (
	"context"
	"io"
	"time"
)

// ResourceInfo contains the metadata of a resolved resource. It is a plain
// value object: once a resolution returned it, it is never mutated.
type ResourceInfo struct {
	// ID uniquely identifies the resource within its store, e.g. the
	// slash-separated path below the resource root.
	ID string
	// Size is the total length of the resource in bytes.
	Size int64
	// ModTime is the time of the last modification of the resource's content.
	ModTime time.Time
	// ContentType is the MIME type served in the Content-Type header.
	ContentType string
}

// Resource is a seekable, byte-addressable entity resolved by a ResourceStore.
// Resolution returns metadata only; the byte stream is opened lazily via
// Reader so that requests which short-circuit (e.g. with 304 Not Modified)
// never touch the underlying storage.
type Resource interface {
	// Info returns the metadata captured when the resource was resolved.
	Info() ResourceInfo
	// Reader returns a reader positioned at the given byte offset.
	// The caller is responsible for closing the reader once it is no
	// longer needed. Each call returns an independent handle; concurrent
	// transfers for the same resource never share one.
	Reader(ctx context.Context, offset int64) (io.ReadCloser, error)
}

// ResourceStore is the interface that must be implemented by a resource
// backend. Implementations must return ErrNotFound for unknown identifiers
// and ErrForbiddenPath for identifiers that escape the store's root.
type ResourceStore interface {
	// Resolve maps an identifier to a resource and its metadata.
	Resolve(ctx context.Context, id string) (Resource, error)
}
