// Package provider defines abstractions for object storage writes.
//
// Providers are bound to a single bucket and expose the minimal surface the
// uploader needs. Authentication is resolved when the provider is built;
// providers should not implement custom auth logic beyond that.
package provider

import (
	"context"
	"io"
)

// ObjectPutter can create or overwrite objects.
//
// PutObject sends the full body as a single request. Existing objects under
// the same key are replaced without any conditional check.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string) error
}

// Provider is an ObjectPutter that holds releasable resources.
type Provider interface {
	ObjectPutter

	// Bucket returns the bucket the provider writes to.
	Bucket() string

	// Close releases any resources held by the provider.
	Close() error
}

// ProviderType identifies a storage provider.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderFile represents a local directory laid out as <base>/<bucket>/<key>.
	ProviderFile ProviderType = "file"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
