package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want string
	}{
		{
			name: "with key",
			err:  &ProviderError{Op: "PutObject", Provider: ProviderS3, Bucket: "media", Key: "a.txt", Err: ErrAccessDenied},
			want: "s3 PutObject: media/a.txt: access denied",
		},
		{
			name: "bucket only",
			err:  &ProviderError{Op: "New", Provider: ProviderS3, Bucket: "media", Err: errors.New("boom")},
			want: "s3 New: media: boom",
		},
		{
			name: "no bucket",
			err:  &ProviderError{Op: "New", Provider: ProviderS3, Err: errors.New("boom")},
			want: "s3 New: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorClassifiers(t *testing.T) {
	wrap := func(sentinel error) error {
		return fmt.Errorf("upload failed: %w", &ProviderError{Op: "PutObject", Provider: ProviderS3, Err: sentinel})
	}

	assert.True(t, IsBucketNotFound(wrap(ErrBucketNotFound)))
	assert.True(t, IsAccessDenied(wrap(ErrAccessDenied)))
	assert.True(t, IsInvalidCredentials(wrap(ErrInvalidCredentials)))
	assert.True(t, IsProviderUnavailable(wrap(ErrProviderUnavailable)))
	assert.True(t, IsThrottled(wrap(ErrThrottled)))
	assert.True(t, IsEntityTooLarge(wrap(ErrEntityTooLarge)))

	assert.False(t, IsAccessDenied(wrap(ErrThrottled)))
	assert.True(t, IsProviderError(wrap(errors.New("anything"))))
	assert.False(t, IsProviderError(errors.New("plain")))
}
