//go:build cloudintegration

package s3_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusup/pkg/provider"
	providers3 "github.com/3leaps/nimbusup/pkg/provider/s3"
	"github.com/3leaps/nimbusup/test/cloudtest"
)

func TestProvider_PutObject(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	p, err := providers3.New(ctx, cloudtest.ProviderConfig(bucket))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	body := "hello upload"
	require.NoError(t, p.PutObject(ctx, "hello.txt", strings.NewReader(body), int64(len(body)), "text/plain"))

	got, contentType := cloudtest.GetObject(t, ctx, bucket, "hello.txt")
	assert.Equal(t, body, string(got))
	assert.Equal(t, "text/plain", contentType)
}

func TestProvider_PutObjectOverwrites(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	p, err := providers3.New(ctx, cloudtest.ProviderConfig(bucket))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	require.NoError(t, p.PutObject(ctx, "same.txt", strings.NewReader("first"), 5, ""))
	require.NoError(t, p.PutObject(ctx, "same.txt", strings.NewReader("second"), 6, ""))

	got, _ := cloudtest.GetObject(t, ctx, bucket, "same.txt")
	assert.Equal(t, "second", string(got))
	assert.Equal(t, []string{"same.txt"}, cloudtest.ObjectKeys(t, ctx, bucket))
}

func TestProvider_PutObjectMissingBucket(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	p, err := providers3.New(ctx, cloudtest.ProviderConfig("nimbusup-does-not-exist"))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	err = p.PutObject(ctx, "x.txt", strings.NewReader("x"), 1, "")
	require.Error(t, err)
	assert.True(t, provider.IsBucketNotFound(err), "got %v", err)
}
