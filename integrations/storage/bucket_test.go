package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/AzielCF/az-localseo/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.StorageConfig {
	return config.StorageConfig{
		Endpoint:  "minio.test:9000",
		Region:    "us-east-1",
		Bucket:    "media",
		AccessKey: "AKID",
		SecretKey: "SECRET",
	}
}

func TestBucket_PutUsesPathStyleOnCustomEndpoint(t *testing.T) {
	var (
		gotPath, gotType, gotAuth string
		gotBody                   []byte
	)
	stub := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Host + req.URL.Path
		gotType = req.Header.Get("Content-Type")
		gotAuth = req.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(req.Body)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Etag": []string{`"abc"`}},
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Request:    req,
		}, nil
	})}

	b, err := NewBucket(testConfig(), WithHTTPClient(stub))
	require.NoError(t, err)

	url, err := b.Put(context.Background(), "/items/it-1/../it-1/hero image.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "minio.test:9000/media/items/it-1/hero image.jpg", gotPath)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Contains(t, gotAuth, "AWS4-HMAC-SHA256 Credential=AKID/")
	assert.Equal(t, "jpeg", string(gotBody))
	assert.Equal(t, "https://minio.test:9000/media/items/it-1/hero%20image.jpg", url)
}

func TestBucket_URLFor(t *testing.T) {
	cfg := testConfig()
	cfg.PublicURL = "https://cdn.acme.test/"
	b, err := NewBucket(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.acme.test/a/b.jpg", b.URLFor("a/b.jpg"))

	cfg = testConfig()
	cfg.Endpoint = ""
	b, err = NewBucket(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.us-east-1.amazonaws.com/a/b.jpg", b.URLFor("a/b.jpg"))
}

func TestNewBucket_RequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.SecretKey = ""
	_, err := NewBucket(cfg)
	assert.Error(t, err)
}

func TestNormalizeObjectKey(t *testing.T) {
	assert.Equal(t, "a/c.jpg", normalizeObjectKey(`\a\b\..\c.jpg`))
	assert.Equal(t, "x.jpg", normalizeObjectKey("../../x.jpg"))
	assert.Equal(t, "", normalizeObjectKey("  "))
}
