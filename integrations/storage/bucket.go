package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/AzielCF/az-localseo/core/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const uploadTimeout = 45 * time.Second

// Bucket guarda los medios generados (imagenes) en un bucket compatible con S3
// y devuelve la URL publica de cada objeto.
type Bucket struct {
	client    *s3.Client
	bucket    string
	endpoint  *url.URL
	publicURL string
	pathStyle bool
}

// Option tweaks the underlying S3 client; tests use it to swap the HTTP transport.
type Option func(*s3.Options)

func WithHTTPClient(c s3.HTTPClient) Option {
	return func(o *s3.Options) { o.HTTPClient = c }
}

func NewBucket(cfg config.StorageConfig, opts ...Option) (*Bucket, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	region := strings.TrimSpace(cfg.Region)
	if bucket == "" || region == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("incomplete storage config: bucket/region/access key/secret key are required")
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	custom := endpoint != ""
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	parsed, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid storage endpoint: %s", endpoint)
	}

	// Los endpoints propios (R2, MinIO) casi nunca soportan virtual-host
	pathStyle := cfg.UsePathStyle || custom

	s3Opts := s3.Options{
		Region:       region,
		Credentials:  aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		UsePathStyle: pathStyle,
		HTTPClient:   &http.Client{Timeout: uploadTimeout},
		// sin checksums por defecto: varios proveedores compatibles rechazan el body aws-chunked
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	}
	if custom {
		s3Opts.BaseEndpoint = aws.String(parsed.String())
	}
	client := s3.New(s3Opts, func(o *s3.Options) {
		for _, opt := range opts {
			opt(o)
		}
	})

	return &Bucket{
		client:    client,
		bucket:    bucket,
		endpoint:  parsed,
		publicURL: strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/"),
		pathStyle: pathStyle,
	}, nil
}

// Put uploads data under key and returns the object's public URL.
func (b *Bucket) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = normalizeObjectKey(key)
	if key == "" {
		return "", fmt.Errorf("invalid object key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	logrus.Debugf("[STORAGE] Stored %s (%s)", key, humanize.Bytes(uint64(len(data))))
	return b.URLFor(key), nil
}

// URLFor builds the public address of an object: custom domain first, then the bucket endpoint.
func (b *Bucket) URLFor(key string) string {
	key = normalizeObjectKey(key)
	escaped := escapeKey(key)
	if b.publicURL != "" {
		return b.publicURL + "/" + escaped
	}
	if b.pathStyle {
		return fmt.Sprintf("%s://%s/%s/%s", b.endpoint.Scheme, b.endpoint.Host, b.bucket, escaped)
	}
	return fmt.Sprintf("%s://%s.%s/%s", b.endpoint.Scheme, b.bucket, b.endpoint.Host, escaped)
}

func normalizeObjectKey(key string) string {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	key = path.Clean("/" + key)
	return strings.TrimPrefix(key, "/")
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
