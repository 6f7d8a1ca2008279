package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MaxMediaBytes caps a single uploaded photo or audio clip.
const MaxMediaBytes = 20 << 20

type Options struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

type Client struct {
	s3     *s3.Client
	bucket string
}

// New connects to a MinIO (or any S3-compatible) endpoint.
func New(ctx context.Context, o Options) (*Client, error) {
	if o.Bucket == "" {
		return nil, errors.New("storage bucket required")
	}
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load s3 config")
	}
	endpoint := o.Endpoint
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		if endpoint != "" {
			opts.BaseEndpoint = aws.String(endpoint)
		}
		opts.UsePathStyle = true
	})
	return &Client{s3: client, bucket: o.Bucket}, nil
}

// PutMedia stores an uploaded file under media/<kind>/ and returns its
// s3:// reference.
func (c *Client) PutMedia(ctx context.Context, kind, filename, contentType string, data []byte) (string, error) {
	key := mediaKey(kind, filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "put %s", key)
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}

// GetMedia reads back an object stored by PutMedia.
func (c *Client) GetMedia(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	if bucket != c.bucket {
		return nil, fmt.Errorf("s3 ref %q is outside bucket %q", ref, c.bucket)
	}
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", ref)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(io.LimitReader(out.Body, MaxMediaBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", ref)
	}
	if len(b) > MaxMediaBytes {
		return nil, fmt.Errorf("s3 object %s exceeds %d bytes", ref, MaxMediaBytes)
	}
	return b, nil
}

// Name returns the file name part of a media reference.
func Name(ref string) string {
	_, key, err := parseS3Ref(ref)
	if err != nil {
		return ""
	}
	base := path.Base(key)
	// keys look like <uuid>-<original name>
	if len(base) > 37 && base[36] == '-' {
		return base[37:]
	}
	return base
}

func mediaKey(kind, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = kind
	}
	return fmt.Sprintf("media/%s/%s-%s", kind, uuid.NewString(), name)
}

func parseS3Ref(ref string) (string, string, error) {
	const p = "s3://"
	if !strings.HasPrefix(ref, p) {
		return "", "", fmt.Errorf("bad s3 ref (missing s3://): %q", ref)
	}
	s := strings.TrimPrefix(ref, p)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return "", "", fmt.Errorf("bad s3 ref (need bucket/key): %q", ref)
	}
	return s[:slash], s[slash+1:], nil
}
