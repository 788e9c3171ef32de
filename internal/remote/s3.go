package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alfredjeanlab/quickreply/internal/model"
)

// s3API is the subset of the S3 client the mirror uses.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror stores each principal's catalog as {prefix}/{principal}/catalog.json
// in an S3-compatible bucket. Updates are conditional on the current ETag and
// creates on the object being absent.
type S3Mirror struct {
	client  s3API
	bucket  string
	prefix  string
	timeout time.Duration
}

var _ Mirror = (*S3Mirror)(nil)

// NewS3Mirror creates an S3 mirror. If endpoint is non-empty, path-style
// addressing is enabled (for MinIO and similar).
func NewS3Mirror(ctx context.Context, bucket, prefix, region, endpoint string, timeout time.Duration) (*S3Mirror, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return newS3Mirror(s3.NewFromConfig(cfg, s3opts...), bucket, prefix, timeout), nil
}

func newS3Mirror(client s3API, bucket, prefix string, timeout time.Duration) *S3Mirror {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &S3Mirror{client: client, bucket: bucket, prefix: prefix, timeout: timeout}
}

func (m *S3Mirror) key(principal string) string {
	return path.Join(m.prefix, principal, DocumentID+".json")
}

func (m *S3Mirror) Get(ctx context.Context, id Identity) (*model.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key(id.Principal)),
	})
	if err != nil {
		return nil, s3Err("get", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, syncErr("get", 0, fmt.Errorf("s3 read object: %w", err))
	}
	var c model.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, syncErr("get", 0, fmt.Errorf("decoding object: %w", err))
	}
	if c.Categories == nil {
		return nil, syncErr("get", 0, fmt.Errorf("document has no categories: %w", ErrNotFound))
	}
	return &c, nil
}

func (m *S3Mirror) Update(ctx context.Context, id Identity, c *model.Catalog) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	head, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key(id.Principal)),
	})
	if err != nil {
		return s3Err("update", err)
	}
	return m.put(ctx, "update", id, c, func(in *s3.PutObjectInput) { in.IfMatch = head.ETag })
}

func (m *S3Mirror) Create(ctx context.Context, id Identity, c *model.Catalog) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.put(ctx, "create", id, c, func(in *s3.PutObjectInput) { in.IfNoneMatch = aws.String("*") })
}

func (m *S3Mirror) put(ctx context.Context, op string, id Identity, c *model.Catalog, cond func(*s3.PutObjectInput)) error {
	data, err := json.Marshal(c)
	if err != nil {
		return syncErr(op, 0, fmt.Errorf("encoding catalog: %w", err))
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.key(id.Principal)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	cond(in)
	if _, err := m.client.PutObject(ctx, in); err != nil {
		return s3Err(op, err)
	}
	return nil
}

// s3Err classifies an S3 failure: a missing object becomes ErrNotFound.
func s3Err(op string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return syncErr(op, 404, ErrNotFound)
	}
	status := 0
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		status = re.HTTPStatusCode()
		if status == 404 {
			return syncErr(op, status, ErrNotFound)
		}
	}
	return syncErr(op, status, fmt.Errorf("s3: %w", err))
}
