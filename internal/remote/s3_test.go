package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory bucket honoring IfMatch and IfNoneMatch.
type fakeS3 struct {
	objects map[string][]byte
	etags   map[string]string
	version int
	puts    []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, etags: map[string]string{}}
}

var errPrecondition = errors.New("PreconditionFailed")

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	etag, ok := f.etags[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ETag: aws.String(etag)}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	current, exists := f.etags[key]
	if in.IfNoneMatch != nil && exists {
		return nil, errPrecondition
	}
	if in.IfMatch != nil && aws.ToString(in.IfMatch) != current {
		return nil, errPrecondition
	}
	data, _ := io.ReadAll(in.Body)
	f.version++
	f.objects[key] = data
	f.etags[key] = fmt.Sprintf(`"v%d"`, f.version)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Mirror_Lifecycle(t *testing.T) {
	fake := newFakeS3()
	m := newS3Mirror(fake, "bucket", "qrm", 0)
	ctx := context.Background()
	id := Identity{Principal: "alice"}

	if _, err := m.Get(ctx, id); !IsNotFound(err) {
		t.Fatalf("Get before create: got %v, want ErrNotFound", err)
	}
	if err := m.Update(ctx, id, sampleCatalog()); !IsNotFound(err) {
		t.Fatalf("Update before create: got %v, want ErrNotFound", err)
	}
	if err := m.Create(ctx, id, sampleCatalog()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := fake.objects["qrm/alice/catalog.json"]; !ok {
		t.Fatalf("object stored under unexpected key: %v", fake.objects)
	}

	if err := m.Create(ctx, id, sampleCatalog()); err == nil {
		t.Error("second Create should fail the IfNoneMatch precondition")
	}

	c := sampleCatalog()
	c.Categories[0].Name = "Renamed"
	if err := m.Update(ctx, id, c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	last := fake.puts[len(fake.puts)-1]
	if aws.ToString(last.IfMatch) != `"v1"` {
		t.Errorf("update should be conditional on the previous ETag, got %q", aws.ToString(last.IfMatch))
	}

	got, err := m.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Categories[0].Name != "Renamed" {
		t.Errorf("Get returned stale document: %+v", got.Categories[0])
	}
}
