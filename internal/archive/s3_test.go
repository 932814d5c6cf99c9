package archive

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/markupload/internal/core"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Archiver_Archive(t *testing.T) {
	fake := &fakeS3{}
	a := &S3Archiver{client: fake, bucket: "marks"}
	key := core.ArchiveKey("uploads", "exam-1", "upload-1")

	if err := a.Archive(context.Background(), key, []byte("enrollment_no,marks\nS100,85\n")); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	if got := aws.ToString(fake.in.Bucket); got != "marks" {
		t.Errorf("bucket = %q", got)
	}
	if got := aws.ToString(fake.in.Key); got != "uploads/exam-1/upload-1.csv" {
		t.Errorf("key = %q", got)
	}
	if got := aws.ToString(fake.in.ContentType); got != "text/csv" {
		t.Errorf("content type = %q", got)
	}
	if aws.ToInt64(fake.in.ContentLength) != int64(len(fake.body)) {
		t.Errorf("content length = %d, body %d", aws.ToInt64(fake.in.ContentLength), len(fake.body))
	}
	if !strings.HasPrefix(fake.body, "enrollment_no") {
		t.Errorf("body = %q", fake.body)
	}
}

func TestS3Archiver_ArchiveError(t *testing.T) {
	denied := errors.New("AccessDenied")
	a := &S3Archiver{client: &fakeS3{err: denied}, bucket: "marks"}

	err := a.Archive(context.Background(), "k.csv", nil)
	if !errors.Is(err, denied) {
		t.Fatalf("Archive() error = %v, want wrapped AccessDenied", err)
	}
	if !strings.Contains(err.Error(), "s3://marks/k.csv") {
		t.Errorf("error %q should name the object", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"missing bucket", Options{}, true},
		{"static credentials with endpoint", Options{
			Bucket:    "marks",
			Region:    "auto",
			Endpoint:  "http://localhost:9000",
			AccessKey: "minio",
			SecretKey: "minio123",
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(context.Background(), tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && a.bucket != tt.opts.Bucket {
				t.Errorf("bucket = %q", a.bucket)
			}
		})
	}
}

var _ core.Archiver = (*S3Archiver)(nil)
