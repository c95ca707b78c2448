package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

type stubUploader struct {
	lastInput *awss3.PutObjectInput
	err       error
}

func (s *stubUploader) Upload(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &manager.UploadOutput{}, nil
}

type stubPresigner struct {
	getKeys []string
	putKeys []string
	err     error
}

func (s *stubPresigner) PresignGetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.getKeys = append(s.getKeys, *params.Key)
	return &v4.PresignedHTTPRequest{URL: "https://signed.example.com/" + *params.Key}, nil
}

func (s *stubPresigner) PresignPutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.putKeys = append(s.putKeys, *params.Key)
	return &v4.PresignedHTTPRequest{URL: "https://upload.example.com/" + *params.Key}, nil
}

type stubObjects struct {
	deleted []string
	err     error
}

func (s *stubObjects) DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.deleted = append(s.deleted, *params.Key)
	return &awss3.DeleteObjectOutput{}, nil
}

func (s *stubObjects) HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &awss3.HeadBucketOutput{}, nil
}

func newTestClient(up *stubUploader, pre *stubPresigner, obj *stubObjects) *Client {
	return &Client{
		bucket:        "edugames-assets",
		defaultFolder: "games",
		uploadTTL:     time.Hour,
		downloadTTL:   time.Hour,
		uploader:      up,
		presign:       pre,
		objects:       obj,
		now:           func() time.Time { return time.UnixMilli(1712000000000) },
	}
}

func TestObjectKeyFormat(t *testing.T) {
	client := newTestClient(nil, nil, nil)

	key := client.ObjectKey("math quiz.zip", "")
	if key != "games/1712000000000-math_quiz.zip" {
		t.Fatalf("unexpected key %q", key)
	}

	key = client.ObjectKey("../escape.zip", "thumbnails")
	if key != "thumbnails/1712000000000-.._escape.zip" {
		t.Fatalf("unexpected sanitized key %q", key)
	}
}

func TestUploadReturnsGeneratedKey(t *testing.T) {
	up := &stubUploader{}
	client := newTestClient(up, nil, nil)

	key, err := client.Upload(context.Background(), strings.NewReader("payload"), "bundle.zip", "application/zip", "games")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if key != "games/1712000000000-bundle.zip" {
		t.Fatalf("unexpected key %q", key)
	}
	if up.lastInput == nil || *up.lastInput.Key != key {
		t.Fatalf("uploader called with wrong key")
	}
	if *up.lastInput.Bucket != "edugames-assets" {
		t.Fatalf("uploader called with wrong bucket %q", *up.lastInput.Bucket)
	}
	if up.lastInput.ContentType == nil || *up.lastInput.ContentType != "application/zip" {
		t.Fatalf("content type not forwarded")
	}

	body, err := io.ReadAll(up.lastInput.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(body) != "payload" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestUploadRequiresFileName(t *testing.T) {
	client := newTestClient(&stubUploader{}, nil, nil)
	if _, err := client.Upload(context.Background(), strings.NewReader(""), "  ", "", ""); err == nil {
		t.Fatal("expected file name error")
	}
}

func TestPresignPutIssuesURLAndKey(t *testing.T) {
	pre := &stubPresigner{}
	client := newTestClient(nil, pre, nil)

	upload, err := client.PresignPut(context.Background(), "bundle.zip", "application/zip", "")
	if err != nil {
		t.Fatalf("presign put: %v", err)
	}
	if upload.Key != "games/1712000000000-bundle.zip" {
		t.Fatalf("unexpected key %q", upload.Key)
	}
	if upload.URL != "https://upload.example.com/"+upload.Key {
		t.Fatalf("unexpected url %q", upload.URL)
	}
}

func TestPresignGetSignsKeys(t *testing.T) {
	pre := &stubPresigner{}
	client := newTestClient(nil, pre, nil)

	url, err := client.PresignGet(context.Background(), "games/123-bundle.zip")
	if err != nil {
		t.Fatalf("presign get: %v", err)
	}
	if url != "https://signed.example.com/games/123-bundle.zip" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestPresignGetPassThrough(t *testing.T) {
	pre := &stubPresigner{err: errors.New("must not be called")}
	client := newTestClient(nil, pre, nil)

	cases := []string{
		"",
		"   ",
		"http://legacy.example.com/file.zip",
		"https://legacy.example.com/file.zip",
	}
	for _, ref := range cases {
		got, err := client.PresignGet(context.Background(), ref)
		if err != nil {
			t.Fatalf("presign get %q: %v", ref, err)
		}
		if got != ref {
			t.Fatalf("expected pass-through for %q, got %q", ref, got)
		}
	}
	if len(pre.getKeys) != 0 {
		t.Fatalf("presigner was invoked for pass-through refs")
	}
}

func TestDeleteSkipsLegacyAndEmpty(t *testing.T) {
	obj := &stubObjects{}
	client := newTestClient(nil, nil, obj)

	for _, ref := range []string{"", "https://legacy.example.com/file.zip"} {
		if err := client.Delete(context.Background(), ref); err != nil {
			t.Fatalf("delete %q: %v", ref, err)
		}
	}
	if len(obj.deleted) != 0 {
		t.Fatalf("expected no bucket deletes, got %v", obj.deleted)
	}

	if err := client.Delete(context.Background(), "games/123-bundle.zip"); err != nil {
		t.Fatalf("delete key: %v", err)
	}
	if len(obj.deleted) != 1 || obj.deleted[0] != "games/123-bundle.zip" {
		t.Fatalf("unexpected deletes %v", obj.deleted)
	}
}

func TestClientNotConfigured(t *testing.T) {
	var client *Client
	if err := client.Ping(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := client.Upload(context.Background(), strings.NewReader(""), "a.zip", "", ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := client.PresignGet(context.Background(), "games/123-a.zip"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
