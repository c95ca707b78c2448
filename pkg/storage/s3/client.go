package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/classforge/edugames-backend/pkg/config"
	"github.com/classforge/edugames-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// ErrNotConfigured is returned when the bucket has not been set up. Callers
// translate it into a non-retryable configuration failure.
var ErrNotConfigured = errors.New("s3 storage is not configured")

type uploaderAPI interface {
	Upload(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type objectAPI interface {
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

// Client is the gateway to the game-assets bucket. It owns key generation,
// mediated uploads, presigned GET/PUT issuance, and best-effort deletes.
type Client struct {
	bucket        string
	defaultFolder string
	uploadTTL     time.Duration
	downloadTTL   time.Duration

	uploader uploaderAPI
	presign  presignAPI
	objects  objectAPI

	now func() time.Time
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PresignedUpload carries both halves of the two-phase upload contract: the
// URL the browser PUTs to and the key the client must echo back on create.
type PresignedUpload struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// NewClient builds the S3 gateway from the ambient AWS credential chain and
// verifies the bucket is reachable.
func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is required", ErrNotConfigured)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg)
	client := &Client{
		bucket:        cfg.Bucket,
		defaultFolder: cfg.DefaultFolder,
		uploadTTL:     cfg.UploadURLExpiry,
		downloadTTL:   cfg.DownloadURLExpiry,
		uploader:      manager.NewUploader(api),
		presign:       awss3.NewPresignClient(api),
		objects:       api,
		now:           time.Now,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("s3 health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "s3 client initialized")
	}

	return client, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Ping verifies bucket access with a HeadBucket call.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.objects.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	return err
}

// ObjectKey builds the bucket key for a new upload: a folder prefix, a
// millisecond timestamp to keep names unique, and the sanitized file name.
func (c *Client) ObjectKey(fileName, folder string) string {
	if folder == "" {
		folder = c.defaultFolder
	}
	return fmt.Sprintf("%s/%d-%s", folder, c.now().UnixMilli(), sanitizeFileName(fileName))
}

// Upload streams the body into the bucket under a freshly generated key and
// returns that key.
func (c *Client) Upload(ctx context.Context, body io.Reader, fileName, contentType, folder string) (string, error) {
	if c == nil || c.uploader == nil {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(fileName) == "" {
		return "", errors.New("file name is required")
	}

	key := c.ObjectKey(fileName, folder)
	input := &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return key, nil
}

// PresignPut issues a presigned PUT URL for a direct browser upload. The
// returned key is not yet attached to anything; the client echoes it back on
// the create/update call that follows.
func (c *Client) PresignPut(ctx context.Context, fileName, contentType, folder string) (PresignedUpload, error) {
	if c == nil || c.presign == nil {
		return PresignedUpload{}, ErrNotConfigured
	}
	if strings.TrimSpace(fileName) == "" {
		return PresignedUpload{}, errors.New("file name is required")
	}

	key := c.ObjectKey(fileName, folder)
	input := &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := c.presign.PresignPutObject(ctx, input, awss3.WithPresignExpires(c.uploadTTL))
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presigning put for %s: %w", key, err)
	}
	return PresignedUpload{URL: req.URL, Key: key}, nil
}

// PresignGet exchanges a stored reference for a browser-usable URL. Empty
// references and legacy absolute URLs pass through byte-for-byte; only real
// bucket keys are signed.
func (c *Client) PresignGet(ctx context.Context, ref string) (string, error) {
	objRef := ObjectRef(ref)
	if objRef.IsZero() || objRef.IsLegacyURL() {
		return ref, nil
	}
	if c == nil || c.presign == nil {
		return "", ErrNotConfigured
	}

	req, err := c.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(ref),
	}, awss3.WithPresignExpires(c.downloadTTL))
	if err != nil {
		return "", fmt.Errorf("presigning get for %s: %w", ref, err)
	}
	return req.URL, nil
}

// Delete removes the object behind the reference. Empty references and legacy
// URLs are skipped: there is nothing in the bucket to remove.
func (c *Client) Delete(ctx context.Context, ref string) error {
	objRef := ObjectRef(ref)
	if objRef.IsZero() || objRef.IsLegacyURL() {
		return nil
	}
	if c == nil || c.objects == nil {
		return ErrNotConfigured
	}

	if _, err := c.objects.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(ref),
	}); err != nil {
		return fmt.Errorf("deleting %s: %w", ref, err)
	}
	return nil
}

// sanitizeFileName strips path separators and whitespace so user-supplied
// names cannot escape the folder prefix.
func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return replacer.Replace(name)
}
