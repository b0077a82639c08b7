package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const publicURLPrefix = "https://storage.googleapis.com/"

// CloudStorageClient checks that chat attachments were uploaded to the
// attachment bucket before messages reference them. Uploads themselves go
// through signed URLs issued by the media service.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Exists reports whether ref names an object in the bucket. ref is either
// an object name or a public storage.googleapis.com URL.
func (c *CloudStorageClient) Exists(ctx context.Context, ref string) (bool, error) {
	name, err := objectName(c.bucketName, ref)
	if err != nil {
		return false, nil
	}

	_, err = c.client.Bucket(c.bucketName).Object(name).Attrs(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat attachment: %v", err)
	}
	return true, nil
}

func objectName(bucket, ref string) (string, error) {
	if !strings.HasPrefix(ref, publicURLPrefix) {
		if ref == "" || strings.Contains(ref, "://") {
			return "", fmt.Errorf("invalid attachment reference")
		}
		return strings.TrimPrefix(ref, "/"), nil
	}

	parts := strings.SplitN(strings.TrimPrefix(ref, publicURLPrefix), "/", 2)
	if len(parts) != 2 || parts[0] != bucket || parts[1] == "" {
		return "", fmt.Errorf("invalid GCS URL format or bucket mismatch")
	}
	return parts[1], nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
