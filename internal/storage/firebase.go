package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirebaseStore Firebase Storage（GCS bucket）实现，生产环境使用。
type FirebaseStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewFirebaseStore 用服务账号文件初始化 Firebase Storage
func NewFirebaseStore(ctx context.Context, bucketName, credentialsFile string) (*FirebaseStore, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("firebase bucket name is empty")
	}

	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("failed to get default bucket: %w", err)
	}

	return &FirebaseStore{bucket: bucket, bucketName: bucketName}, nil
}

// Upload 上传对象并返回公开 URL
func (s *FirebaseStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if s == nil || s.bucket == nil {
		return "", fmt.Errorf("firebase store is not initialized")
	}
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", fmt.Errorf("object path is empty")
	}

	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = "image/jpeg"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", path, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, path), nil
}

// Remove 按公开 URL 删除对象，尽力而为。
func (s *FirebaseStore) Remove(ctx context.Context, refs []string) error {
	if s == nil || s.bucket == nil {
		return fmt.Errorf("firebase store is not initialized")
	}
	prefix := fmt.Sprintf("https://storage.googleapis.com/%s/", s.bucketName)

	var firstErr error
	for _, ref := range refs {
		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		object, err := url.PathUnescape(strings.TrimPrefix(ref, prefix))
		if err != nil {
			continue
		}
		if err := s.bucket.Object(object).Delete(ctx); err != nil && err != gcs.ErrObjectNotExist {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete object %s: %w", object, err)
			}
		}
	}
	return firstErr
}

// ReadObject 按对象路径读取（运维排查用）
func (s *FirebaseStore) ReadObject(ctx context.Context, path string) ([]byte, error) {
	if s == nil || s.bucket == nil {
		return nil, fmt.Errorf("firebase store is not initialized")
	}
	r, err := s.bucket.Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}
