// Package s3 keeps dataset documents as JSON objects in an S3 compatible
// bucket (AWS S3, MinIO).
//
// Object storage offers plain get/put only, so this store supports the
// legacy append mode. The object ETag is reported as the snapshot version
// for information.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aretw0/catset/pkg/core"
)

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Store implements core.Store on an S3 bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
	initOnce   sync.Once
	initErr    error
}

var _ core.Store = (*Store)(nil)
var _ core.Initializer = (*Store)(nil)

func NewStore(cfg Config) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &Store{
		client:     client,
		bucketName: bucket,
		region:     region,
		prefix:     strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

// Initialize creates the bucket if it does not exist.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	return nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Get implements core.Store.
func (s *Store) Get(ctx context.Context, id core.DocumentID) (core.Snapshot, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return core.Snapshot{}, fmt.Errorf("ensure bucket: %w", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, ObjectKey(s.prefix, id), minio.GetObjectOptions{})
	if err != nil {
		return core.Snapshot{}, err
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		if notFound(err) {
			return core.Snapshot{ID: id}, nil
		}
		return core.Snapshot{}, err
	}
	info, err := obj.Stat()
	if err != nil {
		return core.Snapshot{}, err
	}

	var data core.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode object %s: %w", info.Key, err)
	}
	return core.Snapshot{ID: id, Exists: true, Data: data, Version: info.ETag}, nil
}

// Set implements core.Store.
func (s *Store) Set(ctx context.Context, id core.DocumentID, data core.Data) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucketName, ObjectKey(s.prefix, id), bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func notFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

// ObjectKey returns the object key of a document: [prefix/]collection/name.json.
func ObjectKey(prefix string, id core.DocumentID) string {
	key := id.Collection + "/" + id.Name + ".json"
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string { return "s3" }

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return map[string]any{
		"endpoint": s.client.EndpointURL().Host,
		"bucket":   s.bucketName,
		"prefix":   s.prefix,
	}
}
