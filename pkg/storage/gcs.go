package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

//GCSConfig configures the Google Cloud Storage backend
type GCSConfig struct {
	Bucket string
	//CredentialsFile is a service account JSON; empty means application default credentials
	CredentialsFile string
	//Endpoint overrides the API endpoint, used against emulators
	Endpoint string
}

//GCS stores objects in a Google Cloud Storage bucket
type GCS struct {
	bucket  string
	service *gcs.Service
}

//NewGCS authenticates and verifies the bucket is reachable
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("NewGCS: Error, bucket name is required")
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	} else {
		creds, err := loadCredentials(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("NewGCS: Error, got '%v'", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	service, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGCS: Error, got '%v'", err)
	}

	if _, err := service.Buckets.Get(cfg.Bucket).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("NewGCS: bucket %q unreachable, got '%v'", cfg.Bucket, err)
	}

	return &GCS{bucket: cfg.Bucket, service: service}, nil
}

func loadCredentials(ctx context.Context, credentialsFile string) (*google.Credentials, error) {
	if credentialsFile == "" {
		return google.FindDefaultCredentials(ctx, gcs.DevstorageReadWriteScope)
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, err
	}
	return google.CredentialsFromJSON(ctx, data, gcs.DevstorageReadWriteScope)
}

func (g *GCS) Name() string {
	return "gcs"
}

func (g *GCS) URL(objectPath string) string {
	p, _ := cleanPath(objectPath)
	return fmt.Sprintf("gs://%s/%s", g.bucket, p)
}

func (g *GCS) Put(ctx context.Context, data []byte, objectPath, contentType string) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}

	obj := &gcs.Object{Name: p, ContentType: contentType}
	_, err = g.service.Objects.Insert(g.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("GCS.Put: Error, got '%v'", err)
	}

	return g.URL(p), nil
}

func (g *GCS) Get(ctx context.Context, objectPath string) ([]byte, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}

	resp, err := g.service.Objects.Get(g.bucket, p).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GCS.Get: Error, got '%v'", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GCS.Get: Error, got '%v'", err)
	}
	return data, nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]string, error) {
	names := make([]string, 0)
	err := g.service.Objects.List(g.bucket).Prefix(prefix).Pages(ctx, func(objs *gcs.Objects) error {
		for _, o := range objs.Items {
			names = append(names, o.Name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("GCS.List: Error, got '%v'", err)
	}
	sort.Strings(names)
	return names, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
