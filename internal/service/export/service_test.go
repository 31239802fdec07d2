package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/pkg/config"
)

type stubLister struct {
	assets []domain.Asset
	err    error
}

func (s stubLister) List(context.Context) ([]domain.Asset, error) { return s.assets, s.err }

type capturePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (c *capturePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	c.input = params
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	c.body = data
	if c.err != nil {
		return nil, c.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestExportUploadsSnapshot(t *testing.T) {
	putter := &capturePutter{}
	lister := stubLister{assets: []domain.Asset{
		{ID: "a-1", Name: "Dell", Type: domain.AssetTypeLaptop, Status: domain.AssetStatusAvailable, Specifications: "i7"},
		{ID: "a-2", Name: "LG", Type: domain.AssetTypeMonitor, Status: domain.AssetStatusAssigned, Specifications: "27"},
	}}
	svc := NewWithClient(putter, "inventory-bucket", "inventory", lister, nil)
	svc.now = func() time.Time { return time.Date(2025, time.May, 2, 10, 30, 0, 0, time.UTC) }

	res, err := svc.Export(context.Background())
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if res.Count != 2 || res.Bucket != "inventory-bucket" {
		t.Fatalf("unexpected result %+v", res)
	}
	wantKey := "inventory/2025/05/02/assets-20250502T103000Z.json"
	if res.Key != wantKey || aws.ToString(putter.input.Key) != wantKey {
		t.Fatalf("expected key %s, got %s", wantKey, res.Key)
	}
	if aws.ToString(putter.input.ContentType) != "application/json" {
		t.Fatalf("unexpected content type %q", aws.ToString(putter.input.ContentType))
	}

	var snap snapshot
	if err := json.Unmarshal(putter.body, &snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if snap.Count != 2 || len(snap.Assets) != 2 || snap.Assets[1].Name != "LG" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestExportNotConfigured(t *testing.T) {
	svc, err := New(context.Background(), config.APIConfig{}, stubLister{}, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if svc.Enabled() {
		t.Fatal("expected export to be disabled without a bucket")
	}
	if _, err := svc.Export(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestExportPropagatesFailures(t *testing.T) {
	svc := NewWithClient(&capturePutter{}, "b", "", stubLister{err: errors.New("db down")}, nil)
	if _, err := svc.Export(context.Background()); err == nil {
		t.Fatal("expected list error")
	}

	svc = NewWithClient(&capturePutter{err: errors.New("access denied")}, "b", "", stubLister{}, nil)
	if _, err := svc.Export(context.Background()); err == nil {
		t.Fatal("expected put error")
	}
}

func TestNewAppliesRegionCredentialsAndEndpoint(t *testing.T) {
	origLoad := loadAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load option error: %v", err)
			}
		}
		if lo.Region != "eu-central-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		if lo.Credentials == nil {
			t.Fatal("expected static credentials provider")
		}
		creds, err := lo.Credentials.Retrieve(ctx)
		if err != nil || creds.AccessKeyID != "minio" {
			t.Fatalf("unexpected credentials %+v, %v", creds, err)
		}
		return aws.Config{Region: lo.Region}, nil
	}

	var endpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectPutter {
		var o s3.Options
		for _, fn := range optFns {
			fn(&o)
		}
		endpoint = aws.ToString(o.BaseEndpoint)
		return &capturePutter{}
	}

	svc, err := New(context.Background(), config.APIConfig{
		ExportBucket:    "inventory",
		ExportRegion:    "eu-central-1",
		ExportEndpoint:  "http://127.0.0.1:9000",
		ExportAccessKey: "minio",
		ExportSecretKey: "minio123",
	}, stubLister{}, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if !svc.Enabled() {
		t.Fatal("expected export enabled")
	}
	if endpoint != "http://127.0.0.1:9000" {
		t.Fatalf("endpoint not applied: %q", endpoint)
	}
}

func TestNewPropagatesConfigError(t *testing.T) {
	origLoad := loadAWSConfig
	t.Cleanup(func() { loadAWSConfig = origLoad })
	loadAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("boom")
	}
	if _, err := New(context.Background(), config.APIConfig{ExportBucket: "b"}, stubLister{}, nil); err == nil {
		t.Fatal("expected error")
	}
}
