package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicURL       string
	Prefix          string
}

// S3Store uploads to an S3 (or S3 compatible) bucket.
type S3Store struct {
	client    *awss3.Client
	bucket    string
	prefix    string
	publicURL string
	http      *http.Client
}

func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage: s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	publicURL := strings.TrimRight(opts.PublicURL, "/")
	if publicURL == "" {
		publicURL = defaultPublicURL(opts.Bucket, awsCfg.Region, opts.Endpoint, opts.UsePathStyle)
	}

	return &S3Store{
		client:    client,
		bucket:    opts.Bucket,
		prefix:    opts.Prefix,
		publicURL: publicURL,
		http:      http.DefaultClient,
	}, nil
}

func defaultPublicURL(bucket, region, endpoint string, pathStyle bool) string {
	if endpoint != "" {
		endpoint = strings.TrimRight(endpoint, "/")
		if pathStyle {
			return endpoint + "/" + bucket
		}
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			u.Host = bucket + "." + u.Host
			return u.String()
		}
		return endpoint + "/" + bucket
	}
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

func (s *S3Store) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("storage: s3 upload: %w", err)
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(localPath); err == nil {
		contentType = mt.String()
	}

	key := objectName(s.prefix, localPath)
	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: s3 upload: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

// Download reads s3://bucket/key URLs and URLs under the public URL
// through the S3 API; other URLs are fetched over HTTP.
func (s *S3Store) Download(ctx context.Context, rawURL, dir string) (string, error) {
	bucket, key, ok := s.objectFor(rawURL)
	if !ok {
		return Fetch(ctx, s.http, rawURL, dir)
	}

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("storage: s3 download: %w", err)
	}
	defer out.Body.Close()

	return saveBody(out.Body, dir, filepath.Ext(key), aws.ToString(out.ContentType))
}

func (s *S3Store) objectFor(rawURL string) (bucket, key string, ok bool) {
	if strings.HasPrefix(rawURL, s.publicURL+"/") {
		key = strings.TrimPrefix(rawURL, s.publicURL+"/")
		if key == "" {
			return "", "", false
		}
		return s.bucket, key, true
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}
