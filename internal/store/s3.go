package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Options struct {
	Endpoint        string // host:port of an S3-compatible server; empty for AWS
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	UseSSL          bool
}

// S3Backend keeps each document as one JSON object in a bucket.
type S3Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      *slog.Logger
}

func NewS3Backend(ctx context.Context, opts S3Options, log *slog.Logger) (*S3Backend, error) {
	if opts.Bucket == "" || opts.Region == "" {
		return nil, errors.New("s3 store: bucket and region must be set")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			scheme := "http://"
			if opts.UseSSL {
				scheme = "https://"
			}
			o.BaseEndpoint = aws.String(scheme + opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	b := &S3Backend{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
		prefix:   opts.Prefix,
		log:      log,
	}
	if err := b.ensureBucket(ctx, opts.Region); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *S3Backend) ensureBucket(ctx context.Context, region string) error {
	headCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := b.client.HeadBucket(headCtx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)}); err == nil {
		return nil
	}

	b.log.Info("bucket not found, creating", "bucket", b.bucket)
	in := &s3.CreateBucketInput{Bucket: aws.String(b.bucket)}
	if region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := b.client.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("create bucket %s: %w", b.bucket, err)
	}
	waiter := s3.NewBucketExistsWaiter(b.client)
	if err := waiter.Wait(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)}, 30*time.Second); err != nil {
		return fmt.Errorf("wait for bucket %s: %w", b.bucket, err)
	}
	return nil
}

func (b *S3Backend) key(name string) string { return path.Join(b.prefix, name+".json") }

func (b *S3Backend) Load(ctx context.Context, name string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Commit uploads documents one by one. S3 has no multi-object transaction,
// so on failure the objects already replaced are restored (or removed when
// they did not exist before).
func (b *S3Backend) Commit(ctx context.Context, docs map[string][]byte) error {
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	prev := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := b.Load(ctx, name)
		switch {
		case errors.Is(err, ErrNotExist):
			prev[name] = nil
		case err != nil:
			return err
		default:
			prev[name] = data
		}
	}

	for i, name := range names {
		if err := b.put(ctx, name, docs[name]); err != nil {
			b.compensate(ctx, names[:i], prev)
			return err
		}
	}
	return nil
}

func (b *S3Backend) put(ctx context.Context, name string, data []byte) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

func (b *S3Backend) compensate(ctx context.Context, names []string, prev map[string][]byte) {
	ctx = context.WithoutCancel(ctx)
	for _, name := range names {
		var err error
		if prev[name] == nil {
			_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(b.bucket),
				Key:    aws.String(b.key(name)),
			})
		} else {
			err = b.put(ctx, name, prev[name])
		}
		if err != nil {
			b.log.Error("s3 rollback failed", "document", name, "err", err)
		}
	}
}
