package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/debemdeboas/blockpress/internal/model"
)

type S3Options struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	Prefix          string
	UsePathStyle    bool
}

// S3Archive writes every published post as a JSON object under Prefix.
type S3Archive struct { // implements Archiver
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Archive(ctx context.Context, opts S3Options) (*S3Archive, error) {
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
		// S3-compatible stores do not all accept the newer default checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &S3Archive{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

func (a *S3Archive) Key(id model.PostID) string {
	return path.Join(a.prefix, string(id)+".json")
}

func (a *S3Archive) Archive(ctx context.Context, post *model.Post) error {
	body, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("error encoding post: %w", err)
	}

	key := a.Key(post.ID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"title":        post.Title,
			"content-hash": post.ContentHash,
		},
	})
	if err != nil {
		return fmt.Errorf("error archiving post %s: %w", post.ID, err)
	}

	repoLogger.Info().Str("post_id", string(post.ID)).Str("key", key).Msg("Post archived")
	return nil
}
