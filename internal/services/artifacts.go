package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ArtifactAPI is the S3 subset the artifact store uses.
type ArtifactAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ArtifactStore keeps an immutable snapshot of every release (template
// body plus parameter files) under {stack}/{ksuid}/ so promotions
// redeploy the exact bytes that shipped.
type ArtifactStore struct {
	client ArtifactAPI
	bucket string
}

const (
	ArtifactTemplateName = "cloudformation.template"
	ArtifactParamsName   = "cloudformation-params.json"
)

func NewArtifactStore(client ArtifactAPI, bucket string) *ArtifactStore {
	return &ArtifactStore{
		client: client,
		bucket: bucket,
	}
}

// Bucket returns the backing bucket name.
func (a *ArtifactStore) Bucket() string {
	return a.bucket
}

// ReleasePrefix returns the S3 key prefix for one release snapshot.
func ReleasePrefix(stack, sk string) string {
	return fmt.Sprintf("%s/%s", stack, sk)
}

// Put uploads one artifact under the release prefix.
func (a *ArtifactStore) Put(ctx context.Context, prefix, name, body string) (err error) {
	logger := zerolog.Ctx(ctx)
	key := strings.TrimRight(prefix, "/") + "/" + name

	defer func(begin time.Time) {
		logger.Info().
			Interface("error", err).
			Str("bucket", a.bucket).
			Str("key", key).
			Int("length", len(body)).
			Dur("duration", time.Since(begin)).
			Msg("Uploaded artifact")
	}(time.Now())

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s to bucket %s: %w", key, a.bucket, err)
	}
	return nil
}

// Get downloads one artifact from the release prefix.
func (a *ArtifactStore) Get(ctx context.Context, prefix, name string) (body string, err error) {
	logger := zerolog.Ctx(ctx)
	key := strings.TrimRight(prefix, "/") + "/" + name

	defer func(begin time.Time) {
		logger.Info().
			Interface("error", err).
			Str("bucket", a.bucket).
			Str("key", key).
			Int("length", len(body)).
			Dur("duration", time.Since(begin)).
			Msg("Downloaded artifact")
	}(time.Now())

	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get object %s from bucket %s: %w", key, a.bucket, err)
	}
	//goland:noinspection GoUnhandledErrorResult
	defer result.Body.Close()

	content, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read object content: %w", err)
	}
	return string(content), nil
}

// URL returns the https URL CloudFormation accepts as TemplateURL.
func (a *ArtifactStore) URL(prefix, name string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s/%s", a.bucket, strings.TrimRight(prefix, "/"), name)
}
