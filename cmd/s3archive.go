package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// runArchiver keeps a copy of the output of each run
type runArchiver interface {
	store(ctx context.Context, key string, data []byte, contentType string) error
}

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Archiver struct {
	bucket string
	client s3PutAPI
}

func newS3Archiver(cfg S3Config) (*s3Archiver, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load aws config: %s", err.Error())
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Archiver{bucket: cfg.Bucket, client: client}, nil
}

func (a *s3Archiver) store(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

// runArchiveKey returns a unique key for run output: dom/<repo>/<yyyy>/<mm>/<dd>/<uuid>/<filename>
func runArchiveKey(repoID string, now time.Time, filename string) string {
	return path.Join("dom", repoID, now.Format("2006"), now.Format("01"), now.Format("02"), uuid.New().String(), filename)
}

// archiveOutput stores run output when an archive is configured. Failures do not fail the run.
func (r *domRun) archiveOutput(ctx context.Context, filename string, data []byte, contentType string) {
	if r.svc.Archiver == nil {
		return
	}
	key := runArchiveKey(r.RepoID, time.Now(), filename)
	r.info(fmt.Sprintf("Archive %s as %s", filename, key))
	if err := r.svc.Archiver.store(ctx, key, data, contentType); err != nil {
		log.Printf("ERROR: unable to archive %s: %s", key, err.Error())
		r.failure(fmt.Sprintf("Unable to archive %s: %s", filename, err.Error()))
	}
}
