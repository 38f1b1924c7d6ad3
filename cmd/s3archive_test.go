package main

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(params.Body)
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func TestRunArchiveKey(t *testing.T) {
	now := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	key := runArchiveKey("2", now, "activity_log.txt")
	bits := strings.Split(key, "/")
	require.Len(t, bits, 7)
	assert.Equal(t, []string{"dom", "2", "2024", "03", "05"}, bits[:5])
	_, err := uuid.Parse(bits[5])
	assert.NoError(t, err)
	assert.Equal(t, "activity_log.txt", bits[6])
	assert.NotEqual(t, key, runArchiveKey("2", now, "activity_log.txt"))
}

func TestArchiveRunOutput(t *testing.T) {
	fake := &fakeS3{}
	svc := &ServiceContext{Archiver: &s3Archiver{bucket: "dom-runs", client: fake}}
	run, err := svc.startRun("DigitalObjectManagerUpdate", "2", "batch.csv")
	require.NoError(t, err)
	run.archiveOutput(context.Background(), "activity_log.txt", []byte("line\n"), "text/plain")

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "dom-runs", aws.ToString(in.Bucket))
	assert.Equal(t, "text/plain", aws.ToString(in.ContentType))
	assert.True(t, strings.HasPrefix(aws.ToString(in.Key), "dom/2/"))
	assert.True(t, strings.HasSuffix(aws.ToString(in.Key), "/activity_log.txt"))
	assert.Equal(t, "line\n", fake.bodies[0])
	assert.Equal(t, 0, run.Failures)

	fake.err = assert.AnError
	run.archiveOutput(context.Background(), "activity_log.txt", []byte("line\n"), "text/plain")
	assert.Equal(t, 1, run.Failures)

	noArchive, err := (&ServiceContext{}).startRun("DigitalObjectManagerDownload", "2", "list.csv")
	require.NoError(t, err)
	noArchive.archiveOutput(context.Background(), "x", nil, "text/plain")
	assert.Equal(t, 0, noArchive.Failures)
}

func TestUpdateRouteArchivesActivityLog(t *testing.T) {
	fake := newFakeArchivesSpace()
	svc, router := newTestService(t, fake)
	s3Fake := &fakeS3{}
	svc.Archiver = &s3Archiver{bucket: "dom-runs", client: s3Fake}

	rec := serveUpload(t, router, "/dom/2/update", ",TU001,,,,,,,\n")
	require.Equal(t, 200, rec.Code)
	require.Len(t, s3Fake.bodies, 1)
	assert.Equal(t, rec.Body.String(), s3Fake.bodies[0])
}
