package blobsvc

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := ImportKey("job-1", "/tmp/uploads/grades.jsonl")
	assert.Equal(t, "imports/job-1/grades.jsonl", key)

	ok, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Download(ctx, key)
	assert.Equal(t, core.ErrBlobNotFound, err)

	require.NoError(t, store.Upload(ctx, key, strings.NewReader("line 1\n")))
	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Download(ctx, key)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "line 1\n", string(b))

	// keys stay under the root
	require.NoError(t, store.Upload(ctx, "../../escape.txt", strings.NewReader("x")))
	ok, err = store.Exists(ctx, "escape.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")
	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, store.Upload(ctx, "", strings.NewReader("x")))
}

func TestLocalStore_CanceledUpload(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Upload(ctx, "imports/x/a.jsonl", strings.NewReader("data")))

	ok, err := store.Exists(context.Background(), "imports/x/a.jsonl")
	require.NoError(t, err)
	assert.False(t, ok, "a failed upload leaves nothing behind")
}

// fakeS3 keeps objects in a map.
type fakeS3 struct {
	s3iface.S3API
	objects map[string]string
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	v, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(v))}, nil
}

func (f *fakeS3) HeadObjectWithContext(_ aws.Context, in *s3.HeadObjectInput, _ ...request.Option) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, awserr.New("NotFound", "not found", nil)
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: map[string]string{}}
	store := NewS3StoreWithClient(client, "alef-imports")

	require.NoError(t, store.Upload(ctx, "imports/j/a.jsonl", strings.NewReader("{}")))
	assert.Equal(t, "{}", client.objects["alef-imports/imports/j/a.jsonl"])

	ok, err := store.Exists(ctx, "imports/j/a.jsonl")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Download(ctx, "imports/j/a.jsonl")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "{}", string(b))

	require.NoError(t, store.Delete(ctx, "imports/j/a.jsonl"))
	ok, err = store.Exists(ctx, "imports/j/a.jsonl")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Download(ctx, "imports/j/a.jsonl")
	assert.True(t, core.IsNotFound(err))
}

func TestNewStore(t *testing.T) {
	conf := &core.Config{}
	conf.Storage.Driver = "ftp"
	_, err := NewStore(conf)
	assert.Error(t, err)

	conf.Storage.Driver = "local"
	conf.Storage.LocalDir = t.TempDir()
	store, err := NewStore(conf)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
}
