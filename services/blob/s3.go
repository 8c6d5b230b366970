package blobsvc

import (
	"bytes"
	"context"
	"io"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
)

// S3Store keeps blobs in an S3 (or S3 compatible) bucket.
type S3Store struct {
	client s3iface.S3API
	bucket string
}

var _ core.BlobStore = (*S3Store)(nil) // interface compliance check

func NewS3Store(conf *core.Config) (*S3Store, error) {
	s3Conf := conf.Storage.S3
	awsConf := &aws.Config{
		Region:           aws.String(s3Conf.Region),
		DisableSSL:       aws.Bool(!s3Conf.UseSSL),
		S3ForcePathStyle: aws.Bool(true),
	}
	if s3Conf.Endpoint != "" {
		awsConf.Endpoint = aws.String(s3Conf.Endpoint)
	}
	if s3Conf.AccessKey != "" {
		awsConf.Credentials = credentials.NewStaticCredentials(s3Conf.AccessKey, s3Conf.SecretKey, "")
	}

	sess, err := session.NewSession(awsConf)
	if err != nil {
		return nil, errors.Wrap(err, "creating S3 session")
	}
	return NewS3StoreWithClient(s3.New(sess), s3Conf.Bucket), nil
}

func NewS3StoreWithClient(client s3iface.S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// Upload buffers data so that the SDK can sign and retry it. Import files are size limited.
func (s *S3Store) Upload(ctx context.Context, key string, data io.Reader) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return errors.Wrap(err, "reading blob")
	}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf),
	})
	return errors.Wrapf(err, "uploading %s", key)
}

func (s *S3Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, core.ErrBlobNotFound
		}
		return nil, errors.Wrapf(err, "downloading %s", key)
	}
	return out.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrapf(err, "deleting %s", key)
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "checking %s", key)
	}
	return true, nil
}

// NewStore returns the blob store of conf.Storage.Driver.
func NewStore(conf *core.Config) (core.BlobStore, error) {
	switch conf.Storage.Driver {
	case "s3":
		return NewS3Store(conf)
	case "", "local":
		return NewLocalStore(conf.Storage.LocalDir)
	default:
		return nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
}

// ImportKey is the key an import file is archived under.
func ImportKey(jobID, filename string) string {
	return "imports/" + jobID + "/" + filepath.Base(filename)
}
