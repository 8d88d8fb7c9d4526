package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"

	"github.com/lumora-app/lumora/utils"
)

const (
	TestS3Bucket      = "lumora-dev-bucket"
	ProdS3ImageBucket = "lumora-image-uploads"
)

// S3ImageStore stores image blobs in S3 behind a CDN prefix. Keys follow
// {kind}/{userId}/{millis}_{name} so per-user content stays enumerable.
type S3ImageStore struct {
	bucket    string
	urlPrefix string
	uploader  *s3manager.Uploader
	svc       *s3.S3
	nowFn     func() time.Time
}

func NewS3ImageStore(bucket string, urlPrefix string) (*S3ImageStore, error) {
	// AWS client session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String("us-west-1"),
	})
	if err != nil {
		return nil, err
	}

	return &S3ImageStore{
		bucket:    bucket,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/") + "/",
		uploader:  s3manager.NewUploader(sess),
		svc:       s3.New(session.Must(sess, err)),
		nowFn:     time.Now,
	}, nil
}

func (s *S3ImageStore) key(userId string, kind ImageKind, fileName string) string {
	name, err := utils.TextToMd5Hash(fileName)
	if err != nil || name == "" {
		name = "image"
	}
	millis := s.nowFn().UnixNano() / int64(time.Millisecond)
	return fmt.Sprintf("%s/%s/%d_%s%s", kind, userId, millis, name, utils.GetUrlExtNameWithDot(fileName))
}

func (s *S3ImageStore) Upload(ctx context.Context, userId string, kind ImageKind, fileName string, body io.Reader) (string, error) {
	// Read through a limit so an oversized upload fails before hitting S3.
	data, err := ioutil.ReadAll(io.LimitReader(body, MaxUploadBytes+1))
	if err != nil {
		return "", errors.Wrap(err, "read upload body")
	}
	if len(data) > MaxUploadBytes {
		return "", errors.Errorf("image exceeds %d bytes", MaxUploadBytes)
	}

	key := s.key(userId, kind, fileName)
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		ACL:    aws.String("public-read"),
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", errors.Wrap(err, "upload image")
	}
	return s.urlPrefix + key, nil
}

func (s *S3ImageStore) DeleteByUrl(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.urlPrefix) {
		// Not ours: external avatars and seeded placeholders pass through.
		return nil
	}
	key := strings.TrimPrefix(url, s.urlPrefix)
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return errors.Wrap(err, "delete image")
}
