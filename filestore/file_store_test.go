package filestore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeImageStoreUploadAndDelete(t *testing.T) {
	f := NewFakeImageStore()
	ctx := context.Background()

	url, err := f.Upload(ctx, "u1", ImageKindPost, "pic.png", strings.NewReader("bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "fake://posts/u1/"))

	other, err := f.Upload(ctx, "u1", ImageKindPost, "pic.png", strings.NewReader("bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, url, other)

	require.NoError(t, f.DeleteByUrl(ctx, url))
	assert.Equal(t, []string{url}, f.Deleted)
}

func TestS3KeyLayout(t *testing.T) {
	s := &S3ImageStore{
		bucket:    TestS3Bucket,
		urlPrefix: "https://cdn.example.com/",
		nowFn:     func() time.Time { return time.Unix(1700000000, 0) },
	}

	key := s.key("u1", ImageKindStory, "sunset.jpg")
	assert.True(t, strings.HasPrefix(key, "stories/u1/1700000000000_"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	// Same file name yields the same hashed stem.
	assert.Equal(t, key, s.key("u1", ImageKindStory, "sunset.jpg"))
}

func TestS3DeleteIgnoresForeignUrls(t *testing.T) {
	s := &S3ImageStore{
		bucket:    TestS3Bucket,
		urlPrefix: "https://cdn.example.com/",
	}
	// Foreign prefixes are passed through without touching the bucket; svc is
	// nil here, so reaching S3 would panic.
	assert.NoError(t, s.DeleteByUrl(context.Background(), "https://picsum.photos/seed/u1/100/100"))
}
