package filestore

import (
	"context"
	"io"
)

// ImageKind selects the blob path family an upload lands under.
type ImageKind string

const (
	ImageKindPost   ImageKind = "posts"
	ImageKindStory  ImageKind = "stories"
	ImageKindAvatar ImageKind = "avatars"
)

// MaxUploadBytes bounds a single image upload. The original client
// compresses to about 1MB; this is the hard server-agnostic ceiling.
const MaxUploadBytes = 5 << 20

// ImageStore is the blob storage boundary: upload by path returning a
// retrievable url, delete by that url. Urls outside the store's own prefix
// are silently ignored on delete.
type ImageStore interface {
	Upload(ctx context.Context, userId string, kind ImageKind, fileName string, body io.Reader) (url string, err error)
	DeleteByUrl(ctx context.Context, url string) error
}
