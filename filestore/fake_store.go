package filestore

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"sync"
)

// FakeImageStore keeps uploads in memory. Tests assert against Deleted to
// verify blob cleanup paths.
type FakeImageStore struct {
	mu      sync.Mutex
	nextId  int
	blobs   map[string][]byte
	Deleted []string
}

func NewFakeImageStore() *FakeImageStore {
	return &FakeImageStore{blobs: make(map[string][]byte)}
}

func (f *FakeImageStore) Upload(ctx context.Context, userId string, kind ImageKind, fileName string, body io.Reader) (string, error) {
	data, err := ioutil.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextId++
	url := fmt.Sprintf("fake://%s/%s/%d_%s", kind, userId, f.nextId, fileName)
	f.blobs[url] = data
	return url, nil
}

func (f *FakeImageStore) DeleteByUrl(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, url)
	f.Deleted = append(f.Deleted, url)
	return nil
}
