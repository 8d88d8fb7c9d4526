package projector

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/lumora-app/lumora/model"
	"github.com/lumora-app/lumora/store"
)

const userJoinCacheSize = 512

// userJoiner resolves user ids into full records. Joins are read-through on
// a per-session LRU; every user-directory emission purges the cache, so a
// profile edit is never served stale past the next directory event.
type userJoiner struct {
	store store.TreeStore
	cache *lru.Cache
}

func newUserJoiner(s store.TreeStore) (*userJoiner, error) {
	cache, err := lru.New(userJoinCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "build user join cache")
	}
	return &userJoiner{store: s, cache: cache}, nil
}

// User resolves a user id, returning a zero-name record when the user is
// missing so callers can skip incomplete joins the way the UI expects.
func (j *userJoiner) User(ctx context.Context, id string) (model.User, error) {
	if cached, ok := j.cache.Get(id); ok {
		return cached.(model.User), nil
	}
	val, err := j.store.Get(ctx, fmt.Sprintf("users/%s", id))
	if err != nil {
		return model.User{}, errors.Wrapf(err, "join user %s", id)
	}
	user, err := decodeUser(id, val)
	if err != nil {
		return model.User{}, err
	}
	if user.Name != "" {
		j.cache.Add(id, user)
	}
	return user, nil
}

func (j *userJoiner) Purge() {
	j.cache.Purge()
}

func decodeUser(id string, val store.Value) (model.User, error) {
	var user model.User
	if !store.Exists(val) {
		return model.User{Id: id}, nil
	}
	if err := store.Decode(val, &user); err != nil {
		return model.User{}, errors.Wrapf(err, "decode user %s", id)
	}
	user.Id = id
	return user, nil
}

// branchKeys returns the child keys of a branch snapshot in sorted order,
// for deterministic iteration over directory-style values.
func branchKeys(val store.Value) []string {
	m, ok := val.(map[string]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func branchChild(val store.Value, key string) store.Value {
	m, ok := val.(map[string]interface{})
	if !ok {
		return nil
	}
	return m[key]
}
