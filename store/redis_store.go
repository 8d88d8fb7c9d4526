package store

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// Every tree leaf lives at treeKeyPrefix + its slash path.
	treeKeyPrefix = "tree:"
	// Writes announce themselves on treeChannelPrefix + the write root path.
	treeChannelPrefix = "treech:"

	maxTxnRetries = 10
)

// RedisStore implements TreeStore on a Redis server: leaf keys for state,
// pub/sub for change notification, WATCH/MULTI for optimistic transactions.
type RedisStore struct {
	inner *redis.Client
	nowFn func() int64
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{inner: client, nowFn: nowMillis}
}

// GetRedisStore builds a store from REDIS_HOST / REDIS_PORT / REDIS_PASSWD
// and verifies connectivity.
func GetRedisStore(ctx context.Context) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWD"),
		DB:       0, // use default DB
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return NewRedisStore(client), nil
}

func leafKey(path string) string {
	return treeKeyPrefix + joinPath(splitPath(path))
}

func changeChannel(path string) string {
	return treeChannelPrefix + joinPath(splitPath(path))
}

// subtreeKeys lists the leaf keys at or below path.
func (s *RedisStore) subtreeKeys(ctx context.Context, path string) ([]string, error) {
	keys := []string{}
	root := leafKey(path)
	if n, err := s.inner.Exists(ctx, root).Result(); err != nil {
		return nil, errors.Wrap(err, "scan subtree")
	} else if n > 0 {
		keys = append(keys, root)
	}
	iter := s.inner.Scan(ctx, 0, root+"/*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scan subtree")
	}
	return keys, nil
}

func (s *RedisStore) readSubtree(ctx context.Context, path string) (Value, error) {
	keys, err := s.subtreeKeys(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	raws, err := s.inner.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read subtree")
	}
	leaves := make(map[string]string, len(keys))
	for i, key := range keys {
		raw, ok := raws[i].(string)
		if !ok {
			continue // deleted between scan and read
		}
		leaves[key[len(treeKeyPrefix):]] = raw
	}
	return assembleTree(joinPath(splitPath(path)), leaves)
}

func (s *RedisStore) Get(ctx context.Context, path string) (Value, error) {
	return s.readSubtree(ctx, path)
}

func (s *RedisStore) Set(ctx context.Context, path string, value interface{}) error {
	norm, err := normalize(value, s.nowFn())
	if err != nil {
		return err
	}
	leaves := map[string]string{}
	if norm != nil {
		if err := flattenLeaves(joinPath(splitPath(path)), norm, leaves); err != nil {
			return err
		}
	}
	old, err := s.subtreeKeys(ctx, path)
	if err != nil {
		return err
	}
	if _, err := s.inner.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(old) > 0 {
			pipe.Del(ctx, old...)
		}
		for p, raw := range leaves {
			pipe.Set(ctx, treeKeyPrefix+p, raw, 0)
		}
		return nil
	}); err != nil {
		return errors.Wrapf(err, "set %s", path)
	}
	return s.publish(ctx, path)
}

func (s *RedisStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	now := s.nowFn()
	root := splitPath(path)

	// Pre-compute the replaced subtrees and the increment targets so the
	// WATCH set is known before entering the transaction.
	sets := map[string]string{}
	increments := map[string]int64{}
	cleared := []string{}
	for k, v := range fields {
		child := joinPath(append(root, k))
		if inc, ok := v.(IncrementValue); ok {
			increments[leafKey(child)] = inc.Delta
			continue
		}
		norm, err := normalize(v, now)
		if err != nil {
			return err
		}
		cleared = append(cleared, child)
		if norm != nil {
			if err := flattenLeaves(child, norm, sets); err != nil {
				return err
			}
		}
	}

	txn := func(tx *redis.Tx) error {
		resolved := map[string]string{}
		for key, delta := range increments {
			prior := int64(0)
			raw, err := tx.Get(ctx, key).Result()
			if err != nil && err != redis.Nil {
				return errors.Wrap(err, "read increment target")
			}
			if err == nil {
				leaf, decErr := decodeLeaf(key, raw)
				if decErr != nil {
					return decErr
				}
				prior, _ = toInt64(leaf)
			}
			enc := fmt.Sprintf("%d", prior+delta)
			resolved[key] = enc
		}
		oldKeys := []string{}
		for _, child := range cleared {
			keys, err := s.subtreeKeys(ctx, child)
			if err != nil {
				return err
			}
			oldKeys = append(oldKeys, keys...)
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(oldKeys) > 0 {
				pipe.Del(ctx, oldKeys...)
			}
			for p, raw := range sets {
				pipe.Set(ctx, treeKeyPrefix+p, raw, 0)
			}
			for key, raw := range resolved {
				pipe.Set(ctx, key, raw, 0)
			}
			return nil
		})
		return err
	}

	watched := []string{}
	for key := range increments {
		watched = append(watched, key)
	}
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = s.inner.Watch(ctx, txn, watched...)
		if err != redis.TxFailedErr {
			break
		}
	}
	if err != nil {
		return errors.Wrapf(err, "update %s", path)
	}
	return s.publish(ctx, path)
}

func (s *RedisStore) Push(ctx context.Context, path string, value interface{}) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, joinPath(append(splitPath(path), id)), value); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Remove(ctx context.Context, path string) error {
	return s.Set(ctx, path, nil)
}

func (s *RedisStore) Transaction(ctx context.Context, path string, fn TxnFunc) error {
	txn := func(tx *redis.Tx) error {
		current, err := s.readSubtree(ctx, path)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return errors.Wrap(err, "transaction aborted")
		}
		norm, err := normalize(next, s.nowFn())
		if err != nil {
			return err
		}
		leaves := map[string]string{}
		if norm != nil {
			if err := flattenLeaves(joinPath(splitPath(path)), norm, leaves); err != nil {
				return err
			}
		}
		old, err := s.subtreeKeys(ctx, path)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(old) > 0 {
				pipe.Del(ctx, old...)
			}
			for p, raw := range leaves {
				pipe.Set(ctx, treeKeyPrefix+p, raw, 0)
			}
			return nil
		})
		return err
	}

	watched, err := s.subtreeKeys(ctx, path)
	if err != nil {
		return err
	}
	for i := 0; i < maxTxnRetries; i++ {
		err = s.inner.Watch(ctx, txn, watched...)
		if err != redis.TxFailedErr {
			break
		}
		// Contention: the watched set may have changed shape, rebuild it.
		if watched, err = s.subtreeKeys(ctx, path); err != nil {
			return err
		}
		err = redis.TxFailedErr
	}
	if err != nil {
		return errors.Wrapf(err, "transaction at %s", path)
	}
	return s.publish(ctx, path)
}

// publish announces a committed write at path.
func (s *RedisStore) publish(ctx context.Context, path string) error {
	return errors.Wrap(s.inner.Publish(ctx, changeChannel(path), "1").Err(), "publish change")
}

func (s *RedisStore) Subscribe(ctx context.Context, path string) (<-chan Event, error) {
	clean := joinPath(splitPath(path))

	// A write anywhere at, below, or above the path must wake us: listen on
	// the path itself, everything under it, and every proper ancestor.
	patterns := []string{changeChannel(clean), changeChannel(clean) + "/*"}
	segs := splitPath(clean)
	for i := 1; i < len(segs); i++ {
		patterns = append(patterns, changeChannel(joinPath(segs[:i])))
	}

	pubsub := s.inner.PSubscribe(ctx, patterns...)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, errors.Wrapf(err, "subscribe %s", clean)
	}
	msgs := pubsub.Channel()

	out := make(chan Event)
	go func() {
		defer func() {
			pubsub.Close()
			close(out)
		}()
		emit := func() bool {
			val, err := s.readSubtree(ctx, clean)
			if err != nil {
				// Keep the subscription alive; the next write retries.
				return true
			}
			select {
			case <-ctx.Done():
				return false
			case out <- Event{Path: clean, Value: val}:
				return true
			}
		}
		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				// Coalesce bursts into one re-read.
				drained := false
				for !drained {
					select {
					case _, ok := <-msgs:
						if !ok {
							return
						}
					default:
						drained = true
					}
				}
				if !emit() {
					return
				}
			}
		}
	}()
	return out, nil
}
