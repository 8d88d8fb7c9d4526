package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MemoryStore is an in-process TreeStore with the same contract as the Redis
// backend. It backs unit tests and local runs that don't want a live Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	root    map[string]interface{}
	subs    map[int]*memorySubscriber
	nextSub int
	nowFn   func() int64
}

type memorySubscriber struct {
	path string
	// wake has capacity one so writers can mark the subscriber dirty without
	// blocking; consecutive writes coalesce into a single re-read.
	wake chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		root:  make(map[string]interface{}),
		subs:  make(map[int]*memorySubscriber),
		nowFn: nowMillis,
	}
}

// SetClock overrides the server-timestamp source. Tests only.
func (s *MemoryStore) SetClock(fn func() int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

func (s *MemoryStore) Get(ctx context.Context, path string) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.getLocked(path)), nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, value interface{}) error {
	s.mu.Lock()
	norm, err := normalize(value, s.nowFn())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.setLocked(path, norm)
	s.mu.Unlock()

	s.notify(path)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	s.mu.Lock()
	now := s.nowFn()
	for k, v := range fields {
		child := joinPath(append(splitPath(path), k))
		if inc, ok := v.(IncrementValue); ok {
			prior, _ := toInt64(s.getLocked(child))
			s.setLocked(child, prior+inc.Delta)
			continue
		}
		norm, err := normalize(v, now)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.setLocked(child, norm)
	}
	s.mu.Unlock()

	s.notify(path)
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, path string, value interface{}) (string, error) {
	id := uuid.New().String()
	if err := s.Set(ctx, joinPath(append(splitPath(path), id)), value); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Remove(ctx context.Context, path string) error {
	return s.Set(ctx, path, nil)
}

func (s *MemoryStore) Transaction(ctx context.Context, path string, fn TxnFunc) error {
	// Single-writer store: run the whole read-modify-write under the lock.
	s.mu.Lock()
	current := deepCopy(s.getLocked(path))
	next, err := fn(current)
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "transaction aborted")
	}
	norm, err := normalize(next, s.nowFn())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.setLocked(path, norm)
	s.mu.Unlock()

	s.notify(path)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, path string) (<-chan Event, error) {
	sub := &memorySubscriber{path: path, wake: make(chan struct{}, 1)}
	// Prime one wake so the subscriber sees an initial snapshot.
	sub.wake <- struct{}{}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	s.mu.Unlock()

	out := make(chan Event)
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(out)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.wake:
			}
			val, _ := s.Get(ctx, path)
			select {
			case <-ctx.Done():
				return
			case out <- Event{Path: path, Value: val}:
			}
		}
	}()
	return out, nil
}

// notify marks every subscriber whose path overlaps the written one dirty.
func (s *MemoryStore) notify(path string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if !pathsOverlap(path, sub.path) {
			continue
		}
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

// getLocked descends the tree; callers hold at least the read lock.
func (s *MemoryStore) getLocked(path string) interface{} {
	var cur interface{} = s.root
	for _, seg := range splitPath(path) {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[seg]
	}
	if m, ok := cur.(map[string]interface{}); ok && len(m) == 0 {
		return nil
	}
	return cur
}

// setLocked writes a normalized value, creating intermediate branches and
// pruning branches emptied by a nil write.
func (s *MemoryStore) setLocked(path string, value interface{}) {
	segs := splitPath(path)
	if len(segs) == 0 {
		if m, ok := value.(map[string]interface{}); ok {
			s.root = m
		} else {
			s.root = make(map[string]interface{})
		}
		return
	}
	setIn(s.root, segs, value)
}

func setIn(m map[string]interface{}, segs []string, value interface{}) {
	key := segs[0]
	if len(segs) == 1 {
		if value == nil {
			delete(m, key)
		} else {
			m[key] = value
		}
		return
	}
	child, ok := m[key].(map[string]interface{})
	if !ok {
		if value == nil {
			return
		}
		child = make(map[string]interface{})
		m[key] = child
	}
	setIn(child, segs[1:], value)
	if len(child) == 0 {
		delete(m, key)
	}
}

func deepCopy(v interface{}) interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return v
	}
	out := make(map[string]interface{}, len(m))
	for k, child := range m {
		out[k] = deepCopy(child)
	}
	return out
}

func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float32:
		return int64(t), true
	case float64:
		return int64(t), true
	}
	return 0, false
}
