package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetSubtree(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "users/u1", map[string]interface{}{
		"name":      "Jane",
		"followers": 0,
	}))
	require.NoError(t, s.Set(ctx, "users/u2", map[string]interface{}{
		"name": "John",
	}))

	val, err := s.Get(ctx, "users/u1")
	require.NoError(t, err)
	record := val.(map[string]interface{})
	assert.Equal(t, "Jane", record["name"])

	all, err := s.Get(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, 2, len(all.(map[string]interface{})))

	missing, err := s.Get(ctx, "users/u3")
	require.NoError(t, err)
	assert.False(t, Exists(missing))
}

func TestUpdateMergesWithoutTouchingSiblings(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "users/u1", map[string]interface{}{
		"name": "Jane",
		"bio":  "Just joined!",
	}))
	require.NoError(t, s.Update(ctx, "users/u1", map[string]interface{}{
		"bio": "hello",
	}))

	val, _ := s.Get(ctx, "users/u1")
	record := val.(map[string]interface{})
	assert.Equal(t, "Jane", record["name"])
	assert.Equal(t, "hello", record["bio"])
}

func TestUpdateIncrementDefaultsMissingToZero(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "user-conversations/u1/c1", map[string]interface{}{
		"participantId": "u2",
	}))
	require.NoError(t, s.Update(ctx, "user-conversations/u1/c1", map[string]interface{}{
		"unreadCount": Increment(1),
	}))
	require.NoError(t, s.Update(ctx, "user-conversations/u1/c1", map[string]interface{}{
		"unreadCount": Increment(1),
	}))

	val, _ := s.Get(ctx, "user-conversations/u1/c1")
	record := val.(map[string]interface{})
	count, ok := toInt64(record["unreadCount"])
	require.True(t, ok)
	assert.Equal(t, int64(2), count)
}

func TestServerTimestampResolves(t *testing.T) {
	s := NewMemoryStore()
	s.SetClock(func() int64 { return 12345 })
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "stories/u1/s1", map[string]interface{}{
		"image":     "img",
		"createdAt": ServerTimestamp,
	}))

	val, _ := s.Get(ctx, "stories/u1/s1")
	record := val.(map[string]interface{})
	created, ok := toInt64(record["createdAt"])
	require.True(t, ok)
	assert.Equal(t, int64(12345), created)
}

func TestRemoveDeletesSubtreeAndPrunes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "comments/p1/c1", map[string]interface{}{"text": "a"}))
	require.NoError(t, s.Set(ctx, "comments/p1/c2", map[string]interface{}{"text": "b"}))
	require.NoError(t, s.Remove(ctx, "comments/p1"))

	val, _ := s.Get(ctx, "comments/p1")
	assert.False(t, Exists(val))
	root, _ := s.Get(ctx, "comments")
	assert.False(t, Exists(root))
}

func TestPushCreatesDistinctChildren(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id1, err := s.Push(ctx, "messages/c1", map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	id2, err := s.Push(ctx, "messages/c1", map[string]interface{}{"text": "yo"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	val, _ := s.Get(ctx, "messages/c1")
	assert.Equal(t, 2, len(val.(map[string]interface{})))
}

func TestTransactionReadModifyWrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "posts/p1", map[string]interface{}{"likes": 4}))
	err := s.Transaction(ctx, "posts/p1", func(current Value) (Value, error) {
		record := current.(map[string]interface{})
		prior, _ := toInt64(record["likes"])
		record["likes"] = prior + 1
		return record, nil
	})
	require.NoError(t, err)

	val, _ := s.Get(ctx, "posts/p1")
	likes, _ := toInt64(val.(map[string]interface{})["likes"])
	assert.Equal(t, int64(5), likes)
}

func TestTransactionAbortLeavesValueUntouched(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "posts/p1", map[string]interface{}{"likes": 4}))
	err := s.Transaction(ctx, "posts/p1", func(current Value) (Value, error) {
		return nil, assert.AnError
	})
	require.Error(t, err)

	val, _ := s.Get(ctx, "posts/p1")
	likes, _ := toInt64(val.(map[string]interface{})["likes"])
	assert.Equal(t, int64(4), likes)
}

func TestSubscribeDeliversInitialAndOnChange(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Set(ctx, "posts/p1", map[string]interface{}{"content": "one"}))

	ch, err := s.Subscribe(ctx, "posts")
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, 1, len(first.Value.(map[string]interface{})))

	require.NoError(t, s.Set(ctx, "posts/p2", map[string]interface{}{"content": "two"}))
	waitForValue(t, ch, func(v Value) bool {
		m, ok := v.(map[string]interface{})
		return ok && len(m) == 2
	})
}

func TestSubscribeSeesAncestorOverwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Set(ctx, "conversations/c1/lastMessage", map[string]interface{}{"text": "hi"}))
	ch, err := s.Subscribe(ctx, "conversations/c1/lastMessage")
	require.NoError(t, err)
	<-ch

	// Replacing the whole conversation record must wake the nested listener.
	require.NoError(t, s.Set(ctx, "conversations/c1", map[string]interface{}{
		"lastMessage": map[string]interface{}{"text": "bye"},
	}))
	waitForValue(t, ch, func(v Value) bool {
		m, ok := v.(map[string]interface{})
		return ok && m["text"] == "bye"
	})
}

func TestGetReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "users/u1", map[string]interface{}{"name": "Jane"}))
	val, _ := s.Get(ctx, "users/u1")
	val.(map[string]interface{})["name"] = "mutated"

	again, _ := s.Get(ctx, "users/u1")
	assert.Equal(t, "Jane", again.(map[string]interface{})["name"])
}

func TestPathsOverlap(t *testing.T) {
	assert.True(t, pathsOverlap("users", "users/u1"))
	assert.True(t, pathsOverlap("users/u1", "users"))
	assert.True(t, pathsOverlap("users/u1", "users/u1"))
	assert.False(t, pathsOverlap("users/u1", "users/u2"))
	assert.False(t, pathsOverlap("posts", "users"))
}

func TestDecodeWeaklyTyped(t *testing.T) {
	type record struct {
		Name  string `json:"name"`
		Likes int64  `json:"likes"`
	}
	var out record
	require.NoError(t, Decode(map[string]interface{}{
		"name":  "Jane",
		"likes": float64(3),
	}, &out))
	if diff := cmp.Diff(record{Name: "Jane", Likes: 3}, out); diff != "" {
		t.Errorf("unexpected decode result (-want +got):\n%s", diff)
	}
}

// waitForValue drains events until one satisfies pred, failing after a
// second of silence.
func waitForValue(t *testing.T, ch <-chan Event, pred func(Value) bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-ch:
			if pred(ev.Value) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for subscription event")
		}
	}
}
