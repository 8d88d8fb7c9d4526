package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Value is a decoded tree snapshot: nil when the path holds nothing,
// map[string]interface{} for branches, and string/bool/number for leaves.
type Value = interface{}

// Event is one value-snapshot emission for a subscribed path. Every event
// carries the full current value at the path, not a delta.
type Event struct {
	Path  string
	Value Value
}

// TxnFunc receives the current value at the transaction path and returns the
// value to commit. Returning the current value unchanged is allowed. An error
// aborts the transaction without writing.
type TxnFunc func(current Value) (Value, error)

/*

TreeStore is a path-addressed hierarchical realtime store.

Paths are slash-separated key sequences ("users/u1", "comments/p1/c2").
Writing nil at a path removes the subtree, like Remove. Subscribe delivers an
initial snapshot, then a fresh snapshot whenever anything at, below, or above
the path changes; emissions coalesce under load so the final event always
reflects the latest committed value. Cancel the context to tear the
subscription down.

Update merges fields into the branch at path without touching siblings, and
resolves Increment sentinels against the prior field value atomically.
Transaction runs an optimistic read-modify-write against the subtree at path.
*/
type TreeStore interface {
	Get(ctx context.Context, path string) (Value, error)
	Set(ctx context.Context, path string, value interface{}) error
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Push(ctx context.Context, path string, value interface{}) (string, error)
	Remove(ctx context.Context, path string) error
	Transaction(ctx context.Context, path string, fn TxnFunc) error
	Subscribe(ctx context.Context, path string) (<-chan Event, error)
}

// ServerTimestamp is a write sentinel replaced with the store's clock (epoch
// millis) at commit time. Valid anywhere inside a written value.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// Increment returns a write sentinel resolved to prior+delta at commit time,
// treating a missing prior value as zero. Only valid as a top-level field
// value in Update.
func Increment(delta int64) IncrementValue {
	return IncrementValue{Delta: delta}
}

type IncrementValue struct {
	Delta int64
}

// Exists reports whether a snapshot holds a value.
func Exists(v Value) bool {
	return v != nil
}

// Decode maps a loosely-typed snapshot onto a struct using its json tags.
// Numeric leaves may arrive as int64 or float64 depending on the backend, so
// decoding is weakly typed.
func Decode(v Value, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "build snapshot decoder")
	}
	return errors.Wrap(dec.Decode(v), "decode snapshot")
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// normalize converts an arbitrary write payload into tree form
// (maps/scalars), resolving ServerTimestamp sentinels against now. Structs
// go through a JSON round-trip, which is also why sentinels must live in
// map values, never struct fields.
func normalize(v interface{}, now int64) (interface{}, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case serverTimestamp:
		return now, nil
	case IncrementValue:
		return nil, errors.New("increment sentinel outside of update fields")
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			norm, err := normalize(child, now)
			if err != nil {
				return nil, err
			}
			if norm == nil {
				continue
			}
			out[k] = norm
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil
	case string, bool, int, int32, int64, float32, float64:
		return t, nil
	default:
		// Structs and everything else: flatten through JSON.
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, errors.Wrap(err, "normalize write payload")
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, errors.Wrap(err, "normalize write payload")
		}
		if m, ok := generic.(map[string]interface{}); ok {
			return normalize(m, now)
		}
		return generic, nil
	}
}

// splitPath breaks a slash path into its segments, dropping empty ones.
func splitPath(path string) []string {
	parts := []string{}
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func joinPath(parts []string) string {
	return strings.Join(parts, "/")
}

// pathsOverlap reports whether one path is equal to or an ancestor of the
// other, i.e. a write at one is observable from a subscription at the other.
func pathsOverlap(a, b string) bool {
	as, bs := splitPath(a), splitPath(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
