package store

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// The Redis backend stores the tree as one key per leaf: the full slash path
// maps to a JSON-encoded scalar. Subtree reads assemble the nested value
// back out of the prefix scan.

// flattenLeaves records every leaf under root into out as path -> encoded
// scalar. The value must already be normalized.
func flattenLeaves(root string, v interface{}, out map[string]string) error {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		for k, child := range m {
			if strings.Contains(k, "/") {
				return errors.Errorf("tree key %q contains a path separator", k)
			}
			if err := flattenLeaves(root+"/"+k, child, out); err != nil {
				return err
			}
		}
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode leaf at %s", root)
	}
	out[root] = string(raw)
	return nil
}

// assembleTree rebuilds the nested value at root from leaf entries whose
// keys are root itself or paths below it. Returns nil when leaves is empty.
func assembleTree(root string, leaves map[string]string) (Value, error) {
	if raw, ok := leaves[root]; ok && len(leaves) == 1 {
		return decodeLeaf(root, raw)
	}
	tree := make(map[string]interface{})
	prefix := root + "/"
	for key, raw := range leaves {
		if key == root {
			// A scalar directly at root alongside children should not happen;
			// children win, matching a branch overwrite.
			continue
		}
		rel := strings.TrimPrefix(key, prefix)
		if rel == key {
			return nil, errors.Errorf("leaf %s outside of subtree %s", key, root)
		}
		leaf, err := decodeLeaf(key, raw)
		if err != nil {
			return nil, err
		}
		segs := splitPath(rel)
		cur := tree
		for _, seg := range segs[:len(segs)-1] {
			child, ok := cur[seg].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				cur[seg] = child
			}
			cur = child
		}
		cur[segs[len(segs)-1]] = leaf
	}
	if len(tree) == 0 {
		return nil, nil
	}
	return tree, nil
}

func decodeLeaf(key, raw string) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, errors.Wrapf(err, "decode leaf at %s", key)
	}
	return v, nil
}
