package repository

import (
	"context"
	"errors"
	"fmt"

	"live-auction/internal/biddingerrors"

	"github.com/goccy/go-json"
)

// GetJSON decodes the value at path into dst. It reports false, without error,
// when the path is absent.
func GetJSON(ctx context.Context, db RealtimeDB, path string, dst any) (bool, error) {
	raw, err := db.Get(ctx, path)
	if errors.Is(err, biddingerrors.ErrPathNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// SetJSON encodes v and writes it to path unconditionally
func SetJSON(ctx context.Context, db RealtimeDB, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return db.Set(ctx, path, raw)
}

// PushJSON encodes v and appends it under prefix
func PushJSON(ctx context.Context, db RealtimeDB, prefix string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", prefix, err)
	}
	return db.Push(ctx, prefix, raw)
}

// UpdateJSON runs a typed compare-and-apply on path. fn receives the decoded
// current value and whether it existed; returning an error aborts the write.
func UpdateJSON[T any](ctx context.Context, db RealtimeDB, path string, fn func(current T, exists bool) (T, error)) (T, error) {
	var committed T
	raw, err := db.Update(ctx, path, func(cur []byte) ([]byte, error) {
		var v T
		exists := cur != nil
		if exists {
			if err := json.Unmarshal(cur, &v); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
		next, err := fn(v, exists)
		if err != nil {
			return nil, err
		}
		return json.Marshal(next)
	})
	if err != nil {
		return committed, err
	}
	if err := json.Unmarshal(raw, &committed); err != nil {
		return committed, fmt.Errorf("decode %s: %w", path, err)
	}
	return committed, nil
}

// ChildrenJSON decodes every child of prefix, in key order. Children that fail
// to decode are skipped.
func ChildrenJSON[T any](ctx context.Context, db RealtimeDB, prefix string) ([]string, []T, error) {
	children, err := db.Children(ctx, prefix)
	if err != nil {
		return nil, nil, err
	}
	keys := make([]string, 0, len(children))
	values := make([]T, 0, len(children))
	for _, c := range children {
		var v T
		if err := json.Unmarshal(c.Value, &v); err != nil {
			continue
		}
		keys = append(keys, c.Key)
		values = append(values, v)
	}
	return keys, values, nil
}

// childrenObject renders children as one JSON object, the shape a subscriber
// of a collection path receives
func childrenObject(children []Child) ([]byte, error) {
	if len(children) == 0 {
		return nil, nil
	}
	obj := make(map[string]json.RawMessage, len(children))
	for _, c := range children {
		obj[c.Key] = c.Value
	}
	return json.Marshal(obj)
}
