// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

// Deref returns the pointed-to value or the zero value
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// UniqueUints drops zero and duplicate ids, keeping first-seen order
func UniqueUints(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// IntersectUints returns the members of requested that also appear in allowed
func IntersectUints(requested, allowed []uint) []uint {
	allow := make(map[uint]struct{}, len(allowed))
	for _, id := range allowed {
		allow[id] = struct{}{}
	}
	out := make([]uint, 0, len(requested))
	for _, id := range UniqueUints(requested) {
		if _, ok := allow[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// UintsToInt64s converts uint ids into the element type lib/pq arrays expect
func UintsToInt64s(ids []uint) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// TrimToNil returns nil for blank strings
func TrimToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
