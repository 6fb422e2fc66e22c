// Package cart keeps the visitor's selected tours as an ordered set in client-side storage.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"storefront/internal/domain"
)

// Key is the storage key the cart list is kept under.
const Key = "tour_cart"

type Listener func(items []string)

// Store is a thin wrapper over a KVStore. It keeps no state of its own beyond
// listeners, so two stores over the same KV race last-write-wins.
type Store struct {
	kv domain.KVStore

	mu        sync.Mutex
	listeners []Listener
}

func New(kv domain.KVStore) *Store { return &Store{kv: kv} }

// OnChange registers fn to run after every mutation with the new contents.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// List returns the items in insertion order. Unreadable storage reads as empty.
func (s *Store) List(ctx context.Context) []string {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil || !ok || raw == "" {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []string{}
	}
	return dedupe(items)
}

func (s *Store) Count(ctx context.Context) int { return len(s.List(ctx)) }

func (s *Store) Contains(ctx context.Context, ref string) bool {
	for _, it := range s.List(ctx) {
		if it == ref {
			return true
		}
	}
	return false
}

// Add appends ref unless it is already present; adding twice is a no-op.
func (s *Store) Add(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("cart: empty item reference")
	}
	items := s.List(ctx)
	for _, it := range items {
		if it == ref {
			return nil
		}
	}
	return s.write(ctx, append(items, ref))
}

func (s *Store) Remove(ctx context.Context, ref string) error {
	items := s.List(ctx)
	out := items[:0]
	for _, it := range items {
		if it != ref {
			out = append(out, it)
		}
	}
	return s.write(ctx, out)
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	s.emit([]string{})
	return nil
}

func (s *Store) write(ctx context.Context, items []string) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cart: encode: %w", err)
	}
	if err := s.kv.Set(ctx, Key, string(b)); err != nil {
		return fmt.Errorf("cart: write: %w", err)
	}
	s.emit(items)
	return nil
}

func (s *Store) emit(items []string) {
	s.mu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn(append([]string(nil), items...))
	}
}

// dedupe keeps the first occurrence; storage written by an older client may hold repeats.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, it := range in {
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
