package store

import (
	"context"
	"sync"
)

// memoryKV implementa KV con maps en memoria.
// Útil para desarrollo y testing; mismo contrato que Redis.
type memoryKV struct {
	prefix string
	mu     sync.Mutex
	str    map[string]string
	hash   map[string]map[string]string
	sets   map[string]map[string]struct{}
}

// NewMemory crea un KV en memoria.
func NewMemory(prefix string) KV {
	return &memoryKV{
		prefix: prefix,
		str:    make(map[string]string),
		hash:   make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (s *memoryKV) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *memoryKV) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.str[s.key(key)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *memoryKV) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.str[s.key(key)] = value
	return nil
}

func (s *memoryKV) GetDel(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	v, ok := s.str[k]
	if !ok {
		return "", ErrNotFound
	}
	delete(s.str, k)
	return v, nil
}

func (s *memoryKV) HSet(ctx context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	h, ok := s.hash[k]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hash[k] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

func (s *memoryKV) HGet(ctx context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.hash[s.key(key)][field]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *memoryKV) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.hash[s.key(key)]))
	for f, v := range s.hash[s.key(key)] {
		out[f] = v
	}
	return out, nil
}

func (s *memoryKV) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(key)
	set, ok := s.sets[k]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[k] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (s *memoryKV) SRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[s.key(key)]
	for _, m := range members {
		delete(set, m)
	}
	return nil
}

func (s *memoryKV) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.sets[s.key(key)]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

func (s *memoryKV) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		pk := s.key(k)
		delete(s.str, pk)
		delete(s.hash, pk)
		delete(s.sets, pk)
	}
	return nil
}

func (s *memoryKV) Ping(ctx context.Context) error { return nil }

func (s *memoryKV) Close() error { return nil }
