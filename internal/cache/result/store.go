// Package result caches analysis results by the content of the submitted code.
package result

import (
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"codesage/internal/types"
)

const (
	DefaultSize = 1024
	DefaultTTL  = time.Hour
)

// Key hashes code into a cache key. Only the code participates; identical
// code under a different file name or language shares an entry.
func Key(code string) string {
	sum := xxh3.HashString128(code).Bytes()
	return hex.EncodeToString(sum[:])
}

// Store is a bounded, expiring result cache. Values are cloned on the way in
// and out so cached results are never aliased. Safe for concurrent use.
type Store struct {
	lru   *expirable.LRU[string, types.AnalysisResult]
	group singleflight.Group
}

func New(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{lru: expirable.NewLRU[string, types.AnalysisResult](size, nil, ttl)}
}

func (s *Store) Get(key string) (types.AnalysisResult, bool) {
	if s == nil {
		return types.AnalysisResult{}, false
	}
	r, ok := s.lru.Get(key)
	if !ok {
		return types.AnalysisResult{}, false
	}
	return r.Clone(), true
}

// Put stores r under key, overwriting any previous value.
func (s *Store) Put(key string, r types.AnalysisResult) {
	if s == nil {
		return
	}
	s.lru.Add(key, r.Clone())
}

// Do returns the cached value for key, or runs fn once per key across
// concurrent callers. fn's result is stored only when keep reports true.
// hit is true when the value came from the cache.
func (s *Store) Do(key string, fn func() types.AnalysisResult, keep func(types.AnalysisResult) bool) (r types.AnalysisResult, hit bool) {
	if s == nil {
		return fn(), false
	}
	if r, ok := s.Get(key); ok {
		return r, true
	}
	v, _, _ := s.group.Do(key, func() (any, error) {
		if r, ok := s.Get(key); ok {
			return r, nil
		}
		r := fn()
		if keep == nil || keep(r) {
			s.Put(key, r)
		}
		return r, nil
	})
	return v.(types.AnalysisResult).Clone(), false
}

func (s *Store) Purge() {
	if s == nil {
		return
	}
	s.lru.Purge()
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.lru.Len()
}
