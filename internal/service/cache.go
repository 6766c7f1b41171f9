package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/zeebo/xxh3"

	"github.com/totegamma/biblion/internal/domain"
	"github.com/totegamma/biblion/internal/usecase"
)

const publicationTTL = 300

// memcacheClient is the part of *memcache.Client the cache uses.
type memcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Add(item *memcache.Item) error
	Increment(key string, delta uint64) (uint64, error)
}

// CacheService keeps publication snapshots in memcached. Failures only cost a
// database round trip, so they are logged and swallowed.
//
// Every token has a generation counter and snapshots are keyed by it.
// Invalidate increments the counter instead of deleting the snapshot.
type CacheService struct {
	mc        memcacheClient
	namespace uint64
	now       func() time.Time
}

// NewCacheService namespaces keys by fqdn so nodes can share one memcached.
func NewCacheService(mc *memcache.Client, fqdn string) *CacheService {
	return newCacheService(mc, fqdn)
}

func newCacheService(mc memcacheClient, fqdn string) *CacheService {
	return &CacheService{
		mc:        mc,
		namespace: xxh3.HashString(fqdn),
		now:       time.Now,
	}
}

func (s *CacheService) generationKey(id uint64) string {
	return fmt.Sprintf("bib:%016x:publication:%d:gen", s.namespace, id)
}

func (s *CacheService) key(id, generation uint64) string {
	return fmt.Sprintf("bib:%016x:publication:%d:%d", s.namespace, id, generation)
}

// generation returns the current counter of the token. An evicted counter is
// reseeded from the clock, which is always ahead of any value handed out
// before, so snapshots stored under an old generation stay unreachable.
func (s *CacheService) generation(id uint64) (uint64, error) {
	key := s.generationKey(id)
	for range 2 {
		item, err := s.mc.Get(key)
		if err == nil {
			return strconv.ParseUint(string(item.Value), 10, 64)
		}
		if !errors.Is(err, memcache.ErrCacheMiss) {
			return 0, err
		}

		seed := uint64(s.now().UnixNano())
		err = s.mc.Add(&memcache.Item{
			Key:   key,
			Value: []byte(strconv.FormatUint(seed, 10)),
		})
		if err == nil {
			return seed, nil
		}
		if !errors.Is(err, memcache.ErrNotStored) {
			return 0, err
		}
	}
	return 0, fmt.Errorf("generation of %d is contended", id)
}

// Get returns generation 0 when memcached is unreachable, Set ignores it.
func (s *CacheService) Get(ctx context.Context, id uint64) (domain.Token, uint64, bool) {
	generation, err := s.generation(id)
	if err != nil {
		slog.DebugContext(
			ctx, "cache generation failed",
			slog.String("error", err.Error()),
			slog.String("module", "cache"),
		)
		return domain.Token{}, 0, false
	}

	item, err := s.mc.Get(s.key(id, generation))
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			slog.DebugContext(
				ctx, "cache get failed",
				slog.String("error", err.Error()),
				slog.String("module", "cache"),
			)
		}
		return domain.Token{}, generation, false
	}

	var token domain.Token
	err = json.Unmarshal(item.Value, &token)
	if err != nil {
		return domain.Token{}, generation, false
	}
	return token, generation, true
}

func (s *CacheService) Set(ctx context.Context, token domain.Token, generation uint64) {
	if generation == 0 {
		return
	}

	value, err := json.Marshal(token)
	if err != nil {
		return
	}

	err = s.mc.Set(&memcache.Item{
		Key:        s.key(token.ID, generation),
		Value:      value,
		Expiration: publicationTTL,
	})
	if err != nil {
		slog.DebugContext(
			ctx, "cache set failed",
			slog.String("error", err.Error()),
			slog.String("module", "cache"),
		)
	}
}

// Invalidate bumps the generation. A missing counter needs nothing, the next
// reader reseeds it past every earlier value.
func (s *CacheService) Invalidate(ctx context.Context, id uint64) {
	_, err := s.mc.Increment(s.generationKey(id), 1)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		slog.WarnContext(
			ctx, "cache invalidate failed",
			slog.String("error", err.Error()),
			slog.Uint64("tokenId", id),
			slog.String("module", "cache"),
		)
	}
}

var _ usecase.PublicationCache = (*CacheService)(nil)
