package repository

import (
	"context"
	"errors"
	"time"

	"SensorStream/internal/domain/models"
	domrepo "SensorStream/internal/domain/repository"
	"SensorStream/pkg/cache"
)

const videoKeyPrefix = "video"

// VideoIndex keeps upload metadata in a cache.Service (memory, or memory in
// front of Redis).
type VideoIndex struct {
	cache cache.Service
	ttl   time.Duration
}

// NewVideoIndex creates an index; ttl <= 0 keeps entries for the cache default.
func NewVideoIndex(c cache.Service, ttl time.Duration) domrepo.VideoIndex {
	return &VideoIndex{cache: c, ttl: ttl}
}

func (i *VideoIndex) Put(ctx context.Context, meta models.VideoMeta) error {
	return i.cache.Set(ctx, cache.Key(videoKeyPrefix, meta.Filename), meta, i.ttl)
}

func (i *VideoIndex) Get(ctx context.Context, name string) (*models.VideoMeta, error) {
	var meta models.VideoMeta
	if err := i.cache.Get(ctx, cache.Key(videoKeyPrefix, name), &meta); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, models.ErrVideoNotFound
		}
		return nil, err
	}
	return &meta, nil
}
