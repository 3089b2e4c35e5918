package orclient

import (
	"context"
	"sync"
	"time"

	"github.com/elee1766/chatrelay/src/aisdk"
)

// ModelCache caches model listings for a fixed TTL
type ModelCache struct {
	cache     map[string]*cachedModel
	listCache *cachedModelList
	mu        sync.RWMutex
	ttl       time.Duration
	client    *Client
	now       func() time.Time
}

type cachedModel struct {
	model     *aisdk.ModelInfo
	fetchedAt time.Time
}

type cachedModelList struct {
	models    []*aisdk.ModelInfo
	fetchedAt time.Time
}

// NewModelCache creates a new model cache
func NewModelCache(client *Client, ttl time.Duration) *ModelCache {
	return &ModelCache{
		cache:  make(map[string]*cachedModel),
		ttl:    ttl,
		client: client,
		now:    time.Now,
	}
}

// GetModel gets a model from cache or fetches it
func (mc *ModelCache) GetModel(ctx context.Context, modelID string) (*aisdk.ModelInfo, error) {
	mc.mu.RLock()
	cached, exists := mc.cache[modelID]
	mc.mu.RUnlock()

	if exists && mc.now().Sub(cached.fetchedAt) < mc.ttl {
		return cached.model, nil
	}

	model, err := mc.client.getModelInfo(ctx, modelID)
	if err != nil {
		return nil, err
	}

	mc.mu.Lock()
	mc.cache[modelID] = &cachedModel{
		model:     model,
		fetchedAt: mc.now(),
	}
	mc.mu.Unlock()

	return model, nil
}

// GetModelList gets the model list from cache or fetches it
func (mc *ModelCache) GetModelList(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	mc.mu.RLock()
	cached := mc.listCache
	mc.mu.RUnlock()

	if cached != nil && mc.now().Sub(cached.fetchedAt) < mc.ttl {
		return cached.models, nil
	}

	models, err := mc.client.listModelsUncached(ctx)
	if err != nil {
		return nil, err
	}

	mc.mu.Lock()
	fetchedAt := mc.now()
	mc.listCache = &cachedModelList{
		models:    models,
		fetchedAt: fetchedAt,
	}
	for _, model := range models {
		mc.cache[model.ID] = &cachedModel{model: model, fetchedAt: fetchedAt}
	}
	mc.mu.Unlock()

	return models, nil
}
