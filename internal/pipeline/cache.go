package pipeline

import (
	"sync"

	"github.com/crimson-sun/clientpulse/internal/model"
)

type loadKey struct {
	identity string
	limit    int
}

type summaryKey struct {
	datasetID string
	filter    model.Filter
}

type summary struct {
	metrics   model.Metrics
	fallbacks []model.Fallback
}

// Cache memoizes the loaded dataset by (source identity, row limit) and its
// aggregations by (dataset ID, filter). Only the latest dataset is kept;
// storing a new one drops every aggregation of the old one.
type Cache struct {
	mu        sync.Mutex
	key       loadKey
	dataset   *model.Dataset
	summaries map[summaryKey]summary
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{summaries: make(map[summaryKey]summary)}
}

// Dataset returns the cached dataset for the given source identity and limit.
func (c *Cache) Dataset(identity string, limit int) (*model.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dataset == nil || c.key != (loadKey{identity, limit}) {
		return nil, false
	}
	return c.dataset, true
}

// StoreDataset replaces the cached dataset and invalidates its aggregations.
func (c *Cache) StoreDataset(identity string, limit int, ds *model.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = loadKey{identity, limit}
	c.dataset = ds
	clear(c.summaries)
}

// Summary returns a cached aggregation of the dataset with the given ID.
func (c *Cache) Summary(datasetID string, f model.Filter) (model.Metrics, []model.Fallback, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.summaries[summaryKey{datasetID, f}]
	return s.metrics, s.fallbacks, ok
}

// StoreSummary caches an aggregation. Entries for a dataset other than the
// cached one are ignored.
func (c *Cache) StoreSummary(datasetID string, f model.Filter, m model.Metrics, fallbacks []model.Fallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dataset == nil || c.dataset.ID != datasetID {
		return
	}
	c.summaries[summaryKey{datasetID, f}] = summary{metrics: m, fallbacks: fallbacks}
}
