package orchestrator

// #region imports
import (
	lru "github.com/hashicorp/golang-lru"
)

// #endregion

// #region key

// predictionKey identifies one (model, observation) prediction. Observations
// of the same body at the same radius and velocity hit the cache regardless
// of catalog id.
type predictionKey struct {
	model  string
	mass   float64
	radius float64
	vTotal float64
	vLOS   float64
}

// #endregion

// #region cache

// predictionCache memoizes redshift predictions across cases. Safe for
// concurrent use by the worker pool.
type predictionCache struct {
	lru *lru.Cache
}

func newPredictionCache(size int) (*predictionCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &predictionCache{lru: c}, nil
}

func (c *predictionCache) get(k predictionKey) (float64, bool) {
	v, ok := c.lru.Get(k)
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

func (c *predictionCache) put(k predictionKey, z float64) {
	c.lru.Add(k, z)
}

// #endregion
