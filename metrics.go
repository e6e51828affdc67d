package geoanchor

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoanchor_resolutions_total",
		Help: "The total number of transform resolutions by result",
	}, []string{"result"})
	resolutionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoanchor_resolution_cache_hits_total",
		Help: "The total number of hits on the resolution cache",
	})
	resolutionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoanchor_resolution_cache_misses_total",
		Help: "The total number of misses on the resolution cache",
	})
	missingTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoanchor_missing_tile_cache_hits_total",
		Help: "The total number of hits on the missing raster tile cache",
	})
	missingTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoanchor_missing_tile_cache_misses_total",
		Help: "The total number of misses on the missing raster tile cache",
	})
	rasterCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoanchor_raster_cache_hits_total",
		Help: "The total number of hits on the raster set cache",
	})
	rasterCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoanchor_raster_cache_misses_total",
		Help: "The total number of misses on the raster set cache",
	})
	rasterCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoanchor_raster_cache_evictions_total",
		Help: "The total number of evictions from the raster set cache",
	})
)

// resultLabel returns the metric label for the result of a resolution.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidAnchor):
		return "invalid_anchor"
	case errors.Is(err, ErrInvalidSpatialReference):
		return "invalid_spatial_reference"
	case errors.Is(err, ErrProjectionFailure):
		return "projection_failure"
	case errors.Is(err, ErrUnsupportedLinearUnit):
		return "unsupported_linear_unit"
	case errors.Is(err, ErrNonInvertible):
		return "non_invertible"
	default:
		return "error"
	}
}
