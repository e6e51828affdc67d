package geoanchor

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// A TileCoordFunc returns the tile containing the CRS coordinate (x, y).
type TileCoordFunc func(x, y float64) (TileCoord, bool)

// A TileFilenameFunc returns the filename of the tile at a tile coordinate.
type TileFilenameFunc func(TileCoord) string

// A GeoTIFFRasterSet is a set of GeoTIFF rasters that tile a single CRS.
// Rasters are opened lazily and kept open in an LRU cache. It is safe for
// concurrent use: an evicted raster is closed once no reader holds it.
type GeoTIFFRasterSet struct {
	mutex                sync.Mutex
	fsys                 fs.FS
	descriptor           string
	tileCoordFunc        TileCoordFunc
	tileFilenameFunc     TileFilenameFunc
	missingTiles         sync.Map
	geoTIFFRasterOptions []GeoTIFFRasterOption
	cacheSize            int
	rasterCache          *lru.Cache[TileCoord, *rasterSetEntry]
}

// A rasterSetEntry is a cached raster and its reader count. Its fields are
// guarded by the set's mutex.
type rasterSetEntry struct {
	raster  *GeoTIFFRaster
	refs    int
	evicted bool
}

// A GeoTIFFRasterSetOption sets an option on a GeoTIFFRasterSet.
type GeoTIFFRasterSetOption func(*GeoTIFFRasterSet)

// NewGeoTIFFRasterSet returns a new GeoTIFFRasterSet with the given options.
func NewGeoTIFFRasterSet(options ...GeoTIFFRasterSetOption) (*GeoTIFFRasterSet, error) {
	s := &GeoTIFFRasterSet{
		cacheSize: 32,
	}
	for _, option := range options {
		option(s)
	}
	if s.fsys == nil || s.tileCoordFunc == nil || s.tileFilenameFunc == nil {
		return nil, errors.New("raster set requires a filesystem, a tile coord func, and a tile filename func")
	}

	var err error
	s.rasterCache, err = lru.NewWithEvict(s.cacheSize, func(_ TileCoord, entry *rasterSetEntry) {
		entry.evicted = true
		if entry.refs == 0 {
			_ = entry.raster.Close()
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func WithCacheSize(cacheSize int) GeoTIFFRasterSetOption {
	return func(s *GeoTIFFRasterSet) {
		s.cacheSize = cacheSize
	}
}

func WithFS(fsys fs.FS) GeoTIFFRasterSetOption {
	return func(s *GeoTIFFRasterSet) {
		s.fsys = fsys
	}
}

func WithGeoTIFFRasterOptions(geoTIFFRasterOptions ...GeoTIFFRasterOption) GeoTIFFRasterSetOption {
	return func(s *GeoTIFFRasterSet) {
		s.geoTIFFRasterOptions = geoTIFFRasterOptions
	}
}

func WithSpatialReferenceDescriptor(descriptor string) GeoTIFFRasterSetOption {
	return func(s *GeoTIFFRasterSet) {
		s.descriptor = descriptor
	}
}

func WithTileCoordFunc(tileCoordFunc TileCoordFunc) GeoTIFFRasterSetOption {
	return func(s *GeoTIFFRasterSet) {
		s.tileCoordFunc = tileCoordFunc
	}
}

func WithTileFilenameFunc(tileFilenameFunc TileFilenameFunc) GeoTIFFRasterSetOption {
	return func(s *GeoTIFFRasterSet) {
		s.tileFilenameFunc = tileFilenameFunc
	}
}

// Close closes all of s's open rasters. Rasters still being read are closed
// when their readers finish.
func (s *GeoTIFFRasterSet) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rasterCache.Purge()
}

// Elevations returns the elevations at coords in s's CRS. Missing elevations
// are NaN.
func (s *GeoTIFFRasterSet) Elevations(ctx context.Context, coords [][]float64) ([]float64, error) {
	elevations := make([]float64, len(coords))

	// Group indexes by tile coord.
	type groupStruct struct {
		coords  [][]float64
		indexes []int
	}
	groupsByTileCoord := make(map[TileCoord]*groupStruct)
	for index, coord := range coords {
		tileCoord, ok := s.tileCoordFunc(coord[0], coord[1])
		if !ok {
			elevations[index] = math.NaN()
			continue
		}
		group, ok := groupsByTileCoord[tileCoord]
		if !ok {
			group = &groupStruct{}
			groupsByTileCoord[tileCoord] = group
		}
		group.coords = append(group.coords, coord)
		group.indexes = append(group.indexes, index)
	}

	// Populate elevations one tile at a time.
	for tileCoord, group := range groupsByTileCoord {
		entry, err := s.acquireRaster(tileCoord)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			for _, index := range group.indexes {
				elevations[index] = math.NaN()
			}
			continue
		}
		localElevations, err := entry.raster.Elevations(ctx, group.coords)
		s.releaseRaster(entry)
		if err != nil {
			return nil, err
		}
		for localIndex, index := range group.indexes {
			elevations[index] = localElevations[localIndex]
		}
	}

	return elevations, nil
}

// SpatialReferenceDescriptor returns the descriptor of s's CRS.
func (s *GeoTIFFRasterSet) SpatialReferenceDescriptor() string {
	return s.descriptor
}

// getRaster opens the raster at tileCoord. It returns nil if the raster does
// not exist.
func (s *GeoTIFFRasterSet) getRaster(tileCoord TileCoord) (*GeoTIFFRaster, error) {
	filename := s.tileFilenameFunc(tileCoord)
	options := s.geoTIFFRasterOptions
	if s.descriptor != "" {
		options = append(options[:len(options):len(options)], WithRasterSpatialReferenceDescriptor(s.descriptor))
	}
	switch raster, err := NewGeoTIFFRaster(s.fsys, filename, options...); {
	case errors.Is(err, fs.ErrNotExist):
		s.missingTiles.Store(tileCoord, struct{}{})
		missingTileCacheMisses.Inc()
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return raster, nil
	}
}

// acquireRaster returns the entry for the raster at tileCoord, using the
// cache if possible, with its reader count incremented. It returns nil if the
// raster does not exist. The caller must call releaseRaster when done.
func (s *GeoTIFFRasterSet) acquireRaster(tileCoord TileCoord) (*rasterSetEntry, error) {
	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entry, ok := s.rasterCache.Get(tileCoord); ok {
		rasterCacheHits.Inc()
		entry.refs++
		return entry, nil
	}

	if _, ok := s.missingTiles.Load(tileCoord); ok {
		missingTileCacheHits.Inc()
		return nil, nil
	}

	rasterCacheMisses.Inc()

	raster, err := s.getRaster(tileCoord)
	if err != nil || raster == nil {
		return nil, err
	}

	entry := &rasterSetEntry{
		raster: raster,
		refs:   1,
	}
	if eviction := s.rasterCache.Add(tileCoord, entry); eviction {
		rasterCacheEvictions.Inc()
	}

	return entry, nil
}

// releaseRaster decrements entry's reader count, closing its raster if it has
// been evicted and this was the last reader.
func (s *GeoTIFFRasterSet) releaseRaster(entry *rasterSetEntry) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	entry.refs--
	if entry.evicted && entry.refs == 0 {
		_ = entry.raster.Close()
	}
}
