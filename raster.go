package geoanchor

import "context"

// A Coord is a pixel coordinate.
type Coord struct {
	X int // Column.
	Y int // Row.
}

// A TileCoord is a tile coordinate.
type TileCoord struct {
	C int // Column.
	R int // Row.
}

// A Raster returns samples at pixel coordinates. Missing samples are NaN.
type Raster interface {
	Samples(ctx context.Context, coords []Coord) ([]float64, error)
}

// An ElevationSource returns elevations at coordinates in its CRS.
type ElevationSource interface {
	SpatialReferenceDescriptor() string
	Elevations(ctx context.Context, coords [][]float64) ([]float64, error)
}
