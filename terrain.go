package geoanchor

import (
	"context"
	"math"
)

// A Terrain drapes model points over the elevations of an ElevationSource.
type Terrain struct {
	source        ElevationSource
	resolution    *Resolution
	metersPerUnit float64
}

// NewTerrain returns a new Terrain that places source relative to anchor's
// model space using resolver.
func NewTerrain(resolver *Resolver, anchor GeoAnchor, source ElevationSource) (*Terrain, error) {
	resolution, err := resolver.ResolveTransform(anchor, source.SpatialReferenceDescriptor())
	if err != nil {
		return nil, err
	}
	metersPerUnit, err := anchor.UnitSystem.MetersPerUnit()
	if err != nil {
		return nil, err
	}
	return &Terrain{
		source:        source,
		resolution:    resolution,
		metersPerUnit: metersPerUnit,
	}, nil
}

// Resolution returns the resolution from model space to t's source CRS.
func (t *Terrain) Resolution() *Resolution {
	return t.resolution
}

// Drape returns points with Z replaced by the terrain elevation in model
// units. The model Z axis is vertical, so the terrain elevation relative to
// the anchor's elevation is converted directly. Z is NaN where the source has
// no elevation.
func (t *Terrain) Drape(ctx context.Context, points []Point3) ([]Point3, error) {
	targetPoints := t.resolution.ModelToTarget(points)
	coords := make([][]float64, len(targetPoints))
	for i, p := range targetPoints {
		coords[i] = []float64{p.X, p.Y}
	}
	elevations, err := t.source.Elevations(ctx, coords)
	if err != nil {
		return nil, err
	}

	anchor := t.resolution.Anchor
	result := make([]Point3, len(points))
	for i, p := range points {
		z := math.NaN()
		if elevation := elevations[i]; !math.IsNaN(elevation) {
			z = anchor.ModelBasePoint.Z + (elevation-anchor.Elevation)/t.metersPerUnit
		}
		result[i] = Point3{X: p.X, Y: p.Y, Z: z}
	}
	return result, nil
}
