package geoanchor

import (
	"context"
	"math"
)

// InterpolateBilinear returns the bilinear interpolation of raster at
// fractional pixel coordinates, where integer coordinates are pixel centers.
// The result is NaN wherever a surrounding sample with non-zero weight is
// missing.
func InterpolateBilinear(ctx context.Context, raster Raster, coords [][]float64) ([]float64, error) {
	rasterCoords := make([]Coord, 0, 4*len(coords))
	for _, coord := range coords {
		x0 := int(math.Floor(coord[0]))
		y0 := int(math.Floor(coord[1]))
		rasterCoords = append(rasterCoords,
			Coord{X: x0, Y: y0},
			Coord{X: x0 + 1, Y: y0},
			Coord{X: x0, Y: y0 + 1},
			Coord{X: x0 + 1, Y: y0 + 1},
		)
	}
	samples, err := raster.Samples(ctx, rasterCoords)
	if err != nil {
		return nil, err
	}
	result := make([]float64, len(coords))
	for i, coord := range coords {
		dx := coord[0] - math.Floor(coord[0])
		dy := coord[1] - math.Floor(coord[1])
		weights := [4]float64{(1 - dx) * (1 - dy), dx * (1 - dy), (1 - dx) * dy, dx * dy}
		for j, weight := range weights {
			// Skip zero weights so that samples on the last row or column do
			// not need a missing neighbor.
			if weight != 0 {
				result[i] += weight * samples[4*i+j]
			}
		}
	}
	return result, nil
}
