package geoanchor

import (
	"fmt"
	"io/fs"
	"math"
	"slices"
)

// NewEUDEM returns a GeoTIFFRasterSet for the EU-DEM v1.1 tiles in fsys. The
// tiles are 1000km squares in EPSG:3035.
func NewEUDEM(fsys fs.FS, options ...GeoTIFFRasterSetOption) (*GeoTIFFRasterSet, error) {
	return NewGeoTIFFRasterSet(slices.Concat(
		[]GeoTIFFRasterSetOption{
			WithFS(fsys),
			WithSpatialReferenceDescriptor("EPSG:3035"),
			WithTileCoordFunc(func(x, y float64) (TileCoord, bool) {
				if x < 0 || y < 0 || math.IsNaN(x) || math.IsNaN(y) {
					return TileCoord{}, false
				}
				return TileCoord{
					C: 10 * int(x/1000000),
					R: 10 * int(y/1000000),
				}, true
			}),
			WithTileFilenameFunc(func(tileCoord TileCoord) string {
				return fmt.Sprintf("eu_dem_v11_E%02dN%02d.TIF", tileCoord.C, tileCoord.R)
			}),
		},
		options,
	)...)
}
