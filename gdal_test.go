package geoanchor_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/twpayne/go-proj/v10"

	"github.com/twpayne/go-geoanchor"
)

var newYorkAnchor = geoanchor.GeoAnchor{
	Latitude:  40.7128,
	Longitude: -74.006,
}

func TestGDALLibraryNewSpatialReference(t *testing.T) {
	library := geoanchor.NewGDALLibrary()
	for _, tc := range []struct {
		descriptor             string
		expectedKind           geoanchor.CRSKind
		expectedLinearUnitName string
	}{
		{
			descriptor:   geoanchor.WGS84,
			expectedKind: geoanchor.CRSKindGeographic,
		},
		{
			descriptor:   "EPSG:4326",
			expectedKind: geoanchor.CRSKindGeographic,
		},
		{
			descriptor:             "EPSG:2263",
			expectedKind:           geoanchor.CRSKindProjected,
			expectedLinearUnitName: "US survey foot",
		},
		{
			descriptor:             "EPSG:3035",
			expectedKind:           geoanchor.CRSKindProjected,
			expectedLinearUnitName: "metre",
		},
		{
			descriptor:             utm30NProjString,
			expectedKind:           geoanchor.CRSKindProjected,
			expectedLinearUnitName: "metre",
		},
	} {
		t.Run(tc.descriptor, func(t *testing.T) {
			sr, err := library.NewSpatialReference(tc.descriptor)
			assert.NoError(t, err)
			defer sr.Close()
			assert.Equal(t, tc.expectedKind, sr.Kind())
			if tc.expectedLinearUnitName != "" {
				assert.Equal(t, tc.expectedLinearUnitName, sr.LinearUnitName())
			}
		})
	}
}

func TestGDALLibraryInvalidSpatialReference(t *testing.T) {
	library := geoanchor.NewGDALLibrary()
	for _, descriptor := range []string{
		"",
		"not a crs",
		"EPSG:99999999",
	} {
		t.Run(descriptor, func(t *testing.T) {
			_, err := library.NewSpatialReference(descriptor)
			assert.IsError(t, err, geoanchor.ErrInvalidSpatialReference)

			resolution, err := geoanchor.ResolveTransform(library, newYorkAnchor, descriptor)
			assert.IsError(t, err, geoanchor.ErrInvalidSpatialReference)
			assert.Zero(t, resolution)
		})
	}
}

func TestGDALLibraryResolveNewYork(t *testing.T) {
	resolution, err := geoanchor.ResolveTransform(geoanchor.NewGDALLibrary(), newYorkAnchor, "EPSG:2263")
	assert.NoError(t, err)
	assert.Equal(t, geoanchor.CRSKindProjected, resolution.Kind)
	assert.Equal(t, geoanchor.USSurveyFeet, resolution.LinearUnit)
	assert.True(t, math.Abs(resolution.Scale-3.2808333) < 1e-6)

	pj, err := proj.NewCRSToCRS("EPSG:4326", "EPSG:2263", nil)
	assert.NoError(t, err)
	defer pj.Destroy()
	normalizedPJ, err := pj.NormalizeForVisualization()
	assert.NoError(t, err)
	defer normalizedPJ.Destroy()
	expected, err := normalizedPJ.Forward(proj.Coord{newYorkAnchor.Longitude, newYorkAnchor.Latitude, 0, 0})
	assert.NoError(t, err)

	actual := resolution.Forward.TransformPoint(newYorkAnchor.ModelBasePoint)
	assert.True(t, math.Abs(expected[0]-actual.X) < 1e-3)
	assert.True(t, math.Abs(expected[1]-actual.Y) < 1e-3)

	// 100m of model north is 328 feet of projected distance.
	north := resolution.Forward.TransformPoint(geoanchor.Point3{Y: 100})
	assert.True(t, math.Abs(north.DistanceTo(actual)-328.08333) < 1e-3)
	assert.True(t, north.Y > actual.Y)

	inverse, err := resolution.Inverse()
	assert.NoError(t, err)
	assertPointWithin(t, geoanchor.Point3{Y: 100}, inverse.TransformPoint(north), 1e-6)
}

func TestGDALLibraryResolveWGS84(t *testing.T) {
	resolution, err := geoanchor.ResolveTransform(geoanchor.NewGDALLibrary(), newYorkAnchor, geoanchor.WGS84)
	assert.NoError(t, err)
	modelToEarth, err := geoanchor.ModelToEarthTransform(newYorkAnchor)
	assert.NoError(t, err)
	assert.True(t, resolution.Forward.EqualWithin(modelToEarth, 1e-9))
}
