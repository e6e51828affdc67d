package geoanchor_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geoanchor"
)

func TestMetersPerDegree(t *testing.T) {
	for _, tc := range []struct {
		latitude                   float64
		expectedPerDegreeLatitude  float64
		expectedPerDegreeLongitude float64
	}{
		{latitude: 0, expectedPerDegreeLatitude: 110574.3, expectedPerDegreeLongitude: 111319.5},
		{latitude: 45, expectedPerDegreeLatitude: 111131.8, expectedPerDegreeLongitude: 78846.8},
		{latitude: -45, expectedPerDegreeLatitude: 111131.8, expectedPerDegreeLongitude: 78846.8},
	} {
		perDegreeLatitude, perDegreeLongitude := geoanchor.MetersPerDegree(tc.latitude)
		assert.True(t, math.Abs(tc.expectedPerDegreeLatitude-perDegreeLatitude) < 1, "latitude %v: got %v", tc.latitude, perDegreeLatitude)
		assert.True(t, math.Abs(tc.expectedPerDegreeLongitude-perDegreeLongitude) < 1, "latitude %v: got %v", tc.latitude, perDegreeLongitude)
	}
}

func TestModelToEarthTransform(t *testing.T) {
	perDegreeLatitude, perDegreeLongitude := geoanchor.MetersPerDegree(45)
	for _, tc := range []struct {
		name     string
		anchor   geoanchor.GeoAnchor
		point    geoanchor.Point3
		expected geoanchor.Point3
	}{
		{
			name: "base_point",
			anchor: geoanchor.GeoAnchor{
				Latitude:       45,
				Longitude:      7,
				Elevation:      300,
				ModelBasePoint: geoanchor.Point3{X: 100, Y: 100},
			},
			point:    geoanchor.Point3{X: 100, Y: 100},
			expected: geoanchor.Point3{X: 7, Y: 45, Z: 300},
		},
		{
			name: "north",
			anchor: geoanchor.GeoAnchor{
				Latitude:       45,
				Longitude:      7,
				Elevation:      300,
				ModelBasePoint: geoanchor.Point3{X: 100, Y: 100},
			},
			point:    geoanchor.Point3{X: 100, Y: 1100, Z: 10},
			expected: geoanchor.Point3{X: 7, Y: 45 + 1000/perDegreeLatitude, Z: 310},
		},
		{
			name: "east",
			anchor: geoanchor.GeoAnchor{
				Latitude:       45,
				Longitude:      7,
				Elevation:      300,
				ModelBasePoint: geoanchor.Point3{X: 100, Y: 100},
			},
			point:    geoanchor.Point3{X: 1100, Y: 100},
			expected: geoanchor.Point3{X: 7 + 1000/perDegreeLongitude, Y: 45, Z: 300},
		},
		{
			name: "rotated_north",
			anchor: geoanchor.GeoAnchor{
				Latitude:   45,
				Longitude:  7,
				ModelNorth: geoanchor.Vector3{X: 1},
			},
			point:    geoanchor.Point3{X: 1000, Y: -1000},
			expected: geoanchor.Point3{X: 7 + 1000/perDegreeLongitude, Y: 45 + 1000/perDegreeLatitude},
		},
		{
			name: "feet",
			anchor: geoanchor.GeoAnchor{
				Latitude:   45,
				Longitude:  7,
				UnitSystem: geoanchor.Feet,
			},
			point:    geoanchor.Point3{Y: 1000, Z: 1000},
			expected: geoanchor.Point3{X: 7, Y: 45 + 304.8/perDegreeLatitude, Z: 304.8},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			modelToEarth, err := geoanchor.ModelToEarthTransform(tc.anchor)
			assert.NoError(t, err)
			assertPointWithin(t, tc.expected, modelToEarth.TransformPoint(tc.point), 1e-9)

			points, err := geoanchor.ModelToWGS84(tc.anchor, []geoanchor.Point3{tc.point})
			assert.NoError(t, err)
			roundTripped, err := geoanchor.WGS84ToModel(tc.anchor, points)
			assert.NoError(t, err)
			assertPointWithin(t, tc.point, roundTripped[0], 1e-6)
		})
	}
}

func TestModelToEarthTransformErrors(t *testing.T) {
	_, err := geoanchor.ModelToEarthTransform(geoanchor.GeoAnchor{Latitude: 90})
	assert.IsError(t, err, geoanchor.ErrNonInvertible)

	_, err = geoanchor.EarthToModelTransform(geoanchor.GeoAnchor{Latitude: 91})
	assert.IsError(t, err, geoanchor.ErrInvalidAnchor)
}

func TestGeoAnchorValidate(t *testing.T) {
	for _, tc := range []struct {
		name        string
		anchor      geoanchor.GeoAnchor
		expectedErr error
	}{
		{
			name: "zero",
		},
		{
			name: "valid",
			anchor: geoanchor.GeoAnchor{
				Latitude:       -33.86,
				Longitude:      151.21,
				Elevation:      -10,
				ModelBasePoint: geoanchor.Point3{X: 1e6, Y: -1e6, Z: 5},
				ModelNorth:     geoanchor.Vector3{X: 1, Y: 1, Z: 1},
				UnitSystem:     geoanchor.Millimeters,
			},
		},
		{
			name:        "latitude_out_of_range",
			anchor:      geoanchor.GeoAnchor{Latitude: -90.5},
			expectedErr: geoanchor.ErrInvalidAnchor,
		},
		{
			name:        "longitude_out_of_range",
			anchor:      geoanchor.GeoAnchor{Longitude: 180.5},
			expectedErr: geoanchor.ErrInvalidAnchor,
		},
		{
			name:        "nan_elevation",
			anchor:      geoanchor.GeoAnchor{Elevation: math.NaN()},
			expectedErr: geoanchor.ErrInvalidAnchor,
		},
		{
			name:        "infinite_base_point",
			anchor:      geoanchor.GeoAnchor{ModelBasePoint: geoanchor.Point3{Y: math.Inf(-1)}},
			expectedErr: geoanchor.ErrInvalidAnchor,
		},
		{
			name:        "vertical_north",
			anchor:      geoanchor.GeoAnchor{ModelNorth: geoanchor.Vector3{Z: 1}},
			expectedErr: geoanchor.ErrInvalidAnchor,
		},
		{
			name:        "unknown_unit_system",
			anchor:      geoanchor.GeoAnchor{UnitSystem: geoanchor.UnitSystem(-1)},
			expectedErr: geoanchor.ErrInvalidAnchor,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.anchor.Validate()
			if tc.expectedErr != nil {
				assert.IsError(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGeoAnchorModelPlane(t *testing.T) {
	plane, err := geoanchor.GeoAnchor{
		ModelBasePoint: geoanchor.Point3{X: 1, Y: 2, Z: 3},
		ModelNorth:     geoanchor.Vector3{X: -2, Z: 5},
	}.ModelPlane()
	assert.NoError(t, err)
	assert.Equal(t, geoanchor.Point3{X: 1, Y: 2, Z: 3}, plane.Origin)
	assert.Equal(t, geoanchor.Vector3{X: -1}, plane.YAxis)
	assert.Equal(t, geoanchor.Vector3{Y: 1}, plane.XAxis)
	assert.Equal(t, geoanchor.Vector3{Z: 1}, plane.ZAxis)
}
