package geoanchor_test

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geoanchor"
)

func assertPointWithin(t *testing.T, expected, actual geoanchor.Point3, tolerance float64) {
	t.Helper()
	assert.True(t, expected.DistanceTo(actual) <= tolerance, "expected %v, got %v", expected, actual)
}

func TestAffineTransformBasics(t *testing.T) {
	p := geoanchor.Point3{X: 1, Y: 2, Z: 3}
	for _, tc := range []struct {
		name      string
		transform geoanchor.AffineTransform
		expected  geoanchor.Point3
	}{
		{
			name:      "identity",
			transform: geoanchor.Identity(),
			expected:  p,
		},
		{
			name:      "translation",
			transform: geoanchor.Translation(geoanchor.Vector3{X: 10, Y: -10, Z: 5}),
			expected:  geoanchor.Point3{X: 11, Y: -8, Z: 8},
		},
		{
			name:      "scale_about_origin",
			transform: geoanchor.Scale(geoanchor.Point3{}, 2),
			expected:  geoanchor.Point3{X: 2, Y: 4, Z: 6},
		},
		{
			name:      "scale_about_center",
			transform: geoanchor.Scale(geoanchor.Point3{X: 1, Y: 1, Z: 1}, 2),
			expected:  geoanchor.Point3{X: 1, Y: 3, Z: 5},
		},
		{
			name: "translation_after_scale",
			transform: geoanchor.Translation(geoanchor.Vector3{X: 1}).Multiply(
				geoanchor.Scale(geoanchor.Point3{}, 3),
			),
			expected: geoanchor.Point3{X: 4, Y: 6, Z: 9},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.transform.TransformPoint(p))
		})
	}
}

func TestVector3(t *testing.T) {
	v := geoanchor.Vector3{X: 3, Y: 4}
	w := geoanchor.Vector3{Z: 2}
	assert.Equal(t, geoanchor.Vector3{X: 8, Y: -6}, v.Cross(w))
	assert.Equal(t, 0.0, v.Dot(w))
	assert.Equal(t, 25.0, v.Dot(v))
	assert.Equal(t, 5.0, v.Length())
	assert.Equal(t, geoanchor.Vector3{X: 6, Y: 8}, v.Scale(2))
	assert.Equal(t, geoanchor.Vector3{X: 3, Y: 4, Z: -2}, v.Sub(w))

	unit, ok := v.Unit()
	assert.True(t, ok)
	assert.True(t, math.Abs(unit.Length()-1) < 1e-15)
	_, ok = geoanchor.Vector3{}.Unit()
	assert.False(t, ok)

	p := geoanchor.Point3{X: 1, Y: 1, Z: 1}
	assert.Equal(t, geoanchor.Point3{X: 4, Y: 5, Z: 1}, p.Add(v))
	assert.Equal(t, v, p.Add(v).Sub(p))
	assert.Equal(t, 5.0, p.DistanceTo(p.Add(v)))
}

func TestAffineTransformMultiplyOrder(t *testing.T) {
	translate := geoanchor.Translation(geoanchor.Vector3{X: 1, Y: 2, Z: 3})
	scale := geoanchor.Scale(geoanchor.Point3{}, 10)
	p := geoanchor.Point3{X: 1, Y: 1, Z: 1}
	assert.Equal(t, geoanchor.Point3{X: 11, Y: 12, Z: 13}, translate.Multiply(scale).TransformPoint(p))
	assert.Equal(t, geoanchor.Point3{X: 20, Y: 30, Z: 40}, scale.Multiply(translate).TransformPoint(p))
	assert.Equal(t, geoanchor.Vector3{X: 10, Y: 10, Z: 10}, translate.Multiply(scale).TransformVector(geoanchor.Vector3{X: 1, Y: 1, Z: 1}))
}

func TestPlaneToPlane(t *testing.T) {
	from := geoanchor.Plane{
		Origin: geoanchor.Point3{X: 10, Y: 20, Z: 0},
		XAxis:  geoanchor.Vector3{X: 0, Y: 1, Z: 0},
		YAxis:  geoanchor.Vector3{X: -1, Y: 0, Z: 0},
		ZAxis:  geoanchor.Vector3{X: 0, Y: 0, Z: 1},
	}
	to, err := geoanchor.NewPlane(
		geoanchor.Point3{X: 500000, Y: 4000000, Z: 7},
		geoanchor.Vector3{X: 3, Y: 4},
		geoanchor.Vector3{X: -4, Y: 3},
	)
	assert.NoError(t, err)

	transform := geoanchor.PlaneToPlane(from, to)
	assertPointWithin(t, to.Origin, transform.TransformPoint(from.Origin), 1e-9)
	assertPointWithin(t, to.Origin.Add(to.XAxis.Scale(2)), transform.TransformPoint(from.Origin.Add(from.XAxis.Scale(2))), 1e-9)
	assertPointWithin(t, to.Origin.Add(to.YAxis.Scale(5)), transform.TransformPoint(from.Origin.Add(from.YAxis.Scale(5))), 1e-9)
	assertPointWithin(t, to.Origin.Add(to.ZAxis), transform.TransformPoint(from.Origin.Add(from.ZAxis)), 1e-9)
	assert.True(t, math.Abs(transform.LinearScale()-1) < 1e-12)

	assert.True(t, geoanchor.PlaneToPlane(geoanchor.WorldXY, geoanchor.WorldXY).EqualWithin(geoanchor.Identity(), 0))
}

func TestAffineTransformInverse(t *testing.T) {
	to, err := geoanchor.NewPlane(
		geoanchor.Point3{X: 583960, Y: 4507523, Z: 10},
		geoanchor.Vector3{X: 1, Y: 0.01},
		geoanchor.Vector3{X: -0.01, Y: 1},
	)
	assert.NoError(t, err)
	transform := geoanchor.Scale(to.Origin, 3.28084).Multiply(geoanchor.PlaneToPlane(geoanchor.WorldXY, to))

	inverse, err := transform.Inverse()
	assert.NoError(t, err)
	assert.True(t, inverse.Multiply(transform).EqualWithin(geoanchor.Identity(), 1e-9))

	for _, p := range []geoanchor.Point3{
		{},
		{X: 100, Y: -250, Z: 3},
		{X: -1e4, Y: 1e4, Z: -50},
	} {
		assertPointWithin(t, p, inverse.TransformPoint(transform.TransformPoint(p)), 1e-6)
	}
}

func TestAffineTransformInverseErrors(t *testing.T) {
	singular := geoanchor.Identity()
	singular[2][2] = 0
	_, err := singular.Inverse()
	assert.IsError(t, err, geoanchor.ErrNonInvertible)

	nonFinite := geoanchor.Identity()
	nonFinite[0][3] = math.NaN()
	assert.False(t, nonFinite.IsValid())
	_, err = nonFinite.Inverse()
	assert.IsError(t, err, geoanchor.ErrNonInvertible)
}

func TestNewPlane(t *testing.T) {
	plane, err := geoanchor.NewPlane(geoanchor.Point3{X: 1}, geoanchor.Vector3{X: 2}, geoanchor.Vector3{X: 1, Y: 1})
	assert.NoError(t, err)
	assert.Equal(t, geoanchor.Plane{
		Origin: geoanchor.Point3{X: 1},
		XAxis:  geoanchor.Vector3{X: 1},
		YAxis:  geoanchor.Vector3{Y: 1},
		ZAxis:  geoanchor.Vector3{Z: 1},
	}, plane)

	for _, tc := range []struct {
		name   string
		origin geoanchor.Point3
		xDir   geoanchor.Vector3
		yDir   geoanchor.Vector3
	}{
		{
			name: "zero_x",
			yDir: geoanchor.Vector3{Y: 1},
		},
		{
			name: "parallel",
			xDir: geoanchor.Vector3{X: 1, Y: 1},
			yDir: geoanchor.Vector3{X: -2, Y: -2},
		},
		{
			name:   "non_finite_origin",
			origin: geoanchor.Point3{X: math.Inf(1)},
			xDir:   geoanchor.Vector3{X: 1},
			yDir:   geoanchor.Vector3{Y: 1},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := geoanchor.NewPlane(tc.origin, tc.xDir, tc.yDir)
			assert.IsError(t, err, geoanchor.ErrNonInvertible)
		})
	}
}
