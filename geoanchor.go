// Package geoanchor computes affine transforms between a CAD modelling space
// anchored at a known geographic point and arbitrary coordinate reference
// systems.
//
// The transform is reconstructed empirically: three probe points around the
// anchor are projected into the target CRS by an external CRS library and a
// change of basis is fitted to them.
package geoanchor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// A Point3 is a point in three dimensions.
type Point3 struct {
	X float64
	Y float64
	Z float64
}

// A Vector3 is a vector in three dimensions.
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

var (
	zAxis = Vector3{X: 0, Y: 0, Z: 1}
	yAxis = Vector3{X: 0, Y: 1, Z: 0}
)

// Sub returns p - q.
func (p Point3) Sub(q Point3) Vector3 {
	return Vector3(r3.Sub(r3.Vec(p), r3.Vec(q)))
}

// Add returns p + v.
func (p Point3) Add(v Vector3) Point3 {
	return Point3(r3.Add(r3.Vec(p), r3.Vec(v)))
}

// IsValid returns if all of p's components are finite.
func (p Point3) IsValid() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point3) DistanceTo(q Point3) float64 {
	return r3.Norm(r3.Sub(r3.Vec(p), r3.Vec(q)))
}

// Cross returns the cross product v x w.
func (v Vector3) Cross(w Vector3) Vector3 {
	return Vector3(r3.Cross(r3.Vec(v), r3.Vec(w)))
}

// Dot returns the dot product of v and w.
func (v Vector3) Dot(w Vector3) float64 {
	return r3.Dot(r3.Vec(v), r3.Vec(w))
}

// Length returns the Euclidean length of v.
func (v Vector3) Length() float64 {
	return r3.Norm(r3.Vec(v))
}

// Scale returns v scaled by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3(r3.Scale(s, r3.Vec(v)))
}

// Sub returns v - w.
func (v Vector3) Sub(w Vector3) Vector3 {
	return Vector3(r3.Sub(r3.Vec(v), r3.Vec(w)))
}

// Unit returns v scaled to unit length. It returns false if v is too short to
// have a direction.
func (v Vector3) Unit() (Vector3, bool) {
	length := v.Length()
	if length <= zeroTolerance || !isFinite(length) {
		return Vector3{}, false
	}
	return Vector3(r3.Unit(r3.Vec(v))), true
}

// A GeoAnchor binds a point in model space to a geographic location.
//
// The zero value anchors the model origin at latitude 0, longitude 0 with +Y
// as north and meters as the model unit.
type GeoAnchor struct {
	Latitude       float64    // Degrees, WGS84.
	Longitude      float64    // Degrees, WGS84.
	Elevation      float64    // Meters.
	ModelBasePoint Point3     // Model point located at Latitude, Longitude, Elevation.
	ModelNorth     Vector3    // Model direction of true north. The zero vector means +Y.
	UnitSystem     UnitSystem // Unit of model coordinates.
}

// Validate returns an error if a is not a valid anchor.
func (a GeoAnchor) Validate() error {
	switch {
	case !isFinite(a.Latitude) || a.Latitude < -90 || 90 < a.Latitude:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidAnchor, a.Latitude)
	case !isFinite(a.Longitude) || a.Longitude < -180 || 180 < a.Longitude:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidAnchor, a.Longitude)
	case !isFinite(a.Elevation):
		return fmt.Errorf("%w: elevation %v is not finite", ErrInvalidAnchor, a.Elevation)
	case !a.ModelBasePoint.IsValid():
		return fmt.Errorf("%w: model base point %v is not finite", ErrInvalidAnchor, a.ModelBasePoint)
	}
	if _, _, err := a.modelAxes(); err != nil {
		return err
	}
	if _, err := a.UnitSystem.MetersPerUnit(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnchor, err)
	}
	return nil
}

// ModelPlane returns the plane in model space whose origin is a's base point,
// x axis is model east, and y axis is model north.
func (a GeoAnchor) ModelPlane() (Plane, error) {
	east, north, err := a.modelAxes()
	if err != nil {
		return Plane{}, err
	}
	return Plane{
		Origin: a.ModelBasePoint,
		XAxis:  east,
		YAxis:  north,
		ZAxis:  zAxis,
	}, nil
}

// modelAxes returns the horizontal unit vectors for model east and north.
func (a GeoAnchor) modelAxes() (east, north Vector3, err error) {
	north = a.ModelNorth
	if north == (Vector3{}) {
		north = yAxis
	}
	north.Z = 0
	north, ok := north.Unit()
	if !ok {
		return Vector3{}, Vector3{}, fmt.Errorf("%w: model north %v has no horizontal component", ErrInvalidAnchor, a.ModelNorth)
	}
	east = north.Cross(zAxis)
	return east, north, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
