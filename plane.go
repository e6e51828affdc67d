package geoanchor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// A Plane is an origin and three orthonormal axes.
type Plane struct {
	Origin Point3
	XAxis  Vector3
	YAxis  Vector3
	ZAxis  Vector3
}

// WorldXY is the plane through the origin spanned by the world X and Y axes.
var WorldXY = Plane{
	XAxis: Vector3{X: 1},
	YAxis: Vector3{Y: 1},
	ZAxis: Vector3{Z: 1},
}

// NewPlane returns the plane through origin whose x axis is the direction of
// xDir and whose y axis is the component of yDir perpendicular to xDir. It
// returns an error wrapping [ErrNonInvertible] if the vectors are too short or
// parallel.
func NewPlane(origin Point3, xDir, yDir Vector3) (Plane, error) {
	if !origin.IsValid() {
		return Plane{}, fmt.Errorf("%w: plane origin %v is not finite", ErrNonInvertible, origin)
	}
	xAxis, ok := xDir.Unit()
	if !ok {
		return Plane{}, fmt.Errorf("%w: degenerate plane x direction %v", ErrNonInvertible, xDir)
	}
	yAxis, ok := yDir.Sub(xAxis.Scale(yDir.Dot(xAxis))).Unit()
	if !ok {
		return Plane{}, fmt.Errorf("%w: plane directions %v and %v are parallel", ErrNonInvertible, xDir, yDir)
	}
	return Plane{
		Origin: origin,
		XAxis:  xAxis,
		YAxis:  yAxis,
		ZAxis:  xAxis.Cross(yAxis),
	}, nil
}

// axes returns the matrix whose columns are p's axes.
func (p Plane) axes() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		p.XAxis.X, p.YAxis.X, p.ZAxis.X,
		p.XAxis.Y, p.YAxis.Y, p.ZAxis.Y,
		p.XAxis.Z, p.YAxis.Z, p.ZAxis.Z,
	})
}
