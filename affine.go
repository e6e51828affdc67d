package geoanchor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// An AffineTransform is a 4x4 matrix acting on column vectors. The last row
// is (0, 0, 0, 1) for all transforms built by this package.
type AffineTransform [4][4]float64

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation returns the transform that translates by v.
func Translation(v Vector3) AffineTransform {
	t := Identity()
	t[0][3] = v.X
	t[1][3] = v.Y
	t[2][3] = v.Z
	return t
}

// Scale returns the transform that scales uniformly by factor about center.
func Scale(center Point3, factor float64) AffineTransform {
	return AffineTransform{
		{factor, 0, 0, (1 - factor) * center.X},
		{0, factor, 0, (1 - factor) * center.Y},
		{0, 0, factor, (1 - factor) * center.Z},
		{0, 0, 0, 1},
	}
}

// PlaneToPlane returns the change-of-basis transform that maps from onto to:
// a point with coordinates (u, v, w) relative to from's axes is mapped to the
// point with the same coordinates relative to to's axes.
func PlaneToPlane(from, to Plane) AffineTransform {
	var rotation mat.Dense
	rotation.Mul(to.axes(), from.axes().T())
	t := Identity()
	for r := range 3 {
		for c := range 3 {
			t[r][c] = rotation.At(r, c)
		}
	}
	// Translate so that from.Origin maps to to.Origin.
	o := t.TransformPoint(from.Origin)
	t[0][3] = to.Origin.X - o.X
	t[1][3] = to.Origin.Y - o.Y
	t[2][3] = to.Origin.Z - o.Z
	return t
}

// Multiply returns t*u, the transform that applies u then t.
func (t AffineTransform) Multiply(u AffineTransform) AffineTransform {
	var product mat.Dense
	product.Mul(t.dense(), u.dense())
	return affineTransformFromMatrix(&product)
}

// TransformPoint returns p transformed by t.
func (t AffineTransform) TransformPoint(p Point3) Point3 {
	v := t.mulVec(p.X, p.Y, p.Z, 1)
	x, y, z, w := v.AtVec(0), v.AtVec(1), v.AtVec(2), v.AtVec(3)
	if w != 1 && w != 0 {
		x, y, z = x/w, y/w, z/w
	}
	return Point3{X: x, Y: y, Z: z}
}

// TransformPoints transforms points in place.
func (t AffineTransform) TransformPoints(points []Point3) {
	for i, p := range points {
		points[i] = t.TransformPoint(p)
	}
}

// TransformVector returns v transformed by the linear part of t.
func (t AffineTransform) TransformVector(v Vector3) Vector3 {
	w := t.mulVec(v.X, v.Y, v.Z, 0)
	return Vector3{X: w.AtVec(0), Y: w.AtVec(1), Z: w.AtVec(2)}
}

// Inverse returns the inverse of t. It returns an error wrapping
// [ErrNonInvertible] if t is singular or has non-finite components.
func (t AffineTransform) Inverse() (AffineTransform, error) {
	if !t.IsValid() {
		return AffineTransform{}, fmt.Errorf("%w: transform has non-finite components", ErrNonInvertible)
	}
	var inverse mat.Dense
	if err := inverse.Inverse(t.dense()); err != nil {
		return AffineTransform{}, fmt.Errorf("%w: %w", ErrNonInvertible, err)
	}
	result := affineTransformFromMatrix(&inverse)
	if !result.IsValid() {
		return AffineTransform{}, fmt.Errorf("%w: inverse has non-finite components", ErrNonInvertible)
	}
	return result, nil
}

// IsValid returns if all of t's components are finite.
func (t AffineTransform) IsValid() bool {
	for r := range 4 {
		for c := range 4 {
			if !isFinite(t[r][c]) {
				return false
			}
		}
	}
	return true
}

// LinearScale returns the length of the image of a unit vector along the x
// axis. For the uniformly scaled transforms built by this package this is the
// scale factor.
func (t AffineTransform) LinearScale() float64 {
	return math.Sqrt(t[0][0]*t[0][0] + t[1][0]*t[1][0] + t[2][0]*t[2][0])
}

// EqualWithin returns if all components of t and u differ by at most
// tolerance.
func (t AffineTransform) EqualWithin(u AffineTransform, tolerance float64) bool {
	for r := range 4 {
		for c := range 4 {
			if math.Abs(t[r][c]-u[r][c]) > tolerance {
				return false
			}
		}
	}
	return true
}

func (t AffineTransform) dense() *mat.Dense {
	return mat.NewDense(4, 4, t.flat())
}

func (t AffineTransform) mulVec(x, y, z, w float64) *mat.VecDense {
	var v mat.VecDense
	v.MulVec(t.dense(), mat.NewVecDense(4, []float64{x, y, z, w}))
	return &v
}

func (t AffineTransform) flat() []float64 {
	flat := make([]float64, 0, 16)
	for r := range 4 {
		flat = append(flat, t[r][:]...)
	}
	return flat
}

func affineTransformFromMatrix(m mat.Matrix) AffineTransform {
	var t AffineTransform
	for r := range 4 {
		for c := range 4 {
			t[r][c] = m.At(r, c)
		}
	}
	return t
}
