package geoanchor

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid.
const (
	wgs84SemiMajorAxis = 6378137.0
	wgs84Flattening    = 1 / 298.257223563
)

// MetersPerDegree returns the length in meters of one degree of latitude and
// one degree of longitude on the WGS84 ellipsoid at latitude.
func MetersPerDegree(latitude float64) (perDegreeLatitude, perDegreeLongitude float64) {
	const eccentricitySquared = wgs84Flattening * (2 - wgs84Flattening)
	phi := latitude * math.Pi / 180
	sinPhi := math.Sin(phi)
	w := math.Sqrt(1 - eccentricitySquared*sinPhi*sinPhi)
	primeVerticalRadius := wgs84SemiMajorAxis / w
	meridionalRadius := wgs84SemiMajorAxis * (1 - eccentricitySquared) / (w * w * w)
	perDegreeLatitude = meridionalRadius * math.Pi / 180
	perDegreeLongitude = primeVerticalRadius * math.Cos(phi) * math.Pi / 180
	return
}

// ModelToEarthTransform returns the transform from a's model space to WGS84
// longitude, latitude, and elevation in meters. It is linearized at the
// anchor, so it is only accurate close to it.
func ModelToEarthTransform(a GeoAnchor) (AffineTransform, error) {
	if err := a.Validate(); err != nil {
		return AffineTransform{}, err
	}
	modelPlane, err := a.ModelPlane()
	if err != nil {
		return AffineTransform{}, err
	}
	metersPerUnit, err := a.UnitSystem.MetersPerUnit()
	if err != nil {
		return AffineTransform{}, err
	}
	perDegreeLatitude, perDegreeLongitude := MetersPerDegree(a.Latitude)
	if perDegreeLongitude < 1e-6 {
		return AffineTransform{}, fmt.Errorf("%w: longitude is undefined at latitude %v", ErrNonInvertible, a.Latitude)
	}

	toLocal := PlaneToPlane(modelPlane, WorldXY)
	toDegrees := AffineTransform{
		{metersPerUnit / perDegreeLongitude, 0, 0, 0},
		{0, metersPerUnit / perDegreeLatitude, 0, 0},
		{0, 0, metersPerUnit, 0},
		{0, 0, 0, 1},
	}
	toAnchor := Translation(Vector3{X: a.Longitude, Y: a.Latitude, Z: a.Elevation})
	return toAnchor.Multiply(toDegrees).Multiply(toLocal), nil
}

// EarthToModelTransform returns the inverse of [ModelToEarthTransform].
func EarthToModelTransform(a GeoAnchor) (AffineTransform, error) {
	modelToEarth, err := ModelToEarthTransform(a)
	if err != nil {
		return AffineTransform{}, err
	}
	return modelToEarth.Inverse()
}

// ModelToWGS84 returns model points converted to longitude, latitude, and
// elevation.
func ModelToWGS84(a GeoAnchor, points []Point3) ([]Point3, error) {
	modelToEarth, err := ModelToEarthTransform(a)
	if err != nil {
		return nil, err
	}
	return transformedCopy(modelToEarth, points), nil
}

// WGS84ToModel returns longitude, latitude, and elevation points converted
// to model points.
func WGS84ToModel(a GeoAnchor, points []Point3) ([]Point3, error) {
	earthToModel, err := EarthToModelTransform(a)
	if err != nil {
		return nil, err
	}
	return transformedCopy(earthToModel, points), nil
}

func transformedCopy(t AffineTransform, points []Point3) []Point3 {
	result := make([]Point3, len(points))
	for i, point := range points {
		result[i] = t.TransformPoint(point)
	}
	return result
}
