package geoanchor

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// DefaultProbeOffset is the default distance in degrees between the anchor
// and the north and east probe points.
const DefaultProbeOffset = 0.5

// A Resolver resolves transforms from model space to target CRSs. It is safe
// for concurrent use.
type Resolver struct {
	library     SpatialReferenceLibrary
	probeOffset float64
	cacheSize   int
	cache       *lru.Cache[resolutionKey, *Resolution]
	logger      logrus.FieldLogger
}

// A ResolverOption sets an option on a Resolver.
type ResolverOption func(*Resolver)

type resolutionKey struct {
	anchor GeoAnchor
	target string
}

// A Resolution is a resolved transform between model space and a target CRS.
// It is immutable and safe for concurrent use.
type Resolution struct {
	Anchor         GeoAnchor
	Target         string
	Kind           CRSKind
	LinearUnitName string          // As reported by the CRS library.
	LinearUnit     UnitSystem      // Only meaningful when Kind is not CRSKindGeographic.
	Scale          float64         // Target units per model unit, 1 for geographic targets.
	Plane          Plane           // Anchor plane in target coordinates.
	Forward        AffineTransform // Model to target.

	inverseOnce sync.Once
	inverse     AffineTransform
	inverseErr  error
}

// NewResolver returns a new Resolver with the given options.
func NewResolver(options ...ResolverOption) (*Resolver, error) {
	r := &Resolver{
		probeOffset: DefaultProbeOffset,
	}
	for _, option := range options {
		option(r)
	}
	if r.library == nil {
		r.library = NewGDALLibrary()
	}
	if r.logger == nil {
		r.logger = logrus.StandardLogger()
	}
	if !(0 < r.probeOffset && r.probeOffset <= 10) {
		return nil, fmt.Errorf("%v: probe offset out of range", r.probeOffset)
	}
	if r.cacheSize > 0 {
		var err error
		r.cache, err = lru.New[resolutionKey, *Resolution](r.cacheSize)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithLibrary sets the CRS library. The default is a [GDALLibrary].
func WithLibrary(library SpatialReferenceLibrary) ResolverOption {
	return func(r *Resolver) {
		r.library = library
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithProbeOffset sets the probe offset in degrees.
func WithProbeOffset(probeOffset float64) ResolverOption {
	return func(r *Resolver) {
		r.probeOffset = probeOffset
	}
}

// WithResultCacheSize enables memoization of up to resultCacheSize
// resolutions. By default every call resolves both CRSs from scratch.
func WithResultCacheSize(resultCacheSize int) ResolverOption {
	return func(r *Resolver) {
		r.cacheSize = resultCacheSize
	}
}

// ResolveTransform resolves the transform from anchor's model space to
// target with a new Resolver using library.
func ResolveTransform(library SpatialReferenceLibrary, anchor GeoAnchor, target string) (*Resolution, error) {
	r, err := NewResolver(WithLibrary(library))
	if err != nil {
		return nil, err
	}
	return r.ResolveTransform(anchor, target)
}

// ProbeOffset returns r's probe offset in degrees.
func (r *Resolver) ProbeOffset() float64 {
	return r.probeOffset
}

// ResolveTransform resolves the transform from anchor's model space to
// target.
func (r *Resolver) ResolveTransform(anchor GeoAnchor, target string) (*Resolution, error) {
	resolution, err := r.resolveCached(anchor, target)
	resolutionsTotal.WithLabelValues(resultLabel(err)).Inc()
	logger := r.logger.WithField("target", target)
	if err != nil {
		logger.WithError(err).Debug("resolve transform failed")
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"kind":  resolution.Kind,
		"scale": resolution.Scale,
	}).Debug("resolved transform")
	return resolution, nil
}

func (r *Resolver) resolveCached(anchor GeoAnchor, target string) (*Resolution, error) {
	if r.cache == nil {
		return r.resolve(anchor, target)
	}
	key := resolutionKey{anchor: anchor, target: target}
	if resolution, ok := r.cache.Get(key); ok {
		resolutionCacheHits.Inc()
		return resolution, nil
	}
	resolutionCacheMisses.Inc()
	resolution, err := r.resolve(anchor, target)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, resolution)
	return resolution, nil
}

func (r *Resolver) resolve(anchor GeoAnchor, target string) (*Resolution, error) {
	if err := anchor.Validate(); err != nil {
		return nil, err
	}
	modelPlane, err := anchor.ModelPlane()
	if err != nil {
		return nil, err
	}

	targetSR, err := r.library.NewSpatialReference(target)
	if err != nil {
		return nil, wrapError(ErrInvalidSpatialReference, err)
	}
	defer targetSR.Close()

	sourceSR, err := r.library.NewSpatialReference(WGS84)
	if err != nil {
		return nil, wrapError(ErrInvalidSpatialReference, err)
	}
	defer sourceSR.Close()

	transformation, err := r.library.NewCoordinateTransformation(sourceSR, targetSR)
	if err != nil {
		return nil, wrapError(ErrProjectionFailure, err)
	}
	defer transformation.Close()

	probes, northSign, eastSign := probePoints(anchor, r.probeOffset)
	transformed, err := transformation.Transform(probes)
	if err != nil {
		return nil, wrapError(ErrProjectionFailure, err)
	}
	if len(transformed) != len(probes) {
		return nil, fmt.Errorf("%w: got %d points, expected %d", ErrProjectionFailure, len(transformed), len(probes))
	}
	for i, point := range transformed {
		if !point.IsValid() {
			return nil, fmt.Errorf("%w: probe %v transformed to %v", ErrProjectionFailure, probes[i], point)
		}
	}
	origin := transformed[0]
	northVec := transformed[1].Sub(origin).Scale(northSign)
	eastVec := transformed[2].Sub(origin).Scale(eastSign)

	resolution := &Resolution{
		Anchor:         anchor,
		Target:         target,
		Kind:           targetSR.Kind(),
		LinearUnitName: targetSR.LinearUnitName(),
	}

	switch resolution.Kind {
	case CRSKindGeographic:
		// Degrees are not a linear unit, so use the ellipsoidal model to
		// earth transform, shifted by any datum difference at the anchor.
		modelToEarth, err := ModelToEarthTransform(anchor)
		if err != nil {
			return nil, err
		}
		datumShift := origin.Sub(Point3{X: anchor.Longitude, Y: anchor.Latitude, Z: anchor.Elevation})
		resolution.Forward = Translation(datumShift).Multiply(modelToEarth)
		resolution.Scale = 1
		resolution.Plane, err = NewPlane(
			origin,
			resolution.Forward.TransformVector(modelPlane.XAxis),
			resolution.Forward.TransformVector(modelPlane.YAxis),
		)
		if err != nil {
			return nil, err
		}
	default:
		plane, err := NewPlane(origin, eastVec, northVec)
		if err != nil {
			return nil, err
		}
		linearUnit, err := LinearUnitSystem(resolution.LinearUnitName)
		if err != nil {
			return nil, err
		}
		scale, err := UnitScale(anchor.UnitSystem, linearUnit)
		if err != nil {
			return nil, err
		}
		// Probe heights are in meters.
		elevationScale, err := UnitScale(Meters, linearUnit)
		if err != nil {
			return nil, err
		}
		plane.Origin.Z *= elevationScale
		resolution.LinearUnit = linearUnit
		resolution.Scale = scale
		resolution.Plane = plane
		resolution.Forward = Scale(plane.Origin, scale).Multiply(PlaneToPlane(modelPlane, plane))
	}

	if !resolution.Forward.IsValid() {
		return nil, fmt.Errorf("%w: transform has non-finite components", ErrProjectionFailure)
	}
	return resolution, nil
}

// Inverse returns the transform from target to model space. It is computed
// on first use.
func (r *Resolution) Inverse() (AffineTransform, error) {
	r.inverseOnce.Do(func() {
		r.inverse, r.inverseErr = r.Forward.Inverse()
	})
	return r.inverse, r.inverseErr
}

// ModelToTarget returns model points transformed to the target CRS.
func (r *Resolution) ModelToTarget(points []Point3) []Point3 {
	return transformedCopy(r.Forward, points)
}

// TargetToModel returns target CRS points transformed to model space.
func (r *Resolution) TargetToModel(points []Point3) ([]Point3, error) {
	inverse, err := r.Inverse()
	if err != nil {
		return nil, err
	}
	return transformedCopy(inverse, points), nil
}

// probePoints returns the anchor, north, and east probe points. Probes that
// would cross the pole or the antimeridian are taken in the opposite
// direction, in which case the returned sign is negative.
func probePoints(a GeoAnchor, offset float64) (probes []Point3, northSign, eastSign float64) {
	northLatitude, northSign := a.Latitude+offset, 1.0
	if northLatitude > 90 {
		northLatitude, northSign = a.Latitude-offset, -1
	}
	eastLongitude, eastSign := a.Longitude+offset, 1.0
	if eastLongitude > 180 {
		eastLongitude, eastSign = a.Longitude-offset, -1
	}
	probes = []Point3{
		{X: a.Longitude, Y: a.Latitude, Z: a.Elevation},
		{X: a.Longitude, Y: northLatitude, Z: a.Elevation},
		{X: eastLongitude, Y: a.Latitude, Z: a.Elevation},
	}
	return probes, northSign, eastSign
}

// wrapError returns err wrapped with sentinel, unless err already wraps one
// of this package's errors.
func wrapError(sentinel, err error) error {
	for _, known := range []error{
		ErrInvalidAnchor,
		ErrInvalidSpatialReference,
		ErrNonInvertible,
		ErrProjectionFailure,
		ErrUnsupportedLinearUnit,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
