package geoanchor

import (
	"fmt"
	"math"
	"strings"

	"github.com/ctessum/geom/proj"
)

const wgs84ProjString = "+proj=longlat +datum=WGS84 +no_defs"

// A ProjStringLibrary is a pure Go [SpatialReferenceLibrary] that understands
// PROJ strings and WKT, plus the names "WGS84" and "EPSG:4326". It does not
// have access to an authority database, so other authority codes are
// rejected.
type ProjStringLibrary struct{}

type projStringSpatialReference struct {
	sr             *proj.SR
	kind           CRSKind
	linearUnitName string
}

type projStringCoordinateTransformation struct {
	transformer proj.Transformer
}

// NewProjStringLibrary returns a new ProjStringLibrary.
func NewProjStringLibrary() *ProjStringLibrary {
	return &ProjStringLibrary{}
}

// NewSpatialReference implements [SpatialReferenceLibrary.NewSpatialReference].
func (l *ProjStringLibrary) NewSpatialReference(descriptor string) (SpatialReference, error) {
	definition := strings.TrimSpace(descriptor)
	switch strings.ToUpper(definition) {
	case "":
		return nil, fmt.Errorf("%w: empty descriptor", ErrInvalidSpatialReference)
	case WGS84, "EPSG:4326":
		definition = wgs84ProjString
	}
	if !strings.HasPrefix(definition, "+") && !strings.HasPrefix(definition, "PROJCS") && !strings.HasPrefix(definition, "GEOGCS") {
		return nil, fmt.Errorf("%w: %s: not a PROJ string or WKT", ErrInvalidSpatialReference, descriptor)
	}

	sr, err := proj.Parse(definition)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSpatialReference, descriptor, err)
	}
	if _, _, err := sr.Transformers(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSpatialReference, descriptor, err)
	}

	kind := CRSKindProjected
	switch strings.ToLower(sr.Name) {
	case "longlat", "latlong", "lonlat", "latlon":
		kind = CRSKindGeographic
	}

	return &projStringSpatialReference{
		sr:             sr,
		kind:           kind,
		linearUnitName: projStringLinearUnitName(sr),
	}, nil
}

// NewCoordinateTransformation implements
// [SpatialReferenceLibrary.NewCoordinateTransformation].
func (l *ProjStringLibrary) NewCoordinateTransformation(source, target SpatialReference) (CoordinateTransformation, error) {
	sourceSR, ok := source.(*projStringSpatialReference)
	if !ok {
		return nil, fmt.Errorf("%w: source is not a PROJ string spatial reference", ErrInvalidSpatialReference)
	}
	targetSR, ok := target.(*projStringSpatialReference)
	if !ok {
		return nil, fmt.Errorf("%w: target is not a PROJ string spatial reference", ErrInvalidSpatialReference)
	}
	transformer, err := sourceSR.sr.NewTransform(targetSR.sr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProjectionFailure, err)
	}
	// NewTransform returns a nil Transformer when source and target are
	// equal.
	if transformer == nil {
		transformer = identityTransformer
	}
	return &projStringCoordinateTransformation{
		transformer: transformer,
	}, nil
}

func (r *projStringSpatialReference) Kind() CRSKind {
	return r.kind
}

func (r *projStringSpatialReference) LinearUnitName() string {
	return r.linearUnitName
}

func (r *projStringSpatialReference) Close() {}

// Transform transforms the horizontal components of points. Heights pass
// through unchanged.
func (t *projStringCoordinateTransformation) Transform(points []Point3) ([]Point3, error) {
	result := make([]Point3, len(points))
	for i, point := range points {
		x, y, err := t.transformer(point.X, point.Y)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProjectionFailure, err)
		}
		result[i] = Point3{X: x, Y: y, Z: point.Z}
	}
	return result, nil
}

func (t *projStringCoordinateTransformation) Close() {}

func identityTransformer(x, y float64) (float64, float64, error) {
	return x, y, nil
}

// projStringLinearUnitName returns the name of sr's linear unit. PROJ strings
// without +units or +to_meter are in meters.
func projStringLinearUnitName(sr *proj.SR) string {
	if sr.Units != "" {
		return sr.Units
	}
	switch {
	case math.IsNaN(sr.ToMeter) || sr.ToMeter == 1:
		return "metre"
	case math.Abs(sr.ToMeter-0.3048) < 1e-12:
		return "foot"
	case math.Abs(sr.ToMeter-1200.0/3937.0) < 1e-12:
		return "US survey foot"
	default:
		return fmt.Sprintf("to_meter=%g", sr.ToMeter)
	}
}
