package geoanchor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dewberry/gdal"
	"github.com/twpayne/go-proj/v10"
)

// A GDALLibrary is a [SpatialReferenceLibrary] that parses and classifies
// CRSs with GDAL's OSR and transforms points with PROJ.
type GDALLibrary struct{}

type gdalSpatialReference struct {
	sr             gdal.SpatialReference
	descriptor     string
	wkt            string
	kind           CRSKind
	linearUnitName string
	closed         bool
}

type projCoordinateTransformation struct {
	context *proj.Context
	pj      *proj.PJ
}

// NewGDALLibrary returns a new GDALLibrary.
func NewGDALLibrary() *GDALLibrary {
	return &GDALLibrary{}
}

// NewSpatialReference implements [SpatialReferenceLibrary.NewSpatialReference].
func (l *GDALLibrary) NewSpatialReference(descriptor string) (SpatialReference, error) {
	if strings.TrimSpace(descriptor) == "" {
		return nil, fmt.Errorf("%w: empty descriptor", ErrInvalidSpatialReference)
	}

	ok := false
	sr := gdal.CreateSpatialReference("")
	defer func() {
		if !ok {
			sr.Destroy()
		}
	}()

	if err := sr.SetFromUserInput(descriptor); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSpatialReference, descriptor, err)
	}
	wkt, err := sr.ToWKT()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSpatialReference, descriptor, err)
	}
	if wkt == "" {
		return nil, fmt.Errorf("%w: %s: empty definition", ErrInvalidSpatialReference, descriptor)
	}

	var kind CRSKind
	switch {
	case sr.IsGeographic():
		kind = CRSKindGeographic
	case sr.IsProjected():
		kind = CRSKindProjected
	case sr.IsLocal():
		kind = CRSKindLocal
	}
	_, linearUnitName := sr.LinearUnits()

	ok = true
	return &gdalSpatialReference{
		sr:             sr,
		descriptor:     descriptor,
		wkt:            wkt,
		kind:           kind,
		linearUnitName: linearUnitName,
	}, nil
}

// NewCoordinateTransformation implements
// [SpatialReferenceLibrary.NewCoordinateTransformation].
func (l *GDALLibrary) NewCoordinateTransformation(source, target SpatialReference) (CoordinateTransformation, error) {
	sourceSR, ok := source.(*gdalSpatialReference)
	if !ok {
		return nil, fmt.Errorf("%w: source is not a GDAL spatial reference", ErrInvalidSpatialReference)
	}
	targetSR, ok := target.(*gdalSpatialReference)
	if !ok {
		return nil, fmt.Errorf("%w: target is not a GDAL spatial reference", ErrInvalidSpatialReference)
	}

	// PJ objects are not safe for concurrent use, so every transformation
	// gets its own context.
	context := proj.NewContext()
	success := false
	defer func() {
		if !success {
			context.Destroy()
		}
	}()

	pj, err := context.NewCRSToCRS(sourceSR.wkt, targetSR.wkt, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s to %s: %w", ErrProjectionFailure, sourceSR.descriptor, targetSR.descriptor, err)
	}
	defer pj.Destroy()

	normalizedPJ, err := pj.NormalizeForVisualization()
	if err != nil {
		return nil, fmt.Errorf("%w: %s to %s: %w", ErrProjectionFailure, sourceSR.descriptor, targetSR.descriptor, err)
	}

	success = true
	return &projCoordinateTransformation{
		context: context,
		pj:      normalizedPJ,
	}, nil
}

func (r *gdalSpatialReference) Kind() CRSKind {
	return r.kind
}

func (r *gdalSpatialReference) LinearUnitName() string {
	return r.linearUnitName
}

func (r *gdalSpatialReference) Close() {
	if r.closed {
		return
	}
	r.sr.Destroy()
	r.closed = true
}

func (t *projCoordinateTransformation) Transform(points []Point3) ([]Point3, error) {
	if t.pj == nil {
		return nil, errors.New("transformation closed")
	}
	coords := make([]proj.Coord, len(points))
	for i, point := range points {
		coords[i] = proj.Coord{point.X, point.Y, point.Z, 0}
	}
	if err := t.pj.ForwardArray(coords); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProjectionFailure, err)
	}
	result := make([]Point3, len(coords))
	for i, coord := range coords {
		result[i] = Point3{X: coord[0], Y: coord[1], Z: coord[2]}
	}
	return result, nil
}

func (t *projCoordinateTransformation) Close() {
	if t.pj != nil {
		t.pj.Destroy()
		t.pj = nil
	}
	if t.context != nil {
		t.context.Destroy()
		t.context = nil
	}
}
