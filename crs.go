package geoanchor

// A CRSKind classifies a coordinate reference system.
type CRSKind int

// CRS kinds.
const (
	CRSKindUnknown CRSKind = iota
	CRSKindGeographic
	CRSKindProjected
	CRSKindLocal
)

func (k CRSKind) String() string {
	switch k {
	case CRSKindGeographic:
		return "geographic"
	case CRSKindProjected:
		return "projected"
	case CRSKindLocal:
		return "local"
	default:
		return "unknown"
	}
}

// WGS84 is the descriptor of the WGS84 geographic CRS, the native system of
// GeoAnchor coordinates.
const WGS84 = "WGS84"

// A SpatialReference is a CRS resolved by a [SpatialReferenceLibrary]. It
// must be closed after use.
type SpatialReference interface {
	Kind() CRSKind
	LinearUnitName() string
	Close()
}

// A CoordinateTransformation transforms points between two CRSs. Points use
// traditional GIS axis order: longitude, latitude for geographic CRSs and
// easting, northing for projected CRSs. A CoordinateTransformation is not safe
// for concurrent use and must be closed after use.
type CoordinateTransformation interface {
	Transform(points []Point3) ([]Point3, error)
	Close()
}

// A SpatialReferenceLibrary is an external CRS library.
type SpatialReferenceLibrary interface {
	// NewSpatialReference resolves descriptor, which may be an authority code
	// like "EPSG:2263", a well-known name like "WGS84", WKT, or a PROJ string.
	NewSpatialReference(descriptor string) (SpatialReference, error)

	// NewCoordinateTransformation returns a new transformation from source to
	// target.
	NewCoordinateTransformation(source, target SpatialReference) (CoordinateTransformation, error)
}
