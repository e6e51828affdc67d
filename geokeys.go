package geoanchor

import (
	"errors"
	"fmt"
	"strings"
)

var errParse = errors.New("parse error")

type GeoKey uint16

const (
	GeoKeyGTModelType  GeoKey = 1024
	GeoKeyGTRasterType GeoKey = 1025
	GeoKeyGTCitation   GeoKey = 1026

	GeoKeyGeodeticCRS         GeoKey = 2048
	GeoKeyGeogCitation        GeoKey = 2049
	GeoKeyGeogLinearUnits     GeoKey = 2052
	GeoKeyGeogAngularUnits    GeoKey = 2054
	GeoKeyGeogAngularUnitSize GeoKey = 2055

	GeoKeyProjectedCRS       GeoKey = 3072
	GeoKeyPCSCitation        GeoKey = 3073
	GeoKeyProjLinearUnits    GeoKey = 3076
	GeoKeyProjLinearUnitSize GeoKey = 3077

	GeoKeyVerticalCRS   GeoKey = 4096
	GeoKeyVerticalUnits GeoKey = 4099
)

// Values of GeoKeyGTRasterType.
const (
	RasterPixelIsArea  = 1
	RasterPixelIsPoint = 2
)

// userDefined is the GeoKey value for a user-defined code.
const userDefined = 32767

// TIFF tags holding GeoKey values that do not fit in the directory.
const (
	geoDoubleParamsTag = 34736
	geoASCIIParamsTag  = 34737
)

// epsgLinearUnitNames maps EPSG unit of measure codes to the names that
// LinearUnitSystem understands.
var epsgLinearUnitNames = map[int]string{
	9001: "metre",
	9002: "foot",
	9003: "US survey foot",
}

type ParsedGeoKeys struct {
	Params       map[GeoKey]int
	DoubleParams map[GeoKey]float64
	ASCIIParams  map[GeoKey]string
}

// ParseGeoKeys parses a GeoTIFF GeoKey directory and its associated double
// and ASCII parameters.
func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams []byte) (*ParsedGeoKeys, error) {
	if len(directory) < 4 {
		return nil, errParse
	}
	switch {
	case directory[0] != 1: // KeyDirectoryVersion.
		return nil, errParse
	case directory[1] != 1: // KeyRevision.
		return nil, errParse
	case directory[2] > 1: // MinorRevision.
		return nil, errParse
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4*(numberOfKeys+1) {
		return nil, errParse
	}

	parsedGeoKeys := &ParsedGeoKeys{
		Params:       make(map[GeoKey]int),
		DoubleParams: make(map[GeoKey]float64),
		ASCIIParams:  make(map[GeoKey]string),
	}
	for i := range numberOfKeys {
		entry := directory[4*(i+1) : 4*(i+2)]
		key, location, count, value := GeoKey(entry[0]), int(entry[1]), int(entry[2]), int(entry[3])
		switch location {
		case 0:
			if count != 1 {
				return nil, errParse
			}
			parsedGeoKeys.Params[key] = value
		case geoDoubleParamsTag:
			if count != 1 {
				return nil, errors.ErrUnsupported
			}
			if value >= len(doubleParams) {
				return nil, errParse
			}
			parsedGeoKeys.DoubleParams[key] = doubleParams[value]
		case geoASCIIParamsTag:
			if value+count > len(asciiParams) {
				return nil, errParse
			}
			parsedGeoKeys.ASCIIParams[key] = string(asciiParams[value : value+count])
		default:
			return nil, errors.ErrUnsupported
		}
	}
	return parsedGeoKeys, nil
}

// SpatialReferenceDescriptor returns a descriptor of the CRS described by k:
// an EPSG code for the projected CRS, else for the geodetic CRS. For
// user-defined projected CRSs it falls back to an ESRI PE string in the
// citation, if present.
func (k *ParsedGeoKeys) SpatialReferenceDescriptor() (string, error) {
	if code, ok := k.Params[GeoKeyProjectedCRS]; ok && code != userDefined {
		return fmt.Sprintf("EPSG:%d", code), nil
	}
	for _, key := range []GeoKey{GeoKeyPCSCitation, GeoKeyGTCitation} {
		const prefix = "ESRI PE String = "
		if citation, ok := k.ASCIIParams[key]; ok && strings.HasPrefix(citation, prefix) {
			return strings.TrimRight(strings.TrimPrefix(citation, prefix), "|"), nil
		}
	}
	if _, ok := k.Params[GeoKeyProjectedCRS]; !ok {
		if code, ok := k.Params[GeoKeyGeodeticCRS]; ok && code != userDefined {
			return fmt.Sprintf("EPSG:%d", code), nil
		}
	}
	return "", fmt.Errorf("%w: no usable CRS in GeoKeys", errors.ErrUnsupported)
}

// LinearUnitName returns the name of the projected linear unit in k, if any.
func (k *ParsedGeoKeys) LinearUnitName() (string, bool) {
	code, ok := k.Params[GeoKeyProjLinearUnits]
	if !ok {
		return "", false
	}
	name, ok := epsgLinearUnitNames[code]
	return name, ok
}

// PixelIsPoint returns if k declares that raster values represent points
// rather than areas.
func (k *ParsedGeoKeys) PixelIsPoint() bool {
	return k.Params[GeoKeyGTRasterType] == RasterPixelIsPoint
}
