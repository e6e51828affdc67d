package geoanchor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/tiff/lzw"
)

var errShortRead = errors.New("short read")

// A GeoTIFFRaster is an open single band GeoTIFF file with float32 samples in
// LZW-compressed tiles.
type GeoTIFFRaster struct {
	file                      *os.File
	imageWidth                int
	imageLength               int
	tileWidth                 int
	tileLength                int
	tilesAcross               int
	tileOffsets               []uint64
	tileByteCounts            []uint64
	tileSampleCount           int
	tileByteCountUncompressed int
	tileCacheSizeBytes        int
	tileSamplesCache          *lru.Cache[TileCoord, []float32]
	noData                    float32
	hasNoData                 bool
	descriptor                string
	pixelToCRS                AffineTransform
	crsToPixel                AffineTransform
}

// A GeoTIFFRasterOption sets an option on a GeoTIFFRaster.
type GeoTIFFRasterOption func(*GeoTIFFRaster)

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth                uint16    `tiff:"field,tag=256"`
	ImageLength               uint16    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	PlanarConfiguration       uint16    `tiff:"field,tag=284"`
	Predictor                 uint16    `tiff:"field,tag=317"`
	TileWidth                 uint16    `tiff:"field,tag=322"`
	TileLength                uint16    `tiff:"field,tag=323"`
	TileOffsets               []uint64  `tiff:"field,tag=324"`
	TileByteCounts            []uint64  `tiff:"field,tag=325"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag        []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag          []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag        []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag        []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag         string    `tiff:"field,tag=34737"`
	GDALNoData                string    `tiff:"field,tag=42113"`
}

// NewGeoTIFFRaster opens filename in fsys.
func NewGeoTIFFRaster(fsys fs.FS, filename string, options ...GeoTIFFRasterOption) (*GeoTIFFRaster, error) {
	r := &GeoTIFFRaster{
		tileCacheSizeBytes: 64 << 20, // 64MB.
	}
	for _, option := range options {
		option(r)
	}

	file, err := fsys.Open(filename)
	if err != nil {
		return nil, err
	}
	osFile, ok := file.(*os.File)
	if !ok {
		_ = file.Close()
		return nil, errors.ErrUnsupported
	}
	r.file = osFile
	success := false
	defer func() {
		if !success {
			_ = r.file.Close()
		}
	}()

	tiffTIFF, err := tiff.Parse(r.file, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, err
	}
	if n := len(tiffTIFF.IFDs()); n == 0 {
		return nil, fmt.Errorf("%s: no IFDs", filename)
	}
	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, err
	}
	if err := r.init(&ifd); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	success = true
	return r, nil
}

// WithTileCacheSize sets the size of the decoded tile cache in bytes.
func WithTileCacheSize(tileCacheSize int) GeoTIFFRasterOption {
	return func(r *GeoTIFFRaster) {
		r.tileCacheSizeBytes = tileCacheSize
	}
}

// WithRasterSpatialReferenceDescriptor overrides the CRS read from the
// raster's GeoKeys.
func WithRasterSpatialReferenceDescriptor(descriptor string) GeoTIFFRasterOption {
	return func(r *GeoTIFFRaster) {
		r.descriptor = descriptor
	}
}

func (r *GeoTIFFRaster) init(ifd *geoTIFFIFD) error {
	if ifd.BitsPerSample != 32 ||
		ifd.Compression != 5 ||
		ifd.SamplesPerPixel != 1 ||
		ifd.PlanarConfiguration > 1 ||
		ifd.Predictor > 1 ||
		ifd.SampleFormat != 3 ||
		ifd.TileWidth == 0 || ifd.TileLength == 0 ||
		len(ifd.ModelPixelScaleTag) != 3 ||
		len(ifd.ModelTiepointTag) < 6 {
		return errors.ErrUnsupported
	}

	r.imageWidth = int(ifd.ImageWidth)
	r.imageLength = int(ifd.ImageLength)
	r.tileWidth = int(ifd.TileWidth)
	r.tileLength = int(ifd.TileLength)
	r.tilesAcross = (r.imageWidth + r.tileWidth - 1) / r.tileWidth
	tilesDown := (r.imageLength + r.tileLength - 1) / r.tileLength
	if tilesPerImage := r.tilesAcross * tilesDown; len(ifd.TileByteCounts) != tilesPerImage || len(ifd.TileOffsets) != tilesPerImage {
		return errors.New("incorrect number of tile byte counts or offsets")
	}
	r.tileOffsets = ifd.TileOffsets
	r.tileByteCounts = ifd.TileByteCounts
	r.tileSampleCount = r.tileWidth * r.tileLength
	r.tileByteCountUncompressed = r.tileSampleCount * int(ifd.BitsPerSample) / 8

	if noData := strings.TrimSpace(strings.TrimRight(ifd.GDALNoData, "\x00")); noData != "" {
		value, err := strconv.ParseFloat(noData, 64)
		if err != nil {
			return fmt.Errorf("GDAL_NODATA: %w", err)
		}
		r.noData = float32(value)
		r.hasNoData = true
	}

	geoKeys, err := ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
	if err != nil {
		return err
	}
	if r.descriptor == "" {
		r.descriptor, err = geoKeys.SpatialReferenceDescriptor()
		if err != nil {
			return err
		}
	}

	r.pixelToCRS = pixelToCRSTransform(ifd.ModelPixelScaleTag, ifd.ModelTiepointTag, geoKeys.PixelIsPoint())
	r.crsToPixel, err = r.pixelToCRS.Inverse()
	if err != nil {
		return err
	}

	tileCacheCount := max(r.tileCacheSizeBytes/r.tileByteCountUncompressed, 1)
	r.tileSamplesCache, err = lru.New[TileCoord, []float32](tileCacheCount)
	return err
}

// pixelToCRSTransform returns the transform from pixel coordinates, where
// integer coordinates are pixel centers, to CRS coordinates.
func pixelToCRSTransform(scale, tiepoint []float64, pixelIsPoint bool) AffineTransform {
	i, j := tiepoint[0], tiepoint[1]
	x, y := tiepoint[3], tiepoint[4]
	if !pixelIsPoint {
		i -= 0.5
		j -= 0.5
	}
	return AffineTransform{
		{scale[0], 0, 0, x - i*scale[0]},
		{0, -scale[1], 0, y + j*scale[1]},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Close closes r.
func (r *GeoTIFFRaster) Close() error {
	return r.file.Close()
}

// SpatialReferenceDescriptor returns the descriptor of r's CRS.
func (r *GeoTIFFRaster) SpatialReferenceDescriptor() string {
	return r.descriptor
}

// PixelToCRS returns the transform from r's pixel centers to its CRS.
func (r *GeoTIFFRaster) PixelToCRS() AffineTransform {
	return r.pixelToCRS
}

// Bounds returns the extent of r's pixel centers in its CRS.
func (r *GeoTIFFRaster) Bounds() (lower, upper Point3) {
	p0 := r.pixelToCRS.TransformPoint(Point3{})
	p1 := r.pixelToCRS.TransformPoint(Point3{X: float64(r.imageWidth - 1), Y: float64(r.imageLength - 1)})
	lower = Point3{X: math.Min(p0.X, p1.X), Y: math.Min(p0.Y, p1.Y)}
	upper = Point3{X: math.Max(p0.X, p1.X), Y: math.Max(p0.Y, p1.Y)}
	return
}

// Elevations returns the bilinearly interpolated samples at coords in r's
// CRS. Missing samples are NaN.
func (r *GeoTIFFRaster) Elevations(ctx context.Context, coords [][]float64) ([]float64, error) {
	pixelCoords := make([][]float64, len(coords))
	for i, coord := range coords {
		p := r.crsToPixel.TransformPoint(Point3{X: coord[0], Y: coord[1]})
		pixelCoords[i] = []float64{p.X, p.Y}
	}
	return InterpolateBilinear(ctx, r, pixelCoords)
}

// Sample returns a single sample from r.
func (r *GeoTIFFRaster) Sample(ctx context.Context, coord Coord) (float64, error) {
	samples, err := r.Samples(ctx, []Coord{coord})
	if err != nil {
		return 0, err
	}
	return samples[0], nil
}

// Samples returns the samples at pixel coords. Missing samples are NaN.
func (r *GeoTIFFRaster) Samples(ctx context.Context, coords []Coord) ([]float64, error) {
	samples := make([]float64, len(coords))

	// Group indexes by tile coord.
	indexesByTileCoord := make(map[TileCoord][]int)
	for index, coord := range coords {
		tileCoord, ok := r.tileCoord(coord)
		if !ok {
			samples[index] = math.NaN()
			continue
		}
		indexesByTileCoord[tileCoord] = append(indexesByTileCoord[tileCoord], index)
	}

	// Populate samples one tile at a time.
	for tileCoord, indexes := range indexesByTileCoord {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slices.Sort(indexes)
		tileSamples, err := r.getTileSamplesCached(tileCoord)
		if err != nil {
			return nil, err
		}
		for _, index := range indexes {
			samples[index] = r.tileSample(tileSamples, coords[index])
		}
	}

	return samples, nil
}

// getTileSamplesCached returns the decoded samples of the tile at tileCoord,
// using r's cache.
func (r *GeoTIFFRaster) getTileSamplesCached(tileCoord TileCoord) ([]float32, error) {
	if tileSamples, ok := r.tileSamplesCache.Get(tileCoord); ok {
		return tileSamples, nil
	}
	tileSamples, err := r.getTileSamples(tileCoord)
	if err != nil {
		return nil, err
	}
	r.tileSamplesCache.Add(tileCoord, tileSamples)
	return tileSamples, nil
}

// getTileSamples reads, decompresses, and decodes the tile at tileCoord.
func (r *GeoTIFFRaster) getTileSamples(tileCoord TileCoord) ([]float32, error) {
	tileIndex := tileCoord.C + r.tilesAcross*tileCoord.R
	tileByteCount := r.tileByteCounts[tileIndex]
	compressedData := make([]byte, tileByteCount)
	switch n, err := r.file.ReadAt(compressedData, int64(r.tileOffsets[tileIndex])); {
	case err != nil:
		return nil, err
	case n != int(tileByteCount):
		return nil, errShortRead
	}

	tileData := make([]byte, r.tileByteCountUncompressed)
	lzwReader := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
	defer lzwReader.Close()
	if _, err := io.ReadFull(lzwReader, tileData); err != nil {
		return nil, err
	}

	tileSamples := make([]float32, r.tileSampleCount)
	for i := range tileSamples {
		tileSamples[i] = math.Float32frombits(binary.LittleEndian.Uint32(tileData[4*i : 4*(i+1)]))
	}
	return tileSamples, nil
}

// tileCoord returns the tile containing coord.
func (r *GeoTIFFRaster) tileCoord(coord Coord) (TileCoord, bool) {
	if coord.X < 0 || r.imageWidth <= coord.X || coord.Y < 0 || r.imageLength <= coord.Y {
		return TileCoord{}, false
	}
	return TileCoord{
		C: coord.X / r.tileWidth,
		R: coord.Y / r.tileLength,
	}, true
}

// tileSample returns the sample from tileSamples at coord.
func (r *GeoTIFFRaster) tileSample(tileSamples []float32, coord Coord) float64 {
	sample := tileSamples[coord.X%r.tileWidth+(coord.Y%r.tileLength)*r.tileWidth]
	if r.hasNoData && sample == r.noData {
		return math.NaN()
	}
	return float64(sample)
}
