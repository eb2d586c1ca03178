package geotiff

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
)

const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagSamplesPerPixel     = 277
	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGDALNoData          = 42113
)

// Opener implements ports.RasterOpener for GeoTIFF files. Georeferencing
// comes from the GeoTIFF model tags or, failing that, an ESRI world file
// (.tfw) next to the image. Pixels are decoded with golang.org/x/image/tiff,
// so 8/16-bit gray, RGB(A) and paletted images are supported; floating-point
// samples are not.
type Opener struct {
	logger *slog.Logger
}

// NewOpener creates a new Opener.
func NewOpener(logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{logger: logger}
}

// Open reads the file header and tags. Pixel data is decoded on the first
// ReadBand call.
func (o *Opener) Open(path string) (ports.RasterSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	order, fields, err := readFields(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	width, height := firstUint(fields, order, tagImageWidth), firstUint(fields, order, tagImageLength)
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%s: missing image dimensions", path)
	}
	bands := firstUint(fields, order, tagSamplesPerPixel)
	if bands == 0 {
		bands = 1
	}

	gt, ok := transformFromFields(fields, order)
	if !ok {
		gt, err = readWorldFile(path)
		if err != nil {
			return nil, &domain.PreconditionError{Op: "open", Reason: fmt.Sprintf("%s has no georeferencing: %v", path, err)}
		}
		o.logger.Debug("georeferencing from world file", "path", path)
	}

	r := &Raster{
		path:   path,
		data:   data,
		width:  int(width),
		height: int(height),
		bands:  int(bands),
		gt:     gt,
	}
	if f, ok := fields[tagGDALNoData]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(f.ascii()), 64); err == nil {
			r.noData, r.hasNoData = v, true
		} else {
			o.logger.Warn("ignoring unparsable GDAL_NODATA", "path", path, "value", f.ascii())
		}
	}
	return r, nil
}

// Raster is an opened GeoTIFF.
type Raster struct {
	path      string
	data      []byte
	img       image.Image
	width     int
	height    int
	bands     int
	gt        domain.GeoTransform
	noData    float64
	hasNoData bool
	closed    bool
}

func (r *Raster) Width() int                     { return r.width }
func (r *Raster) Height() int                    { return r.height }
func (r *Raster) BandCount() int                 { return r.bands }
func (r *Raster) Transform() domain.GeoTransform { return r.gt }
func (r *Raster) NoData() (float64, bool)        { return r.noData, r.hasNoData }

// ReadBand returns band index (1-based) as float64 samples.
func (r *Raster) ReadBand(index int) (*domain.Band, error) {
	if r.closed {
		return nil, &domain.PreconditionError{Op: "read_band", Reason: r.path + " is closed"}
	}
	if index < 1 || index > r.bands {
		return nil, fmt.Errorf("band %d out of range [1, %d]", index, r.bands)
	}
	if r.img == nil {
		img, err := tiff.Decode(bytes.NewReader(r.data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.path, err)
		}
		r.img = img
		r.data = nil
	}
	return extractBand(r.img, index)
}

// Close releases decoded pixels.
func (r *Raster) Close() error {
	r.closed = true
	r.img = nil
	r.data = nil
	return nil
}

func extractBand(img image.Image, index int) (*domain.Band, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	band := &domain.Band{Index: index, Width: w, Height: h, Data: make([]float64, w*h)}
	c := index - 1

	switch m := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				band.Data[y*w+x] = float64(m.Pix[y*m.Stride+x])
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*m.Stride + x*2
				band.Data[y*w+x] = float64(uint16(m.Pix[i])<<8 | uint16(m.Pix[i+1]))
			}
		}
	case *image.Paletted:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				band.Data[y*w+x] = float64(m.Pix[y*m.Stride+x])
			}
		}
	case *image.RGBA:
		copyInterleaved8(band, m.Pix, m.Stride, 4, c)
	case *image.NRGBA:
		copyInterleaved8(band, m.Pix, m.Stride, 4, c)
	case *image.RGBA64:
		copyInterleaved16(band, m.Pix, m.Stride, 4, c)
	case *image.NRGBA64:
		copyInterleaved16(band, m.Pix, m.Stride, 4, c)
	default:
		if c > 3 {
			return nil, fmt.Errorf("band %d not available for %T", index, img)
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				band.Data[y*w+x] = float64([4]uint32{r, g, bl, a}[c])
			}
		}
	}
	return band, nil
}

func copyInterleaved8(band *domain.Band, pix []uint8, stride, channels, c int) {
	for y := 0; y < band.Height; y++ {
		for x := 0; x < band.Width; x++ {
			band.Data[y*band.Width+x] = float64(pix[y*stride+x*channels+c])
		}
	}
}

func copyInterleaved16(band *domain.Band, pix []uint8, stride, channels, c int) {
	for y := 0; y < band.Height; y++ {
		for x := 0; x < band.Width; x++ {
			i := y*stride + (x*channels+c)*2
			band.Data[y*band.Width+x] = float64(uint16(pix[i])<<8 | uint16(pix[i+1]))
		}
	}
}

func firstUint(fields map[uint16]field, order binary.ByteOrder, tag uint16) uint64 {
	f, ok := fields[tag]
	if !ok {
		return 0
	}
	if v := f.uints(order); len(v) > 0 {
		return v[0]
	}
	return 0
}

// transformFromFields builds the affine transform from ModelTransformation,
// or from the first tiepoint plus ModelPixelScale.
func transformFromFields(fields map[uint16]field, order binary.ByteOrder) (domain.GeoTransform, bool) {
	if f, ok := fields[tagModelTransformation]; ok {
		if m := f.floats(order); len(m) >= 8 {
			return domain.GeoTransform{m[3], m[0], m[1], m[7], m[4], m[5]}, true
		}
	}

	tp, ok1 := fields[tagModelTiepoint]
	ps, ok2 := fields[tagModelPixelScale]
	if !ok1 || !ok2 {
		return domain.GeoTransform{}, false
	}
	t := tp.floats(order)
	s := ps.floats(order)
	if len(t) < 6 || len(s) < 2 {
		return domain.GeoTransform{}, false
	}
	// tiepoint (I, J, K, X, Y, Z): raster (I, J) sits at model (X, Y)
	i, j, x, y := t[0], t[1], t[3], t[4]
	sx, sy := s[0], s[1]
	return domain.GeoTransform{x - i*sx, sx, 0, y + j*sy, 0, -sy}, true
}

// readWorldFile reads the six-line ESRI world file for path. World files give
// the centre of the upper-left pixel; GDAL order wants its corner.
func readWorldFile(path string) (domain.GeoTransform, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	candidates := []string{base + ".tfw", base + ".tifw", base + ".TFW", path + "w"}

	for _, c := range candidates {
		f, err := os.Open(c)
		if err != nil {
			continue
		}
		defer f.Close()

		var v []float64
		sc := bufio.NewScanner(f)
		for sc.Scan() && len(v) < 6 {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			n, err := strconv.ParseFloat(line, 64)
			if err != nil {
				return domain.GeoTransform{}, fmt.Errorf("%s: %w", c, err)
			}
			v = append(v, n)
		}
		if err := sc.Err(); err != nil {
			return domain.GeoTransform{}, fmt.Errorf("%s: %w", c, err)
		}
		if len(v) != 6 {
			return domain.GeoTransform{}, fmt.Errorf("%s: expected 6 values, got %d", c, len(v))
		}
		a, d, b, e, cx, cy := v[0], v[1], v[2], v[3], v[4], v[5]
		return domain.GeoTransform{cx - a/2 - b/2, a, b, cy - d/2 - e/2, d, e}, nil
	}
	return domain.GeoTransform{}, fmt.Errorf("no world file found")
}
