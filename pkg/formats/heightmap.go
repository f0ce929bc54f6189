package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	// Registered for DecodeHeightmapImage.
	_ "image/png"

	_ "golang.org/x/image/tiff"
)

// Heightmap format errors.
var (
	ErrTruncatedHeightmap  = errors.New("truncated heightmap data")
	ErrHeightmapResolution = errors.New("heightmap resolution does not match data length")
	ErrInvalidChannel      = errors.New("invalid heightmap channel")
)

// HeightmapHeaderSize is the length of the width/height/is16bit header.
const HeightmapHeaderSize = 9

// HeightmapHeader describes the raster stored after the header.
type HeightmapHeader struct {
	Width   int32
	Height  int32
	Is16Bit bool
}

// SampleSize returns the number of bytes per sample.
func (h HeightmapHeader) SampleSize() int {
	if h.Is16Bit {
		return 2
	}
	return 1
}

// DataLength returns the expected payload length in bytes.
func (h HeightmapHeader) DataLength() int {
	return int(h.Width) * int(h.Height) * h.SampleSize()
}

// Heightmap is an uncompressed 8 or 16 bit raster, row-major, (0,0) at the lower left.
// Samples are widened to uint16 and normalized against Max.
type Heightmap struct {
	HeightmapHeader
	Samples []uint16
}

// NewHeightmap allocates an empty raster.
func NewHeightmap(width, height int, is16bit bool) *Heightmap {
	return &Heightmap{
		HeightmapHeader: HeightmapHeader{Width: int32(width), Height: int32(height), Is16Bit: is16bit},
		Samples:         make([]uint16, width*height),
	}
}

// Max returns the sample value that maps to 1.0.
func (h *Heightmap) Max() float64 {
	if h.Is16Bit {
		return 65535
	}
	return 255
}

// Pixel returns the normalized sample at (x, y).
func (h *Heightmap) Pixel(x, y int) float64 {
	return float64(h.Samples[y*int(h.Width)+x]) / h.Max()
}

// SetPixel stores a normalized value at (x, y), clamped to [0, 1].
func (h *Heightmap) SetPixel(x, y int, v float64) {
	v = min(max(v, 0), 1)
	h.Samples[y*int(h.Width)+x] = uint16(v*h.Max() + 0.5)
}

// ParseHeightmapHeader decodes the 9-byte header.
func ParseHeightmapHeader(data []byte) (HeightmapHeader, error) {
	if len(data) < HeightmapHeaderSize {
		return HeightmapHeader{}, fmt.Errorf("%w: header", ErrTruncatedHeightmap)
	}
	var hdr HeightmapHeader
	r := bytes.NewReader(data[:HeightmapHeaderSize])
	if err := binary.Read(r, binary.LittleEndian, &hdr.Width); err != nil {
		return HeightmapHeader{}, fmt.Errorf("%w: reading width", ErrTruncatedHeightmap)
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr.Height); err != nil {
		return HeightmapHeader{}, fmt.Errorf("%w: reading height", ErrTruncatedHeightmap)
	}
	hdr.Is16Bit = data[8] != 0
	if hdr.Width <= 0 || hdr.Height <= 0 {
		return HeightmapHeader{}, fmt.Errorf("invalid heightmap dimensions: %dx%d", hdr.Width, hdr.Height)
	}
	return hdr, nil
}

// ParseHeightmap parses a heightmap file from raw bytes.
func ParseHeightmap(data []byte) (*Heightmap, error) {
	hdr, err := ParseHeightmapHeader(data)
	if err != nil {
		return nil, err
	}
	if got := len(data) - HeightmapHeaderSize; got != hdr.DataLength() {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, have %d",
			ErrHeightmapResolution, hdr.Width, hdr.Height, hdr.DataLength(), got)
	}
	hm := &Heightmap{HeightmapHeader: hdr}
	hm.Samples = decodeSamples(data[HeightmapHeaderSize:], hdr.Is16Bit)
	return hm, nil
}

// ParseHeightmapFile parses a heightmap file from disk.
func ParseHeightmapFile(path string) (*Heightmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading heightmap file: %w", err)
	}
	return ParseHeightmap(data)
}

func decodeSamples(payload []byte, is16bit bool) []uint16 {
	if !is16bit {
		out := make([]uint16, len(payload))
		for i, b := range payload {
			out[i] = uint16(b)
		}
		return out
	}
	out := make([]uint16, len(payload)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(payload[2*i:])
	}
	return out
}

// WriteTo encodes the heightmap including its header.
func (h *Heightmap) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, HeightmapHeaderSize, HeightmapHeaderSize+h.DataLength())
	binary.LittleEndian.PutUint32(buf[0:], uint32(h.Width))
	binary.LittleEndian.PutUint32(buf[4:], uint32(h.Height))
	if h.Is16Bit {
		buf[8] = 1
		for _, s := range h.Samples {
			buf = binary.LittleEndian.AppendUint16(buf, s)
		}
	} else {
		for _, s := range h.Samples {
			buf = append(buf, byte(s))
		}
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadHeightmapHeader reads the header of a heightmap file.
func ReadHeightmapHeader(r io.ReaderAt) (HeightmapHeader, error) {
	head := make([]byte, HeightmapHeaderSize)
	if _, err := r.ReadAt(head, 0); err != nil {
		return HeightmapHeader{}, fmt.Errorf("%w: header: %v", ErrTruncatedHeightmap, err)
	}
	return ParseHeightmapHeader(head)
}

// ReadHeightmapRegion reads the sub-rectangle [x, x+w) × [y, y+h) of a heightmap file
// without loading the whole raster.
func ReadHeightmapRegion(r io.ReaderAt, x, y, w, h int) (*Heightmap, error) {
	hdr, err := ReadHeightmapHeader(r)
	if err != nil {
		return nil, err
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > int(hdr.Width) || y+h > int(hdr.Height) {
		return nil, fmt.Errorf("region %d,%d %dx%d outside %dx%d heightmap", x, y, w, h, hdr.Width, hdr.Height)
	}

	size := hdr.SampleSize()
	region := NewHeightmap(w, h, hdr.Is16Bit)
	row := make([]byte, w*size)
	for j := 0; j < h; j++ {
		off := int64(HeightmapHeaderSize + ((y+j)*int(hdr.Width)+x)*size)
		if _, err := r.ReadAt(row, off); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrTruncatedHeightmap, y+j, err)
		}
		copy(region.Samples[j*w:], decodeSamples(row, hdr.Is16Bit))
	}
	return region, nil
}

// Image channels for DecodeHeightmapImage. ChannelGray averages red, green and blue.
const (
	ChannelGray  = -1
	ChannelRed   = 0
	ChannelGreen = 1
	ChannelBlue  = 2
	ChannelAlpha = 3
)

// DecodeHeightmapImage converts a PNG or TIFF image into a heightmap. 16-bit
// grayscale images keep their precision, everything else is reduced to 8 bits of
// the requested channel. Image rows are flipped so (0,0) is the lower left.
func DecodeHeightmapImage(r io.Reader, channel int) (*Heightmap, error) {
	if channel < ChannelGray || channel > ChannelAlpha {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding heightmap image: %w", err)
	}

	b := img.Bounds()
	_, wide := img.(*image.Gray16)
	hm := NewHeightmap(b.Dx(), b.Dy(), wide)
	for py := b.Min.Y; py < b.Max.Y; py++ {
		row := b.Max.Y - 1 - py
		for px := b.Min.X; px < b.Max.X; px++ {
			c := img.At(px, py)
			var v uint16
			if wide {
				v = color.Gray16Model.Convert(c).(color.Gray16).Y
			} else {
				v = channelValue(c, channel)
			}
			hm.Samples[row*b.Dx()+(px-b.Min.X)] = v
		}
	}
	return hm, nil
}

func channelValue(c color.Color, channel int) uint16 {
	r, g, b, a := c.RGBA()
	switch channel {
	case ChannelRed:
		return uint16(r >> 8)
	case ChannelGreen:
		return uint16(g >> 8)
	case ChannelBlue:
		return uint16(b >> 8)
	case ChannelAlpha:
		return uint16(a >> 8)
	}
	return uint16((r>>8 + g>>8 + b>>8) / 3)
}
