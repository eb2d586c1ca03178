package geotiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// TIFF field types, TIFF 6.0 section 2.
var typeSize = map[uint16]uint32{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

var errNotTIFF = errors.New("not a TIFF file")

// field is one IFD entry with its value bytes resolved.
type field struct {
	typ   uint16
	count uint32
	raw   []byte
}

// readFields parses the first IFD. Fields of unknown type are skipped.
func readFields(data []byte) (binary.ByteOrder, map[uint16]field, error) {
	if len(data) < 8 {
		return nil, nil, errNotTIFF
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, errNotTIFF
	}
	switch order.Uint16(data[2:4]) {
	case 42:
	case 43:
		return nil, nil, errors.New("BigTIFF is not supported")
	default:
		return nil, nil, errNotTIFF
	}

	off := order.Uint32(data[4:8])
	if uint64(off)+2 > uint64(len(data)) {
		return nil, nil, fmt.Errorf("IFD offset %d out of range", off)
	}
	n := uint32(order.Uint16(data[off : off+2]))
	if uint64(off)+2+uint64(n)*12 > uint64(len(data)) {
		return nil, nil, fmt.Errorf("IFD with %d entries truncated", n)
	}

	fields := make(map[uint16]field, n)
	for i := uint32(0); i < n; i++ {
		e := data[off+2+i*12 : off+2+(i+1)*12]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		count := order.Uint32(e[4:8])

		size, ok := typeSize[typ]
		if !ok {
			continue
		}
		total := uint64(size) * uint64(count)
		var raw []byte
		if total <= 4 {
			raw = e[8 : 8+total]
		} else {
			vo := uint64(order.Uint32(e[8:12]))
			if vo+total > uint64(len(data)) {
				return nil, nil, fmt.Errorf("tag %d value out of range", tag)
			}
			raw = data[vo : vo+total]
		}
		fields[tag] = field{typ: typ, count: count, raw: raw}
	}
	return order, fields, nil
}

// uints decodes BYTE, SHORT and LONG values.
func (f field) uints(order binary.ByteOrder) []uint64 {
	out := make([]uint64, 0, f.count)
	for i := uint32(0); i < f.count; i++ {
		switch f.typ {
		case 1, 7:
			out = append(out, uint64(f.raw[i]))
		case 3:
			out = append(out, uint64(order.Uint16(f.raw[i*2:])))
		case 4:
			out = append(out, uint64(order.Uint32(f.raw[i*4:])))
		default:
			return nil
		}
	}
	return out
}

// floats decodes DOUBLE, FLOAT and RATIONAL values.
func (f field) floats(order binary.ByteOrder) []float64 {
	out := make([]float64, 0, f.count)
	for i := uint32(0); i < f.count; i++ {
		switch f.typ {
		case 12:
			out = append(out, math.Float64frombits(order.Uint64(f.raw[i*8:])))
		case 11:
			out = append(out, float64(math.Float32frombits(order.Uint32(f.raw[i*4:]))))
		case 5:
			num := order.Uint32(f.raw[i*8:])
			den := order.Uint32(f.raw[i*8+4:])
			if den == 0 {
				return nil
			}
			out = append(out, float64(num)/float64(den))
		default:
			return nil
		}
	}
	return out
}

func (f field) ascii() string {
	return strings.TrimRight(string(f.raw), "\x00")
}
