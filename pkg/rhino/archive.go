package rhino

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// The 3DM container is an openNURBS binary archive: a 32-byte text header
// followed by typecode+value chunks. ArchiveDecoder reads the subset needed
// for layer extraction - the layer table and each object record's attributes
// chunk - and skips every other table and nested payload by length.
//
// Typecode constants follow opennurbs_3dm.h. A typecode with the short bit
// set carries its value inline and has no payload; otherwise the value is
// the payload byte count. Archives at version 50 and above use 8-byte chunk
// values, earlier ones 4-byte.

const (
	archiveMagic  = "3D Geometry File Format "
	archiveHeader = 32

	tcodeTable       = 0x10000000
	tcodeTableRecord = 0x20000000
	tcodeInterface   = 0x02000000
	tcodeShort       = 0x80000000
	tcodeCRC         = 0x00008000

	tcodeLayerTable  = tcodeTable | 0x5
	tcodeObjectTable = tcodeTable | 0x7
	tcodeEndOfTable  = 0xFFFFFFFF
	tcodeEndOfFile   = 0x00007FFF

	tcodeLayerRecord            = tcodeTableRecord | tcodeCRC | 0x5
	tcodeObjectRecord           = tcodeTableRecord | tcodeCRC | 0x7
	tcodeObjectRecordType       = tcodeInterface | tcodeShort | 0x7
	tcodeObjectRecordAttributes = tcodeInterface | tcodeCRC | 0x8
	tcodeObjectRecordEnd        = tcodeInterface | tcodeShort | 0x7FFF

	// Chunk values are 8 bytes from this archive version on.
	bigChunkVersion = 50
)

var (
	errNotArchive     = errors.New("not a 3DM archive")
	errTruncatedChunk = errors.New("truncated chunk")
)

// ArchiveDecoder is the production Decoder for 3DM archives.
type ArchiveDecoder struct{}

// Decode parses the archive and returns its layer table and object
// attributes. Failures are wrapped in a DecodeError.
func (ArchiveDecoder) Decode(data []byte) (*Model, error) {
	model, err := decodeArchive(data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return model, nil
}

func decodeArchive(data []byte) (*Model, error) {
	if len(data) < archiveHeader || string(data[:len(archiveMagic)]) != archiveMagic {
		return nil, errNotArchive
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data[len(archiveMagic):archiveHeader])))
	if err != nil || version <= 0 {
		return nil, fmt.Errorf("bad archive version: %q", data[len(archiveMagic):archiveHeader])
	}

	r := &archiveReader{
		data: data,
		off:  archiveHeader,
		wide: version >= bigChunkVersion,
	}

	model := &Model{}
	for !r.done() {
		tcode, value, err := r.chunkHeader()
		if err != nil {
			return nil, err
		}
		if tcode == tcodeEndOfFile {
			break
		}
		if tcode&tcodeShort != 0 {
			continue
		}
		payload, err := r.payload(value)
		if err != nil {
			return nil, err
		}
		switch tcode {
		case tcodeLayerTable:
			if err := parseLayerTable(payload, r.wide, model); err != nil {
				return nil, err
			}
		case tcodeObjectTable:
			if err := parseObjectTable(payload, r.wide, model); err != nil {
				return nil, err
			}
		}
	}
	return model, nil
}

// parseLayerTable walks TCODE_LAYER_RECORD chunks until the end-of-table
// marker, appending one Layer per record in table order.
func parseLayerTable(payload []byte, wide bool, model *Model) error {
	r := &archiveReader{data: payload, wide: wide}
	for !r.done() {
		tcode, value, err := r.chunkHeader()
		if err != nil {
			return err
		}
		if tcode == tcodeEndOfTable {
			break
		}
		if tcode&tcodeShort != 0 {
			continue
		}
		rec, err := r.payload(value)
		if err != nil {
			return err
		}
		if tcode != tcodeLayerRecord {
			continue
		}
		layer, err := parseLayer(rec)
		if err != nil {
			return err
		}
		model.Layers = append(model.Layers, layer)
	}
	return nil
}

// parseLayer reads a layer record payload: a 32-bit stored index followed by
// the layer name. Trailing record fields (color, visibility, CRC) are not
// needed and are left unread.
func parseLayer(rec []byte) (Layer, error) {
	r := &archiveReader{data: rec}
	if _, err := r.uint32(); err != nil {
		return Layer{}, err
	}
	name, err := r.wideString()
	if err != nil {
		return Layer{}, err
	}
	return Layer{Name: name}, nil
}

// parseObjectTable walks TCODE_OBJECT_RECORD chunks until the end-of-table
// marker, appending one Object per record that carries an attributes chunk.
func parseObjectTable(payload []byte, wide bool, model *Model) error {
	r := &archiveReader{data: payload, wide: wide}
	for !r.done() {
		tcode, value, err := r.chunkHeader()
		if err != nil {
			return err
		}
		if tcode == tcodeEndOfTable {
			break
		}
		if tcode&tcodeShort != 0 {
			continue
		}
		rec, err := r.payload(value)
		if err != nil {
			return err
		}
		if tcode != tcodeObjectRecord {
			continue
		}
		obj, ok, err := parseObjectRecord(rec, wide)
		if err != nil {
			return err
		}
		if ok {
			model.Objects = append(model.Objects, obj)
		}
	}
	return nil
}

// parseObjectRecord scans an object record's nested chunks for the
// attributes chunk and reads the layer index from it. Geometry chunks are
// skipped by length. A record without an attributes chunk contributes no
// object.
func parseObjectRecord(rec []byte, wide bool) (Object, bool, error) {
	r := &archiveReader{data: rec, wide: wide}
	for !r.done() {
		tcode, value, err := r.chunkHeader()
		if err != nil {
			return Object{}, false, err
		}
		if tcode == tcodeObjectRecordEnd {
			break
		}
		if tcode&tcodeShort != 0 {
			continue
		}
		payload, err := r.payload(value)
		if err != nil {
			return Object{}, false, err
		}
		if tcode != tcodeObjectRecordAttributes {
			continue
		}
		idx, err := parseAttributes(payload)
		if err != nil {
			return Object{}, false, err
		}
		return Object{Attributes: Attributes{LayerIndex: idx}}, true, nil
	}
	return Object{}, false, nil
}

// parseAttributes reads an attributes payload: a 16-byte object UUID
// followed by the 32-bit layer index.
func parseAttributes(payload []byte) (int, error) {
	r := &archiveReader{data: payload}
	if _, err := r.bytes(16); err != nil {
		return 0, err
	}
	idx, err := r.uint32()
	if err != nil {
		return 0, err
	}
	return int(int32(idx)), nil
}

// archiveReader is a bounds-checked cursor over archive bytes.
type archiveReader struct {
	data []byte
	off  int
	wide bool
}

func (r *archiveReader) done() bool {
	return r.off >= len(r.data)
}

func (r *archiveReader) bytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.off {
		return nil, errTruncatedChunk
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *archiveReader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *archiveReader) uint64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// chunkHeader reads a typecode and its value. For short typecodes the value
// is inline data; for long ones it is the byte count of the payload that
// follows.
func (r *archiveReader) chunkHeader() (tcode uint32, value int64, err error) {
	tcode, err = r.uint32()
	if err != nil {
		return 0, 0, err
	}
	if r.wide {
		v, err := r.uint64()
		if err != nil {
			return 0, 0, err
		}
		value = int64(v)
	} else {
		v, err := r.uint32()
		if err != nil {
			return 0, 0, err
		}
		value = int64(int32(v))
	}
	return tcode, value, nil
}

func (r *archiveReader) payload(length int64) ([]byte, error) {
	if length < 0 || length > int64(len(r.data)-r.off) {
		return nil, errTruncatedChunk
	}
	return r.bytes(int(length))
}

// wideString reads a length-prefixed UTF-16LE string (openNURBS ON_wString
// wire form). A trailing NUL, when the writer included one in the count, is
// dropped.
func (r *archiveReader) wideString() (string, error) {
	count, err := r.uint32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(count) * 2)
	if err != nil {
		return "", err
	}
	units := make([]uint16, count)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	for len(units) > 0 && units[len(units)-1] == 0 {
		units = units[:len(units)-1]
	}
	return string(utf16.Decode(units)), nil
}
