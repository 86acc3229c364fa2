// Package glb reads the binary glTF container format and extracts
// material names from the embedded JSON document.
package glb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/qmuntal/gltf"
)

// GLB container constants.
const (
	// Magic is the 4-byte header literal "glTF" read as a little-endian tag.
	Magic = 0x46546C67
	// ChunkJSON identifies the JSON metadata chunk ("JSON").
	ChunkJSON = 0x4E4F534A
	// ChunkBIN identifies the binary buffer chunk ("BIN\x00").
	ChunkBIN = 0x004E4942

	headerSize      = 12
	chunkHeaderSize = 8
)

// FormatError reports a buffer that does not conform to the GLB container
// layout.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "glb: " + e.Reason
}

// Chunk is one length-prefixed, typed record of a GLB container.
type Chunk struct {
	Type uint32
	Data []byte
}

// ParseChunks validates the 12-byte GLB header and walks the chunk table.
// The declared total length bounds the walk but is not enforced against the
// buffer size beyond per-read bounds checks.
func ParseChunks(data []byte) ([]Chunk, error) {
	if len(data) < headerSize {
		return nil, &FormatError{Reason: "not a GLB file"}
	}
	if binary.LittleEndian.Uint32(data[0:4]) != Magic {
		return nil, &FormatError{Reason: "not a GLB file"}
	}
	// data[4:8] holds the container version; informational only.
	end := len(data)
	if declared := int(binary.LittleEndian.Uint32(data[8:12])); declared < end {
		end = declared
	}

	var chunks []Chunk
	offset := headerSize
	for offset < end {
		if offset+chunkHeaderSize > len(data) {
			return nil, &FormatError{Reason: "truncated chunk"}
		}
		length := int(binary.LittleEndian.Uint32(data[offset:]))
		ctype := binary.LittleEndian.Uint32(data[offset+4:])
		offset += chunkHeaderSize
		if length > len(data)-offset {
			return nil, &FormatError{Reason: "truncated chunk"}
		}
		chunks = append(chunks, Chunk{Type: ctype, Data: data[offset : offset+length]})
		offset += length
	}
	return chunks, nil
}

// JSONChunk returns the payload of the first JSON chunk in data.
func JSONChunk(data []byte) ([]byte, error) {
	chunks, err := ParseChunks(data)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		if c.Type == ChunkJSON {
			return c.Data, nil
		}
	}
	return nil, &FormatError{Reason: "no JSON chunk found"}
}

// ExtractMaterials returns one name per material slot of the glTF document
// embedded in a GLB buffer, in document order. A slot without a non-empty
// name yields "Unnamed_<i>" with i the 1-based slot position. A document
// with no materials yields an empty slice.
func ExtractMaterials(data []byte) ([]string, error) {
	payload, err := JSONChunk(data)
	if err != nil {
		return nil, err
	}

	var doc gltf.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, &FormatError{Reason: "invalid JSON in GLB"}
	}

	names := make([]string, 0, len(doc.Materials))
	for i, mat := range doc.Materials {
		name := ""
		if mat != nil {
			name = mat.Name
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed_%d", i+1)
		}
		names = append(names, name)
	}
	return names, nil
}
