package rhino

// DecodeError reports an archive the decoder rejected as corrupted or
// unreadable.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "rhino: invalid or corrupted 3DM file: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UsedLayers returns the distinct names of layers referenced by at least
// one object, in first-seen order. An object whose layer index falls
// outside the layer table is skipped; one bad reference must not invalidate
// the rest of the model.
func UsedLayers(m *Model) []string {
	seen := make(map[string]bool, len(m.Layers))
	names := []string{}
	for _, obj := range m.Objects {
		idx := obj.Attributes.LayerIndex
		if idx < 0 || idx >= len(m.Layers) {
			continue
		}
		name := m.Layers[idx].Name
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// ExtractLayers decodes a 3DM buffer and returns the distinct layer names
// referenced by its objects. A model with zero objects yields an empty
// result, not an error.
func ExtractLayers(data []byte) ([]string, error) {
	return ExtractLayersWith(ArchiveDecoder{}, data)
}

// ExtractLayersWith is ExtractLayers with an explicit decoder.
func ExtractLayersWith(dec Decoder, data []byte) ([]string, error) {
	model, err := dec.Decode(data)
	if err != nil {
		return nil, err
	}
	return UsedLayers(model), nil
}
