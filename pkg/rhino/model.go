// Package rhino reads Rhino 3DM model archives and extracts the layer
// names referenced by scene objects.
package rhino

// Layer is a named grouping construct. Its index is implicit: objects
// reference a layer by its position in Model.Layers.
type Layer struct {
	Name string
}

// Attributes holds the subset of object attributes the extractor needs.
type Attributes struct {
	LayerIndex int
}

// Object is one geometric object in the model. Geometry itself is not
// retained; only the attributes record matters here.
type Object struct {
	Attributes Attributes
}

// Model is the decoded in-memory form of a 3DM archive.
type Model struct {
	Layers  []Layer
	Objects []Object
}

// Decoder turns raw 3DM bytes into a Model. The production implementation
// is ArchiveDecoder; tests substitute synthetic models through this seam.
type Decoder interface {
	Decode(data []byte) (*Model, error)
}

// LayerNames returns the names of every defined layer, in table order.
func (m *Model) LayerNames() []string {
	names := make([]string, len(m.Layers))
	for i, layer := range m.Layers {
		names[i] = layer.Name
	}
	return names
}
