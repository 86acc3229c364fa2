package extract

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// glbBytes assembles a minimal GLB buffer containing one JSON chunk.
func glbBytes(payload string) []byte {
	total := 12 + 8 + len(payload)
	buf := make([]byte, 0, total)
	buf = append(buf, 'g', 'l', 'T', 'F')
	buf = binary.LittleEndian.AppendUint32(buf, 2)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(total))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = binary.LittleEndian.AppendUint32(buf, 0x4E4F534A)
	return append(buf, payload...)
}

// rhinoBytes assembles a minimal empty 3DM archive: the text header and an
// end-of-file chunk, no tables.
func rhinoBytes() []byte {
	buf := []byte(fmt.Sprintf("3D Geometry File Format %8d", 4))
	buf = binary.LittleEndian.AppendUint32(buf, 0x00007FFF)
	return binary.LittleEndian.AppendUint32(buf, 0)
}

func TestClassifyByExtension(t *testing.T) {
	assert.Equal(t, KindGLB, Classify("model.glb", nil))
	assert.Equal(t, KindGLB, Classify("MODEL.GLB", nil))
	assert.Equal(t, KindRhino, Classify("plan.3dm", nil))
	assert.Equal(t, KindRhino, Classify("PLAN.3DM", nil))
	assert.Equal(t, KindUnknown, Classify("scene.obj", nil))
	assert.Equal(t, KindUnknown, Classify("noext", nil))
}

func TestClassifyBySniffingWhenExtensionUnknown(t *testing.T) {
	assert.Equal(t, KindGLB, Classify("upload.bin", glbBytes(`{}`)))
	assert.Equal(t, KindRhino, Classify("upload.bin", rhinoBytes()))
	assert.Equal(t, KindUnknown, Classify("upload.bin", []byte("plain text")))
}

func TestFileDispatchGLB(t *testing.T) {
	res := File("chair.glb", glbBytes(`{"materials":[{"name":"Wood"},{}]}`))

	require.True(t, res.OK(), "extraction should succeed: %v", res.Err)
	assert.Equal(t, KindGLB, res.Kind)
	assert.Equal(t, []string{"Wood", "Unnamed_2"}, res.Names)
	assert.Empty(t, res.ErrorDetail)
}

func TestFileDispatchRhino(t *testing.T) {
	res := File("plan.3dm", rhinoBytes())

	require.True(t, res.OK(), "extraction should succeed: %v", res.Err)
	assert.Equal(t, KindRhino, res.Kind)
	assert.Empty(t, res.Names)
}

func TestFileUnsupportedExtension(t *testing.T) {
	res := File("notes.txt", []byte("hello"))

	assert.False(t, res.OK())
	assert.Equal(t, KindUnknown, res.Kind)
	assert.ErrorIs(t, res.Err, ErrUnsupported)
	assert.NotEmpty(t, res.ErrorDetail)
}

func TestFileCorruptGLBReportsError(t *testing.T) {
	res := File("broken.glb", []byte("not really glb"))

	assert.False(t, res.OK())
	assert.Equal(t, KindGLB, res.Kind)
	assert.Contains(t, res.ErrorDetail, "not a GLB file")
}

func TestFailure(t *testing.T) {
	res := Failure("gone.glb", errors.New("read failed"))

	assert.False(t, res.OK())
	assert.Equal(t, "read failed", res.ErrorDetail)
}

func TestBatchContinuesPastFailures(t *testing.T) {
	files := []NamedFile{
		{Name: "a.glb", Data: glbBytes(`{"materials":[{"name":"Wood"}]}`)},
		{Name: "broken.glb", Data: []byte("garbage")},
		{Name: "b.glb", Data: glbBytes(`{"materials":[{"name":"Glass"},{"name":"Wood"}]}`)},
	}

	rep := Batch(files, 1)

	require.Len(t, rep.Results, 3)
	assert.Equal(t, 3, rep.Files)
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 3, rep.TotalNames)
	assert.Equal(t, []string{"Wood", "Glass"}, rep.UniqueNames)

	// Input order preserved.
	assert.Equal(t, "a.glb", rep.Results[0].Filename)
	assert.Equal(t, "broken.glb", rep.Results[1].Filename)
	assert.Equal(t, "b.glb", rep.Results[2].Filename)
}

func TestBatchParallelMatchesSequential(t *testing.T) {
	var files []NamedFile
	for i := 0; i < 20; i++ {
		files = append(files, NamedFile{
			Name: fmt.Sprintf("m%d.glb", i),
			Data: glbBytes(fmt.Sprintf(`{"materials":[{"name":"Mat%d"}]}`, i)),
		})
	}

	seq := Batch(files, 1)
	par := Batch(files, 8)

	assert.Equal(t, seq.UniqueNames, par.UniqueNames)
	require.Len(t, par.Results, len(seq.Results))
	for i := range seq.Results {
		assert.Equal(t, seq.Results[i].Filename, par.Results[i].Filename)
		assert.Equal(t, seq.Results[i].Names, par.Results[i].Names)
	}
}

func TestBatchEmpty(t *testing.T) {
	rep := Batch(nil, 4)

	assert.Equal(t, 0, rep.Files)
	assert.Empty(t, rep.Results)
	assert.Empty(t, rep.UniqueNames)
}
