// Package extract classifies 3D asset files and dispatches them to the
// matching name extractor, aggregating per-file results for display.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/h2non/filetype"

	"github.com/mkendall/layerlens/pkg/glb"
	"github.com/mkendall/layerlens/pkg/rhino"
)

// Kind identifies the file format a result was extracted from.
type Kind string

const (
	KindGLB     Kind = "GLB"
	KindRhino   Kind = "3DM"
	KindUnknown Kind = "UNKNOWN"
)

// ErrUnsupported marks files whose format is not recognized. It is a
// classification outcome, not a parsing failure.
var ErrUnsupported = errors.New("unsupported file type")

var (
	glbType   = filetype.NewType("glb", "model/gltf-binary")
	rhinoType = filetype.NewType("3dm", "model/vnd.3dm")
)

func init() {
	filetype.AddMatcher(glbType, func(buf []byte) bool {
		return len(buf) >= 4 && string(buf[:4]) == "glTF"
	})
	filetype.AddMatcher(rhinoType, func(buf []byte) bool {
		const magic = "3D Geometry File Format "
		return len(buf) >= len(magic) && string(buf[:len(magic)]) == magic
	})
}

// Classify determines the file kind from the filename extension
// (case-insensitive), falling back to content sniffing when the extension
// is missing or unknown.
func Classify(name string, data []byte) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".glb":
		return KindGLB
	case ".3dm":
		return KindRhino
	}
	if t, err := filetype.Match(data); err == nil {
		switch t.Extension {
		case glbType.Extension:
			return KindGLB
		case rhinoType.Extension:
			return KindRhino
		}
	}
	return KindUnknown
}

// Result is the immutable outcome of extracting one file.
type Result struct {
	Filename    string   `json:"filename"`
	Kind        Kind     `json:"kind"`
	Names       []string `json:"names"`
	ErrorDetail string   `json:"error,omitempty"`

	// Err carries the typed failure for errors.Is/As; ErrorDetail is its
	// rendered form for transport.
	Err error `json:"-"`
}

// OK reports whether extraction succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// NamedFile pairs a filename with its raw contents.
type NamedFile struct {
	Name string
	Data []byte
}

// File extracts names from a single file. It never panics on unrecognized
// input; every failure is reported through the Result.
func File(name string, data []byte) Result {
	res := Result{Filename: name, Kind: Classify(name, data)}
	switch res.Kind {
	case KindGLB:
		res.Names, res.Err = glb.ExtractMaterials(data)
	case KindRhino:
		res.Names, res.Err = rhino.ExtractLayers(data)
	default:
		res.Err = fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(name))
	}
	if res.Err != nil {
		res.ErrorDetail = res.Err.Error()
	}
	if res.Names == nil {
		res.Names = []string{}
	}
	return res
}

// Failure builds an error Result for a file that could not be read at all.
func Failure(name string, err error) Result {
	return Result{
		Filename:    name,
		Kind:        KindUnknown,
		Names:       []string{},
		Err:         err,
		ErrorDetail: err.Error(),
	}
}

// Report aggregates the per-file results of a batch plus the summary the UI
// shows: counts and the cross-file unique name set in first-seen order.
type Report struct {
	Results     []Result `json:"results"`
	Files       int      `json:"files"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	TotalNames  int      `json:"total_names"`
	UniqueNames []string `json:"unique_names"`
}

// NewReport computes summary counts over results. Input order is preserved.
func NewReport(results []Result) *Report {
	rep := &Report{Results: results, Files: len(results), UniqueNames: []string{}}
	seen := make(map[string]bool)
	for _, r := range results {
		if !r.OK() {
			rep.Failed++
			continue
		}
		rep.Succeeded++
		rep.TotalNames += len(r.Names)
		for _, n := range r.Names {
			if !seen[n] {
				seen[n] = true
				rep.UniqueNames = append(rep.UniqueNames, n)
			}
		}
	}
	return rep
}

// Batch extracts every file and aggregates a Report. Files are independent
// and idempotent, so up to workers of them run concurrently; one corrupted
// file never aborts the rest. Result order matches input order.
func Batch(files []NamedFile, workers int) *Report {
	results := make([]Result, len(files))
	if workers <= 1 || len(files) <= 1 {
		for i, f := range files {
			results[i] = File(f.Name, f.Data)
		}
		return NewReport(results)
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f NamedFile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = File(f.Name, f.Data)
		}(i, f)
	}
	wg.Wait()
	return NewReport(results)
}
