// Package web serves the upload front end and the extraction API.
package web

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/mkendall/layerlens/pkg/config"
	"github.com/mkendall/layerlens/pkg/extract"
)

//go:embed index.html
var indexHTML string

// Server handles the upload page and the extraction endpoint. Per-file
// extraction failures become error rows in a 200 response; only transport
// problems produce a non-200 status.
type Server struct {
	cfg  config.Config
	mux  *http.ServeMux
	tmpl *template.Template
}

// NewServer builds a Server from cfg.
func NewServer(cfg config.Config) *Server {
	s := &Server{
		cfg:  cfg,
		mux:  http.NewServeMux(),
		tmpl: template.Must(template.New("index").Parse(indexHTML)),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /api/extract", s.handleExtract)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server on the configured address.
func (s *Server) ListenAndServe() error {
	log.Printf("layerlens listening on %s", s.cfg.Listen)
	return http.ListenAndServe(s.cfg.Listen, s)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, nil); err != nil {
		log.Printf("render index: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, fmt.Sprintf("parse upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	files := make([]extract.NamedFile, 0, len(headers))
	results := make([]extract.Result, 0, len(headers))
	for _, hdr := range headers {
		data, err := readPart(hdr)
		if err != nil {
			results = append(results, extract.Failure(hdr.Filename, err))
			continue
		}
		files = append(files, extract.NamedFile{Name: hdr.Filename, Data: data})
	}

	rep := extract.Batch(files, s.cfg.Workers)
	if len(results) > 0 {
		rep = extract.NewReport(append(rep.Results, results...))
	}
	writeJSON(w, http.StatusOK, rep)
}

func readPart(hdr *multipart.FileHeader) ([]byte, error) {
	f, err := hdr.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
