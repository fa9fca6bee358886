package api

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed web/index.html
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

type indexData struct {
	UploadMaxMB int
	Kinds       []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := indexData{UploadMaxMB: s.cfg.UploadMaxMB, Kinds: []string{"excel", "csv", "pdf", "docx", "txt"}}
	if err := indexTemplate.Execute(w, data); err != nil {
		s.log.Sugar().Warnw("render index", "error", err)
	}
}
