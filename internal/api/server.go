package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"dataagent/internal/config"
	"dataagent/internal/dataset"
	"dataagent/internal/dispatch"
	"dataagent/internal/logging"
	"dataagent/internal/models"
	"dataagent/internal/render"
	"dataagent/internal/session"
	"dataagent/internal/util"
)

const (
	sessionCookie   = "dataagent_session"
	previewRows     = 20
	recentCacheSize = 5
	cacheLabelRunes = 30
)

type Server struct {
	cfg        config.Config
	dispatcher *dispatch.Dispatcher
	sessions   *session.Store
	log        *zap.Logger
}

func NewServer(cfg config.Config, d *dispatch.Dispatcher, sessions *session.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if sessions == nil {
		sessions = session.NewStore()
	}
	return &Server{cfg: cfg, dispatcher: d, sessions: sessions, log: log}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/dataset", s.handleDataset)
	mux.HandleFunc("/dataset/sheet", s.handleSheet)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/history/", s.handleHistoryScoped)
	mux.HandleFunc("/cache", s.handleCache)
	return withCORS(logging.Middleware(s.log, mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// session returns the caller's session, locked, issuing a cookie for new ones.
// Callers must Unlock it.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.Get(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	sess.Lock()
	return sess
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	maxBytes := int64(s.cfg.UploadMaxMB) << 20
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	fh, ok := firstSingleFile(r.MultipartForm.File)
	if !ok {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no file provided"))
		return
	}

	var (
		kind dataset.Kind
		err  error
	)
	if k := strings.TrimSpace(r.FormValue("kind")); k != "" {
		kind, err = dataset.ParseKind(k)
	} else {
		kind, err = dataset.KindFromFilename(fh.Filename)
	}
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	sess := s.session(w, r)
	defer sess.Unlock()

	up, data, err := saveUploadedFile(filepath.Join(s.cfg.DataDir, "uploads", sess.ID), fh)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	up.Kind = kind
	ds, err := dataset.Load(up.Name, kind, data, dataset.LoadOptions{Sheet: r.FormValue("sheet")})
	if err != nil {
		s.log.Info("upload rejected", zap.String("file", up.Name), zap.Error(err))
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	sess.SetDataset(ds, up)
	s.log.Info("dataset loaded",
		zap.String("session", sess.ID),
		zap.String("file", up.Name),
		zap.String("kind", string(kind)),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Columns)),
	)
	writeJSON(w, http.StatusOK, models.UploadResponse{Dataset: ds.Preview(previewRows)})
}

func (s *Server) handleSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req models.SheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	sess := s.session(w, r)
	defer sess.Unlock()

	if sess.Upload == nil {
		writeErr(w, http.StatusNotFound, util.ErrNoDataset)
		return
	}
	if sess.Upload.Kind != dataset.KindExcel {
		writeErr(w, http.StatusConflict, fmt.Errorf("sheets apply to excel workbooks only"))
		return
	}
	data, err := os.ReadFile(sess.Upload.Path)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("read stored upload: %w", err))
		return
	}
	ds, err := dataset.Load(sess.Upload.Name, dataset.KindExcel, data, dataset.LoadOptions{Sheet: req.Sheet})
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	sess.SetDataset(ds, sess.Upload)
	writeJSON(w, http.StatusOK, models.UploadResponse{Dataset: ds.Preview(previewRows)})
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	sess := s.session(w, r)
	defer sess.Unlock()
	if sess.Dataset.Empty() {
		writeErr(w, http.StatusNotFound, util.ErrNoDataset)
		return
	}
	writeJSON(w, http.StatusOK, models.UploadResponse{Dataset: sess.Dataset.Preview(previewRows)})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	sess := s.session(w, r)
	defer sess.Unlock()

	out, err := s.dispatcher.Answer(dispatch.WithSessionID(r.Context(), sess.ID), sess.Dataset, req.Query, sess.Memory)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if out.Kind != dispatch.NoData {
		sess.History.AddExchange(req.Query, out.Envelope)
	}
	s.logOutcome(sess.ID, req.Query, out)
	writeJSON(w, http.StatusOK, askResponse(req.Query, out))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	defer sess.Unlock()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, historyResponse(&sess.History))
	case http.MethodDelete:
		sess.ClearHistory()
		writeJSON(w, http.StatusOK, historyResponse(&sess.History))
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

// handleHistoryScoped serves POST /history/{n}/replay.
func (s *Server) handleHistoryScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/history/"), "/"), "/")
	if len(parts) != 2 || parts[1] != "replay" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid question number %q", parts[0]))
		return
	}
	sess := s.session(w, r)
	defer sess.Unlock()

	query, ok := sess.History.Question(n)
	if !ok {
		writeErr(w, http.StatusNotFound, fmt.Errorf("question %d not found", n))
		return
	}
	if _, hit := s.dispatcher.Lookup(sess.Dataset, query); !hit {
		s.log.Info("replay needs a fresh answer", zap.String("session", sess.ID), zap.Int("question", n))
	}
	out, err := s.dispatcher.Answer(dispatch.WithSessionID(r.Context(), sess.ID), sess.Dataset, query, sess.Memory)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if out.Kind != dispatch.NoData && !sess.History.Contains(query) {
		sess.History.AddExchange(query, out.Envelope)
	}
	s.logOutcome(sess.ID, query, out)
	writeJSON(w, http.StatusOK, askResponse(query, out))
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	c := s.dispatcher.Cache()
	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		c.Clear()
		s.log.Info("cache cleared")
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	resp := models.CacheResponse{Size: c.Len(), Recent: []models.CacheItem{}}
	for _, e := range c.Recent(recentCacheSize) {
		resp.Recent = append(resp.Recent, models.CacheItem{
			Fingerprint: e.Fingerprint,
			Question:    util.Truncate(e.Question, cacheLabelRunes),
			Answer:      util.Truncate(e.Envelope.Summary(), cacheLabelRunes),
			StoredAt:    e.StoredAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logOutcome(sessionID, query string, out dispatch.Outcome) {
	fields := []zap.Field{
		zap.String("session", sessionID),
		zap.String("query", util.DisplaySnippet(query, 80)),
		zap.String("outcome", string(out.Kind)),
		zap.Bool("cached", out.Cached),
	}
	if out.Reason != "" {
		fields = append(fields, zap.String("reason", out.Reason))
	}
	s.log.Info("query answered", fields...)
}

func askResponse(query string, out dispatch.Outcome) models.AskResponse {
	return models.AskResponse{
		Question:    query,
		Envelope:    out.Envelope,
		Outcome:     string(out.Kind),
		Cached:      out.Cached,
		Fingerprint: out.Fingerprint,
		HTML:        string(render.HTML(out.Envelope)),
	}
}

func historyResponse(h *session.History) models.HistoryResponse {
	resp := models.HistoryResponse{Entries: []models.HistoryEntry{}, Questions: []models.QuestionItem{}}
	for i, e := range h.Entries() {
		resp.Entries = append(resp.Entries, models.HistoryEntry{Index: i, Role: e.Role, Content: e.Content, Envelope: e.Envelope})
	}
	for _, q := range h.Questions() {
		resp.Questions = append(resp.Questions, models.QuestionItem{Number: q.Number, Label: q.Label, Query: q.Query})
	}
	return resp
}

// saveUploadedFile stores the upload under dstDir and returns its bytes.
func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (*session.Upload, []byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	if err := util.EnsureDir(dstDir); err != nil {
		return nil, nil, err
	}

	safeName := filepath.Base(fh.Filename)
	if safeName == "." || safeName == string(filepath.Separator) {
		safeName = "upload"
	}
	finalPath := util.SafeJoin(dstDir, safeName)
	tmp, err := os.CreateTemp(dstDir, "upload-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, nil, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, nil, err
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return nil, nil, fmt.Errorf("atomic move upload: %w", err)
	}
	return &session.Upload{
		Name:   safeName,
		Path:   finalPath,
		Digest: util.SHA256Hex(data),
	}, data, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	if v := m["file"]; len(v) > 0 {
		return v[0], true
	}
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "DA-API-4000"

	switch {
	case status >= 500:
		return apiError{
			Code:    "DA-API-5000",
			Message: "Internal server error. Please retry or check service logs.",
		}
	case status == http.StatusBadRequest:
		code = "DA-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "DA-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "DA-API-4009"
		msg = "Operation conflicts with current state."
	case status == http.StatusMethodNotAllowed:
		code = "DA-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, util.ErrEmptyQuery):
			msg = "Please enter a question."
		case errors.Is(err, util.ErrNoDataset):
			msg = "Please upload a data file first."
		case errors.Is(err, util.ErrUnsupportedFormat):
			msg = "Unsupported file format. Upload an Excel, CSV, PDF, DOCX or TXT file."
		case errors.Is(err, util.ErrNoExtractableText):
			msg = "No text could be extracted from the document."
		case errors.Is(err, util.ErrEmptyDataset):
			msg = "The file contains no data rows."
		case errors.Is(err, util.ErrUnknownSheet):
			msg = "That sheet does not exist in the workbook."
		case errors.As(err, &maxErr):
			msg = fmt.Sprintf("File is larger than %d MB.", maxErr.Limit>>20)
		case strings.Contains(low, "no file provided"):
			msg = "No file was provided."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(low, "excel workbooks only"):
			msg = "Sheet selection applies to Excel workbooks only."
		case strings.Contains(low, "question") && strings.Contains(low, "not found"):
			msg = "That question is not in the history."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
