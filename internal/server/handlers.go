package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tropicly/labeler/internal/geo"
	"github.com/tropicly/labeler/internal/samplecsv"
	"github.com/tropicly/labeler/internal/storage"
)

// defaultExportName is used when samples are exported before any file was loaded.
const defaultExportName = "samples.csv"

// State is the response body of every action.
type State struct {
	FileName string      `json:"fileName"`
	Cursor   int         `json:"cursor"`
	Total    int         `json:"total"`
	Sample   *SampleView `json:"sample,omitempty"`
	// Action is set by /api/key.
	Action string `json:"action,omitempty"`
}

// SampleView is the displayed sample.
type SampleView struct {
	Index      int               `json:"index"`
	Lat        float64           `json:"lat"`
	Lng        float64           `json:"lng"`
	Label      string            `json:"label"`
	Validation string            `json:"validation"`
	Extra      map[string]string `json:"extra,omitempty"`
}

type valueRequest struct {
	Value string `json:"value"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type pageData struct {
	CenterLat    float64
	CenterLng    float64
	Zoom         int
	TileURL      string
	NextKey      string
	PreviousKey  string
	AutosaveNote bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		CenterLat:    s.deps.Map.CenterLat,
		CenterLng:    s.deps.Map.CenterLng,
		Zoom:         s.deps.Map.Zoom,
		TileURL:      s.deps.Map.TileURL,
		NextKey:      s.deps.Keymap.NextKey(),
		PreviousKey:  s.deps.Keymap.PreviousKey(),
		AutosaveNote: s.deps.Autosave && s.deps.Storage != nil,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.log.Error("Failed to render page", "error", err)
	}
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeState(w, "")
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if s.deps.Server.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.deps.Server.MaxUploadBytes)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("missing file: %w", err))
		return
	}
	defer file.Close()

	opts := s.deps.CSV
	if opts.Logger == nil {
		opts.Logger = s.log.With("file", header.Filename)
	}
	set, err := samplecsv.Decode(file, opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse %s: %w", header.Filename, err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deps.Navigator.Load(set, header.Filename)
	s.log.Info("Loaded sample file", "file", header.Filename, "samples", set.Len())
	s.writeState(w, "")
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deps.Navigator.Next()
	s.writeState(w, "")
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deps.Navigator.Previous()
	s.writeState(w, "")
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid index: %w", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deps.Navigator.Jump(index)
	s.writeState(w, "")
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deps.Navigator.EditCurrentValidation(req.Value)
	s.autosave()
	s.writeState(w, "")
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deps.Navigator.EditCurrentLabel(req.Value)
	s.autosave()
	s.writeState(w, "")
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	action := s.deps.Keymap.Apply(req.Key, s.deps.Navigator)
	s.writeState(w, action.String())
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("missing file"))
		return
	}
	restorer, ok := s.deps.Storage.(storage.Restorer)
	if !ok {
		s.writeError(w, http.StatusNotImplemented, errors.New("storage backend cannot restore sessions"))
		return
	}

	snap, err := restorer.Restore(name)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deps.Navigator.Load(snap.Set, snap.FileName)
	s.deps.Navigator.Jump(snap.Cursor)
	s.log.Info("Restored session", "file", snap.FileName, "cursor", snap.Cursor, "savedAt", snap.SavedAt)
	s.writeState(w, "")
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, name, err := s.deps.Navigator.ExportCSV()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if name == "" {
		name = defaultExportName
	}
	s.save()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(data)
}

// autosave requires s.mu.
func (s *Server) autosave() {
	if s.deps.Autosave {
		s.save()
	}
}

// save requires s.mu. Failures are logged; the action itself has succeeded.
func (s *Server) save() {
	if s.deps.Storage == nil || s.deps.Navigator.FileName() == "" {
		return
	}
	snap := s.deps.Navigator.Snapshot()
	snap.SavedAt = time.Now()
	if err := s.deps.Storage.Save(snap); err != nil {
		s.log.Warn("Failed to save session", "file", snap.FileName, "error", err)
		return
	}
	if l, ok := s.deps.Storage.(storage.Locatable); ok && l.Path() != "" {
		s.log.Debug("Saved session", "file", snap.FileName, "path", l.Path())
	}
}

// writeState requires s.mu.
func (s *Server) writeState(w http.ResponseWriter, action string) {
	nav := s.deps.Navigator
	state := State{
		FileName: nav.FileName(),
		Cursor:   nav.Cursor(),
		Total:    nav.Len(),
		Action:   action,
	}
	if smp, ok := nav.Current(); ok {
		pos := geo.CoordinateOf(smp)
		state.Sample = &SampleView{
			Index:      nav.Cursor(),
			Lat:        pos.Lat,
			Lng:        pos.Lng,
			Label:      smp.Label,
			Validation: smp.Validation,
			Extra:      smp.Extra,
		}
	}
	if err := writeJSON(w, http.StatusOK, state); err != nil {
		s.log.Error("Failed to encode state", "cursor", state.Cursor, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.Debug("Request failed", "status", status, "error", err)
	_ = writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeJSON encodes v before writing the header. A value that fails to
// encode is answered with 500.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
	return err
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// Progress summarizes the session for the status monitor.
type Progress struct {
	FileName  string
	Cursor    int
	Total     int
	Labeled   int
	Validated int
}

// Progress counts labeled and validated samples.
func (s *Server) Progress() Progress {
	s.mu.Lock()
	snap := s.deps.Navigator.Snapshot()
	s.mu.Unlock()

	p := Progress{
		FileName: snap.FileName,
		Cursor:   snap.Cursor,
		Total:    snap.Set.Len(),
	}
	for _, smp := range snap.Set.Samples {
		if smp.Label != "" {
			p.Labeled++
		}
		if smp.Validation != "" {
			p.Validated++
		}
	}
	return p
}
