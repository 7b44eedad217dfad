package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/treefix50/showtracker/internal/metrics"
)

const (
	msgShowNotFound     = "No show with this id exists"
	msgEpisodesNotFound = "No show with this number of episodes exists"
	msgShowDeleted      = "Show deleted"
	msgNoData           = "No data"

	maxBodyBytes = 1 << 20
)

// UpdateSource selects where PUT /shows/{id} reads the changed fields from.
type UpdateSource string

const (
	UpdateFromBody  UpdateSource = "body"
	UpdateFromQuery UpdateSource = "query"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}
	if s.handleOptions(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, "GET, OPTIONS")
		return
	}
	s.writeData(w, http.StatusOK, "content", "hello world!")
}

// /mirror/{name}
func (s *Server) handleMirror(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/mirror/")
	if name == "" || strings.Contains(name, "/") {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}
	if s.handleOptions(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, "GET, OPTIONS")
		return
	}
	s.writeData(w, http.StatusOK, "name", name)
}

// /shows and /shows/
func (s *Server) handleShows(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, POST, OPTIONS") {
		return
	}

	switch r.Method {
	case http.MethodGet:
		if raw, ok := r.URL.Query()["minEpisodes"]; ok {
			s.handleMinEpisodes(w, r, raw[0], "minEpisodes")
			return
		}
		shows, err := s.store.List(r.Context())
		if err != nil {
			s.internalError(w, "list shows", err)
			return
		}
		if shows == nil {
			shows = []Show{}
		}
		s.writeData(w, http.StatusOK, "shows", shows)

	case http.MethodPost:
		s.handleCreateShow(w, r)

	default:
		s.methodNotAllowed(w, "GET, POST, OPTIONS")
	}
}

// Routes under /shows/{id} and /shows/minEpisodes/{episodes}
func (s *Server) handleShowItems(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/shows/")
	if path == "" {
		s.handleShows(w, r)
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 2 && parts[0] == "minEpisodes":
		if s.handleOptions(w, r, "GET, OPTIONS") {
			return
		}
		if r.Method != http.MethodGet {
			s.methodNotAllowed(w, "GET, OPTIONS")
			return
		}
		s.handleMinEpisodes(w, r, parts[1], "episodes")

	case len(parts) == 1:
		s.handleShowDetail(w, r, parts[0])

	default:
		s.writeError(w, errNotFound, http.StatusNotFound)
	}
}

func (s *Server) handleShowDetail(w http.ResponseWriter, r *http.Request, rawID string) {
	const allow = "GET, PUT, DELETE, OPTIONS"
	if s.handleOptions(w, r, allow) {
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
	default:
		s.methodNotAllowed(w, allow)
		return
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		s.writeError(w, "id must be an integer", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		show, ok, err := s.store.GetByID(r.Context(), id)
		if err != nil {
			s.internalError(w, "get show", err)
			return
		}
		if !ok {
			s.writeError(w, msgShowNotFound, http.StatusNotFound)
			return
		}
		s.writeData(w, http.StatusOK, "show", show)

	case http.MethodPut:
		s.handleUpdateShow(w, r, id)

	case http.MethodDelete:
		ok, err := s.store.DeleteByID(r.Context(), id)
		if err != nil {
			s.internalError(w, "delete show", err)
			return
		}
		if !ok {
			s.writeError(w, msgShowNotFound, http.StatusNotFound)
			return
		}
		s.writeResponse(w, http.StatusOK, nil, msgShowDeleted)
	}
}

// handleMinEpisodes serves both /shows/minEpisodes/{n} and ?minEpisodes=n.
func (s *Server) handleMinEpisodes(w http.ResponseWriter, r *http.Request, raw, param string) {
	minEpisodes, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, param+" must be an integer", http.StatusBadRequest)
		return
	}

	shows, err := s.store.GetByEpisodes(r.Context(), minEpisodes)
	if err != nil {
		s.internalError(w, "filter shows", err)
		return
	}
	if len(shows) == 0 {
		s.writeError(w, msgEpisodesNotFound, http.StatusNotFound)
		return
	}
	s.writeData(w, http.StatusOK, "shows", shows)
}

func (s *Server) handleCreateShow(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var (
		form showForm
		err  error
	)
	if isJSONRequest(r) {
		var payload rawShow
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, "bad request", http.StatusBadRequest)
			return
		}
		form.Name = payload.Name
		form.EpisodesSeen, err = payload.episodes()
	} else {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, "bad request", http.StatusBadRequest)
			return
		}
		if values, ok := r.PostForm["name"]; ok {
			form.Name = &values[0]
		}
		if values, ok := r.PostForm["episodes_seen"]; ok {
			form.EpisodesSeen, err = parseEpisodes(values[0])
		}
	}
	if err != nil {
		s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := s.validate.Struct(form); err != nil {
		s.log.Debug("create show rejected", zap.Error(err))
		s.writeError(w, validationMessage(err), http.StatusUnprocessableEntity)
		return
	}

	show, err := s.store.Create(r.Context(), form.input())
	if err != nil {
		s.internalError(w, "create show", err)
		return
	}
	s.writeData(w, http.StatusCreated, "shows", show)
}

func (s *Server) handleUpdateShow(w http.ResponseWriter, r *http.Request, id int64) {
	current, ok, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.internalError(w, "get show", err)
		return
	}
	if !ok {
		s.writeError(w, msgShowNotFound, http.StatusNotFound)
		return
	}

	var patch ShowPatch
	switch s.updateSource {
	case UpdateFromQuery:
		patch, err = patchFromQuery(r)
	default:
		patch, err = patchFromBody(w, r)
		if errors.Is(err, errNoData) {
			s.writeError(w, msgNoData, http.StatusNotFound)
			return
		}
	}
	if err != nil {
		s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := s.validate.Struct(patch); err != nil {
		s.log.Debug("update show rejected", zap.Int64("id", id), zap.Error(err))
		s.writeError(w, validationMessage(err), http.StatusUnprocessableEntity)
		return
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}

	if patch.Empty() {
		s.writeData(w, http.StatusOK, "shows", current)
		return
	}

	updated, ok, err := s.store.UpdateByID(r.Context(), id, patch)
	if err != nil {
		s.internalError(w, "update show", err)
		return
	}
	if !ok {
		s.writeError(w, msgShowNotFound, http.StatusNotFound)
		return
	}
	s.writeData(w, http.StatusOK, "shows", updated)
}

var errNoData = errors.New("no data")

func patchFromBody(w http.ResponseWriter, r *http.Request) (ShowPatch, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	trimmed := strings.TrimSpace(string(body))
	if err != nil || trimmed == "" || trimmed == "null" {
		return ShowPatch{}, errNoData
	}
	var payload rawShow
	if err := json.Unmarshal(body, &payload); err != nil {
		return ShowPatch{}, errNoData
	}
	episodes, err := payload.episodes()
	if err != nil {
		return ShowPatch{}, err
	}
	return ShowPatch{Name: payload.Name, EpisodesSeen: episodes}, nil
}

func patchFromQuery(r *http.Request) (ShowPatch, error) {
	query := r.URL.Query()
	var patch ShowPatch
	if values, ok := query["name"]; ok {
		patch.Name = &values[0]
	}
	if values, ok := query["episodes_seen"]; ok {
		episodes, err := parseEpisodes(values[0])
		if err != nil {
			return ShowPatch{}, err
		}
		patch.EpisodesSeen = episodes
	}
	return patch, nil
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	s.log.Error(op, zap.Error(err))
	s.writeError(w, errInternal, http.StatusInternalServerError)
}
