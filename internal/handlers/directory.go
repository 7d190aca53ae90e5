package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"teamdir.dev/internal/services"
	"teamdir.dev/internal/view"
)

// SessionCookie names the cookie holding the page session id
const SessionCookie = "teamdir_session"

// DirectoryHandler serves the page and the interactions on it
type DirectoryHandler struct {
	directory *services.DirectoryService
	logger    *zap.Logger
}

// NewDirectoryHandler creates a new DirectoryHandler
func NewDirectoryHandler(ds *services.DirectoryService, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{directory: ds, logger: logger}
}

type filterRequest struct {
	Filter string `json:"filter"`
}

// Page handles GET / - starts or resumes the page session and renders it
func (h *DirectoryHandler) Page(w http.ResponseWriter, r *http.Request) {
	controller := h.session(w, r)

	var buf bytes.Buffer
	if err := view.RenderPage(&buf, controller.Snapshot()); err != nil {
		h.logger.Error("Error rendering page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// FilterForm handles POST /filter - activates a filter from a page form
func (h *DirectoryHandler) FilterForm(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := controller.Activate(r.FormValue("filter")); err != nil {
		h.respondActivateError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GetView handles GET /api/view
func (h *DirectoryHandler) GetView(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, h.logger, http.StatusOK, controller.Snapshot())
}

// GetDataset handles GET /api/dataset
func (h *DirectoryHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}
	v := controller.Snapshot()
	if v.Status == view.StatusFailed {
		respondError(w, h.logger, http.StatusBadGateway, v.Message)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, v.Dataset())
}

// Filter handles POST /api/filter
func (h *DirectoryHandler) Filter(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := controller.Activate(req.Filter); err != nil {
		h.respondActivateError(w, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, controller.Snapshot())
}

// Press handles POST /api/cards/{index}/press
func (h *DirectoryHandler) Press(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid card index")
		return
	}

	if err := controller.Press(index); err != nil {
		respondError(w, h.logger, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, h.logger, http.StatusOK, controller.Snapshot())
}

// Scroll handles GET /api/scroll?href=#id
func (h *DirectoryHandler) Scroll(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.lookup(w, r)
	if !ok {
		return
	}

	intent, found := controller.ScrollTo(r.URL.Query().Get("href"))
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, intent)
}

// session resumes the caller's page session or starts one. Only the page
// itself starts sessions.
func (h *DirectoryHandler) session(w http.ResponseWriter, r *http.Request) *view.Controller {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	newID, controller := h.directory.Session(r.Context(), id)
	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return controller
}

// lookup finds an existing session; interactions never start one
func (h *DirectoryHandler) lookup(w http.ResponseWriter, r *http.Request) (*view.Controller, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		respondError(w, h.logger, http.StatusNotFound, "Session not found")
		return nil, false
	}

	controller, ok := h.directory.Lookup(c.Value)
	if !ok {
		respondError(w, h.logger, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return controller, true
}

func (h *DirectoryHandler) respondActivateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, view.ErrNotReady):
		respondError(w, h.logger, http.StatusConflict, err.Error())
	case errors.Is(err, view.ErrUnknownFilter):
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		respondError(w, h.logger, http.StatusInternalServerError, err.Error())
	}
}
