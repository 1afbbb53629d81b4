package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/revlens/internal/session"
)

type openRequest struct {
	AnchorID int `json:"anchor_id"`
}

type scrollRequest struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

type compareRequest struct {
	Title  string `json:"title"`
	OldID  string `json:"old_id"`
	DiffID string `json:"diff_id"`
}

type pageResponse struct {
	Page  Page   `json:"page"`
	Links []Link `json:"links"`
}

// RegisterRoutes mounts the page and session endpoints.
func RegisterRoutes(r chi.Router, v *Viewer) {
	r.Route("/api/page", func(r chi.Router) {
		r.Post("/", v.handleLoadPage)
		r.Get("/links", v.handleLinks)
		r.Post("/scroll", v.handleScroll)
	})
	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", v.handleStatus)
		r.Post("/open", v.handleOpen)
		r.Post("/next", v.command(v.Next))
		r.Post("/previous", v.command(v.Previous))
		r.Post("/back", v.command(v.Back))
		r.Post("/close", v.command(v.Close))
		r.Post("/compare", v.handleCompare)
	})
}

// RegisterWebSocket mounts the websocket navigation driver. It is kept apart
// from RegisterRoutes so request timeouts do not apply to it.
func RegisterWebSocket(r chi.Router, v *Viewer) {
	r.Get("/ws/viewer", v.handleWebSocket)
}

func (v *Viewer) handleLoadPage(w http.ResponseWriter, r *http.Request) {
	var in PageInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	page, err := v.LoadPage(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Page: page, Links: v.Links()})
}

func (v *Viewer) handleLinks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pageResponse{Page: v.Page(), Links: v.Links()})
}

func (v *Viewer) handleScroll(w http.ResponseWriter, r *http.Request) {
	var req scrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	v.Scroll(r.Context(), req.First, req.Last)
	writeJSON(w, http.StatusOK, pageResponse{Page: v.Page(), Links: v.Links()})
}

func (v *Viewer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, v.Status())
}

func (v *Viewer) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := v.Open(r.Context(), req.AnchorID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Status())
}

func (v *Viewer) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := v.Compare(r.Context(), req.Title, req.OldID, req.DiffID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Status())
}

// command adapts a bodiless session operation to a handler answering with
// the new status.
func (v *Viewer) command(op func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v.Status())
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownAnchor), errors.Is(err, session.ErrNoTarget):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrNotOpen), errors.Is(err, session.ErrStale):
		return http.StatusConflict
	case errors.Is(err, ErrEmptyPage):
		return http.StatusBadRequest
	}
	switch session.KindOf(err) {
	case session.KindParse, session.KindValidation:
		return http.StatusUnprocessableEntity
	case session.KindFetch, session.KindDependency:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), map[string]string{"error": err.Error(), "kind": session.KindOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
