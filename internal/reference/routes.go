package reference

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type resolveRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Base  string `json:"base"`
}

type resolveResponse struct {
	Valid     bool           `json:"valid"`
	Reference *PageReference `json:"reference,omitempty"`
	Error     string         `json:"error,omitempty"`
	Kind      string         `json:"kind,omitempty"`
}

type hrefRequest struct {
	Reference PageReference  `json:"reference"`
	Minify    bool           `json:"minify"`
	Relative  bool           `json:"relative"`
	Wikilink  bool           `json:"wikilink"`
	Preset    WikilinkPreset `json:"preset"`
}

// RegisterRoutes mounts resolution endpoints under /api on the given router.
func RegisterRoutes(r chi.Router, resolver *Resolver, builder *HrefBuilder) {
	r.Post("/api/resolve", handleResolve(resolver))
	r.Post("/api/href", handleHref(builder))
}

func handleResolve(resolver *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		ref, err := resolver.Resolve(req.URL, ResolveOptions{FallbackTitle: req.Title, Base: req.Base})
		if err != nil {
			// An unresolvable link is an answer, not a failed request.
			writeJSON(w, http.StatusOK, resolveResponse{Error: err.Error(), Kind: ErrorKind(err)})
			return
		}
		writeJSON(w, http.StatusOK, resolveResponse{Valid: true, Reference: &ref})
	}
}

func handleHref(builder *HrefBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hrefRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		href, err := builder.Build(req.Reference, HrefOptions{
			Minify:         req.Minify,
			Relative:       req.Relative,
			Wikilink:       req.Wikilink,
			WikilinkPreset: req.Preset,
		})
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error(), "kind": ErrorKind(err)})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"href": href})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
