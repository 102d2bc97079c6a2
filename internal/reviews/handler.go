package reviews

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aim-injury/aim-intake/pkg/logging"
)

// Handler serves GET /reviews.
type Handler struct {
	store  Store
	logger *logging.Logger
}

func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /reviews?service=&persona=&featured=&transparency=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Service:      q.Get("service"),
		Persona:      q.Get("persona"),
		FeaturedOnly: q.Get("featured") == "true",
		Transparency: q.Get("transparency") == "true",
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		f.Limit = n
	}

	list, err := h.store.List(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to fetch reviews", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch reviews"})
		return
	}
	if list == nil {
		list = []Review{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": list, "count": len(list)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
