package companion

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kindredapp/companion/backend/internal/middleware"
	companionModel "github.com/kindredapp/companion/backend/internal/model/companion"
	companionService "github.com/kindredapp/companion/backend/internal/service/companion"
	"github.com/kindredapp/companion/backend/internal/service/ratelimit"
	"github.com/kindredapp/companion/backend/pkg/utils"
)

// Handler exposes the companion pipeline over HTTP.
type Handler struct {
	svc *companionService.Service
}

// New creates the companion handler.
func New(svc *companionService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the companion endpoint. Callers must already be
// authenticated (see middleware.RequireSession).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/companion/message", h.handleMessage)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.IdentityFrom(r.Context())
	if userID == "" {
		utils.RespondJSON(w, http.StatusUnauthorized, &companionModel.Error{
			Message: "Unauthorized. Please sign in.",
			Code:    companionModel.CodeUnauthorized,
		})
		return
	}

	var payload companionModel.Request
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondJSON(w, http.StatusBadRequest, &companionModel.Error{
			Message: "Invalid JSON body.",
			Code:    companionModel.CodeInvalidInput,
		})
		return
	}

	resp, rate, apiErr := h.svc.Handle(r.Context(), userID, payload)
	h.setRateHeaders(w, rate)

	if apiErr != nil {
		if apiErr.Code == companionModel.CodeRateLimited {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(apiErr.RetryAfter.Seconds()))))
		}
		utils.RespondJSON(w, apiErr.Status, apiErr)
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// setRateHeaders attaches advisory quota headers once the limiter has run.
func (h *Handler) setRateHeaders(w http.ResponseWriter, rate *ratelimit.Result) {
	if rate == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.svc.Limit()))
	w.Header().Set("X-RateLimit-Window-Ms", strconv.FormatInt(h.svc.Window().Milliseconds(), 10))
	if rate.Allowed {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rate.Remaining))
	}
}
