package api

import (
	"net/http"

	"github.com/phrazzld/transcheck-api/internal/api/shared"
	"github.com/phrazzld/transcheck-api/internal/service"
)

// GlossaryHandler handles glossary HTTP requests.
type GlossaryHandler struct {
	service service.InspectionService
}

// NewGlossaryHandler creates a new GlossaryHandler.
func NewGlossaryHandler(svc service.InspectionService) *GlossaryHandler {
	return &GlossaryHandler{service: svc}
}

// CheckGlossary handles POST /api/check_glossary. It loads the glossary so
// users can confirm a URL before starting an inspection.
func (h *GlossaryHandler) CheckGlossary(w http.ResponseWriter, r *http.Request) {
	var req GlossaryCheckRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	msg, err := h.service.CheckGlossary(r.Context(), req.URL, req.SourceLang)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to check glossary")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, GlossaryCheckResponse{Message: msg})
}
