package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/zatekoja/druglabels/backend/internal/application/services"
	"github.com/zatekoja/druglabels/backend/internal/domain/entities"
	"github.com/zatekoja/druglabels/backend/internal/domain/repositories"
	"github.com/zatekoja/druglabels/backend/internal/infrastructure/observability"
)

// ContentSourceHeader tells clients whether enhanced content was cached, generated or a fallback
const ContentSourceHeader = "X-Content-Source"

// ContentService builds drug label content for the handlers.
// Implemented by services.EnhancementService.
type ContentService interface {
	BasicContent(record *entities.DrugRecord) *entities.BasicContent
	ResolveByID(ctx context.Context, id string) services.ContentResult
}

// DrugHandler handles drug label requests
type DrugHandler struct {
	lookup  repositories.DrugLookupRepository
	search  repositories.DrugSearchRepository
	content ContentService
}

// NewDrugHandler creates a new drug handler
func NewDrugHandler(lookup repositories.DrugLookupRepository, search repositories.DrugSearchRepository, content ContentService) *DrugHandler {
	return &DrugHandler{
		lookup:  lookup,
		search:  search,
		content: content,
	}
}

// SearchDrugs handles GET /api/drugs
func (h *DrugHandler) SearchDrugs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := optionalInt(query.Get("page"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	limit, err := optionalInt(query.Get("limit"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	filter := repositories.DrugSearchFilter{
		Query:   query.Get("q"),
		Labeler: query.Get("labeler"),
		Page:    page,
		Limit:   limit,
	}.Normalize()

	result, err := h.search.Search(r.Context(), filter)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("drug search failed")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetDrug handles GET /api/drugs/{id}. It returns the basic content without
// calling the model provider.
func (h *DrugHandler) GetDrug(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "drug ID is required")
		return
	}

	record, err := h.lookup.GetByID(r.Context(), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.content.BasicContent(record))
}

// GetEnhancedDrug handles GET /api/drugs/{id}/enhanced. Generation failures
// still answer 200 with fallback content.
func (h *DrugHandler) GetEnhancedDrug(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "drug ID is required")
		return
	}

	result := h.content.ResolveByID(r.Context(), id)
	switch result.Outcome {
	case services.OutcomeFound:
		w.Header().Set(ContentSourceHeader, string(result.Source))
		respondWithJSON(w, http.StatusOK, result.Content)
	case services.OutcomeNotFound:
		respondWithAppError(w, result.Err)
	default:
		observability.LoggerFromContext(r.Context()).Error().
			Err(result.Err).
			Str("drug_id", id).
			Msg("drug lookup failed")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func optionalInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
