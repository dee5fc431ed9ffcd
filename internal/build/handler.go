package build

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/server"
	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// CreateRequest is the body of POST /api/v1/builds.
// @Description Request body for starting a build.
type CreateRequest struct {
	Budget      float64            `json:"budget" validate:"gte=0" example:"1500"`
	Preferences models.Preferences `json:"preferences"`
}

// BudgetRequest is the body of PUT /api/v1/builds/{id}/budget.
type BudgetRequest struct {
	Budget *float64 `json:"budget" validate:"required,gte=0" example:"1200"`
}

// ComponentRequest is the body of PUT /api/v1/builds/{id}/components/{category}.
// The category comes from the path.
type ComponentRequest struct {
	ID             string            `json:"id" validate:"required"`
	Name           string            `json:"name" validate:"required"`
	Price          float64           `json:"price" validate:"gt=0"`
	Image          string            `json:"image,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// MutationResponse is returned by every mutating endpoint.
type MutationResponse struct {
	Build  models.BuildView `json:"build"`
	Change Change           `json:"change"`
}

// Handler serves /api/v1/builds.
type Handler struct {
	svc       *Service
	logger    *zap.Logger
	listLimit int
}

// NewHandler creates a build handler. listLimit is the default page size
// of the list endpoint.
func NewHandler(svc *Service, logger *zap.Logger, listLimit int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if listLimit <= 0 {
		listLimit = 50
	}
	return &Handler{svc: svc, logger: logger, listLimit: listLimit}
}

// Routes implements plugin.HTTPProvider.
func (h *Handler) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "", Handler: h.handleCreate},
		{Method: "GET", Path: "", Handler: h.handleList},
		{Method: "GET", Path: "/{id}", Handler: h.handleGet},
		{Method: "DELETE", Path: "/{id}", Handler: h.handleReset},
		{Method: "GET", Path: "/{id}/summary", Handler: h.handleSummary},
		{Method: "PUT", Path: "/{id}/budget", Handler: h.handleSetBudget},
		{Method: "PUT", Path: "/{id}/preferences", Handler: h.handleSetPreferences},
		{Method: "PUT", Path: "/{id}/components/{category}", Handler: h.handleSelect},
		{Method: "DELETE", Path: "/{id}/components/{category}", Handler: h.handleClear},
	}
}

// handleCreate starts a build.
//
//	@Summary		Create build
//	@Tags			builds
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateRequest	true	"Budget and preferences"
//	@Success		201		{object}	models.BuildView
//	@Failure		400		{object}	server.Problem
//	@Router			/builds [post]
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	b, err := h.svc.Create(r.Context(), req.Budget, req.Preferences)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusCreated, b.View())
}

// handleList pages through builds, most recently updated first.
//
//	@Summary		List builds
//	@Tags			builds
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Offset"
//	@Success		200		{object}	ListResult[models.BuildView]
//	@Router			/builds [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := server.IntParam(r, "limit", h.listLimit)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	offset, err := server.IntParam(r, "offset", 0)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	res, err := h.svc.List(r.Context(), ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	views := make([]models.BuildView, 0, len(res.Items))
	for _, b := range res.Items {
		views = append(views, b.View())
	}
	server.WriteJSON(w, http.StatusOK, ListResult[models.BuildView]{Items: views, Total: res.Total})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, b.View())
}

// handleReset clears every selection and the budget. The build id stays
// valid unless purge=true, which deletes the stored build.
//
//	@Summary		Reset or purge build
//	@Tags			builds
//	@Produce		json
//	@Param			id		path		string	true	"Build ID"
//	@Param			purge	query		bool	false	"Delete the build instead of resetting it"
//	@Success		200		{object}	MutationResponse
//	@Success		204
//	@Failure		404		{object}	server.Problem
//	@Router			/builds/{id} [delete]
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if !server.BoolParam(r, "purge") {
		h.apply(w, r, Reset{})
		return
	}
	if err := h.svc.Purge(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	h.apply(w, r, SetBudget{Amount: *req.Budget})
}

func (h *Handler) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs models.Preferences
	if err := server.DecodeJSON(r, &prefs); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	h.apply(w, r, SetPreferences{Preferences: prefs})
}

// handleSelect stores a part for the category in the path. Sending the
// part that is already selected removes it.
//
//	@Summary		Select component
//	@Tags			builds
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Build ID"
//	@Param			category	path		string				true	"Part category"
//	@Param			request		body		ComponentRequest	true	"Chosen part"
//	@Success		200			{object}	MutationResponse
//	@Failure		400			{object}	server.Problem
//	@Failure		404			{object}	server.Problem
//	@Router			/builds/{id}/components/{category} [put]
func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	c, ok := h.category(w, r)
	if !ok {
		return
	}
	var req ComponentRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	h.apply(w, r, SelectComponent{Component: models.Component{
		ID:             req.ID,
		Name:           req.Name,
		Price:          req.Price,
		Image:          req.Image,
		Type:           c,
		Specifications: req.Specifications,
	}})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	c, ok := h.category(w, r)
	if !ok {
		return
	}
	h.apply(w, r, ClearComponent{Category: c})
}

func (h *Handler) category(w http.ResponseWriter, r *http.Request) (parts.Category, bool) {
	c, err := parts.ParseCategory(strings.ToLower(r.PathValue("category")))
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return "", false
	}
	return c, true
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, a Action) {
	b, change, err := h.svc.Apply(r.Context(), r.PathValue("id"), a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, MutationResponse{Build: b.View(), Change: change})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *InvalidComponentError
	switch {
	case errors.Is(err, ErrNotFound):
		server.NotFound(w, "build not found", r.URL.Path)
	case errors.Is(err, ErrInvalidBudget):
		server.BadRequest(w, err.Error(), r.URL.Path)
	case errors.As(err, &invalid):
		server.BadRequest(w, err.Error(), r.URL.Path)
	default:
		h.logger.Error("build request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		server.InternalError(w, "failed to update build", r.URL.Path)
	}
}
