package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/budget"
	"github.com/oxbowmantella/frameforge/internal/build"
	"github.com/oxbowmantella/frameforge/internal/metrics"
	"github.com/oxbowmantella/frameforge/internal/search"
	"github.com/oxbowmantella/frameforge/internal/server"
	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Builds loads stored build sessions.
type Builds interface {
	Get(ctx context.Context, id string) (models.Build, error)
}

// RecommendRequest is the body of POST /api/v1/parts/{category}. It carries
// the whole build for callers that keep state on their side.
// @Description Stateless recommendation request.
type RecommendRequest struct {
	Budget       float64                             `json:"budget" validate:"gte=0" example:"1500"`
	Page         int                                 `json:"page" validate:"gte=0"`
	ItemsPerPage int                                 `json:"itemsPerPage" validate:"gte=0,lte=100"`
	SearchTerm   string                              `json:"searchTerm" validate:"max=200"`
	UseRemaining bool                                `json:"useRemaining"`
	Strict       bool                                `json:"strict"`
	Components   map[parts.Category]models.Component `json:"components" validate:"dive"`
	Preferences  models.Preferences                  `json:"preferences"`
}

// NoMatchProblem is the 404 body: a problem document plus the criteria that
// were searched and why candidates were dropped.
type NoMatchProblem struct {
	server.Problem
	Error          string         `json:"error"`
	Details        string         `json:"details"`
	TotalCount     int            `json:"totalCount"`
	SearchCriteria Criteria       `json:"searchCriteria"`
	Rejections     map[string]int `json:"rejections,omitempty"`
}

// SearchProblem is the 500 body for collaborator failures.
type SearchProblem struct {
	server.Problem
	Error   string `json:"error"`
	Details string `json:"details"`
	Code    string `json:"code,omitempty"`
}

// BandsResponse is returned by GET /api/v1/parts/bands.
type BandsResponse struct {
	Budget          float64                        `json:"budget"`
	Tier            budget.Tier                    `json:"tier"`
	Bands           map[parts.Category]budget.Band `json:"bands"`
	StorageCapacity budget.Capacity                `json:"storageCapacity"`
}

// Handler serves /api/v1/parts.
type Handler struct {
	engine  *Engine
	builds  Builds
	tracker *Tracker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHandler creates the parts handler. builds may be nil, in which case
// the build query parameter is rejected.
func NewHandler(engine *Engine, builds Builds, tracker *Tracker, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	return &Handler{engine: engine, builds: builds, tracker: tracker, metrics: m, logger: logger}
}

// Routes implements plugin.HTTPProvider.
func (h *Handler) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/bands", Handler: h.handleBands},
		{Method: "GET", Path: "/{category}", Handler: h.handleRecommend},
		{Method: "POST", Path: "/{category}", Handler: h.handleRecommendStateless},
		{Method: "GET", Path: "/{category}/status", Handler: h.handleStatus},
	}
}

// handleBands returns the price window of every category for a budget.
//
//	@Summary		Budget bands
//	@Tags			parts
//	@Produce		json
//	@Param			budget			query		number	true	"Total budget"
//	@Param			useRemaining	query		bool	false	"Let memory use the whole budget"
//	@Param			strict			query		bool	false	"Hard bands"
//	@Success		200				{object}	BandsResponse
//	@Failure		400				{object}	server.Problem
//	@Router			/parts/bands [get]
func (h *Handler) handleBands(w http.ResponseWriter, r *http.Request) {
	total, ok, err := server.FloatParam(r, "budget")
	if err != nil || !ok {
		server.BadRequest(w, "budget is required and must be a number", r.URL.Path)
		return
	}
	if total < 0 {
		server.BadRequest(w, "budget must be at least zero", r.URL.Path)
		return
	}
	opts := budget.Options{
		UseRemaining: server.BoolParam(r, "useRemaining"),
		Strict:       server.BoolParam(r, "strict"),
	}
	server.WriteJSON(w, http.StatusOK, BandsResponse{
		Budget:          total,
		Tier:            budget.TierFor(total),
		Bands:           budget.All(total, opts),
		StorageCapacity: budget.StorageCapacity(total),
	})
}

// handleRecommend ranks parts of one category for a stored build or for
// the budget and brand overrides in the query string.
//
//	@Summary		Recommend parts
//	@Description	Searches the catalog for the category, drops parts that do not fit the chosen components or the budget band, and returns a scored page.
//	@Tags			parts
//	@Produce		json
//	@Param			category		path		string	true	"Part category"
//	@Param			budget			query		number	false	"Total budget (overrides the build's)"
//	@Param			build			query		string	false	"Build session id"
//	@Param			page			query		int		false	"Page number"			default(1)
//	@Param			itemsPerPage	query		int		false	"Items per page"		default(10)
//	@Param			searchTerm		query		string	false	"Free-text refinement"
//	@Param			cpuBrand		query		string	false	"CPU brand override"
//	@Param			gpuBrand		query		string	false	"GPU brand override"
//	@Success		200				{object}	Result
//	@Failure		400				{object}	server.Problem
//	@Failure		404				{object}	NoMatchProblem
//	@Failure		409				{object}	server.Problem
//	@Failure		500				{object}	SearchProblem
//	@Router			/parts/{category} [get]
func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	c, ok := h.category(w, r)
	if !ok {
		return
	}

	q := Query{
		Category:     c,
		SearchTerm:   r.URL.Query().Get("searchTerm"),
		UseRemaining: server.BoolParam(r, "useRemaining"),
		Strict:       server.BoolParam(r, "strict"),
	}
	var err error
	// The engine treats a zero page as unset, so an explicit zero is
	// rejected here.
	if q.Page, err = server.IntParam(r, "page", 1); err == nil && q.Page < 1 {
		err = errors.New("page must be at least 1")
	}
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if q.ItemsPerPage, err = server.IntParam(r, "itemsPerPage", DefaultItemsPerPage); err == nil && q.ItemsPerPage < 1 {
		err = fmt.Errorf("itemsPerPage must be between 1 and %d", MaxItemsPerPage)
	}
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	buildID := r.URL.Query().Get("build")
	if buildID != "" {
		if h.builds == nil {
			server.BadRequest(w, "build sessions are not enabled", r.URL.Path)
			return
		}
		b, err := h.builds.Get(r.Context(), buildID)
		if err != nil {
			if errors.Is(err, build.ErrNotFound) {
				server.NotFound(w, "build not found", r.URL.Path)
				return
			}
			h.logger.Error("load build", zap.String("build_id", buildID), zap.Error(err))
			server.InternalError(w, "failed to load build", r.URL.Path)
			return
		}
		q.Build = b
	} else {
		q.Build = models.NewBuild("")
	}

	total, set, err := server.FloatParam(r, "budget")
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if set {
		q.Build.Budget = total
	}
	if v := r.URL.Query().Get("cpuBrand"); v != "" {
		q.Build.Preferences.CPUBrand = v
	}
	if v := r.URL.Query().Get("gpuBrand"); v != "" {
		q.Build.Preferences.GPUBrand = v
	}

	h.run(w, r, buildID, q)
}

// handleRecommendStateless is the POST form of handleRecommend.
func (h *Handler) handleRecommendStateless(w http.ResponseWriter, r *http.Request) {
	c, ok := h.category(w, r)
	if !ok {
		return
	}
	var req RecommendRequest
	if err := server.DecodeJSON(r, &req); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	b := models.NewBuild("")
	b.Budget = req.Budget
	b.Preferences = req.Preferences
	for cat, comp := range req.Components {
		if !cat.Valid() {
			server.BadRequest(w, "unknown component category "+string(cat), r.URL.Path)
			return
		}
		comp := comp
		comp.Type = cat
		b.Components[cat] = &comp
	}

	h.run(w, r, "", Query{
		Category:     c,
		Build:        b,
		Page:         req.Page,
		ItemsPerPage: req.ItemsPerPage,
		SearchTerm:   req.SearchTerm,
		UseRemaining: req.UseRemaining,
		Strict:       req.Strict,
	})
}

// handleStatus reports the request state of one build's category view.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := h.category(w, r)
	if !ok {
		return
	}
	buildID := r.URL.Query().Get("build")
	if buildID == "" {
		server.BadRequest(w, "build is required", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusOK, h.tracker.Status(TrackerKey{Build: buildID, Category: c}))
}

// run executes q. Requests tied to a build go through the tracker so a
// newer request for the same view wins.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, buildID string, q Query) {
	ctx := r.Context()
	var (
		tk      Ticket
		tracked = buildID != ""
	)
	if tracked {
		ctx, tk = h.tracker.Begin(ctx, TrackerKey{Build: buildID, Category: q.Category})
	}

	res, err := h.engine.Recommend(ctx, q)

	if tracked {
		total := 0
		if res != nil {
			total = res.TotalCount
		}
		if ferr := h.tracker.Finish(tk, total, err); ferr != nil {
			h.metrics.Recommendation(string(q.Category), metrics.OutcomeStale)
			server.Conflict(w, ferr.Error(), r.URL.Path)
			return
		}
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) category(w http.ResponseWriter, r *http.Request) (parts.Category, bool) {
	c, err := parts.ParseCategory(r.PathValue("category"))
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return "", false
	}
	return c, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		in  *InputError
		nm  *NoMatchError
		se  *SearchError
		sec string
	)
	status := HTTPStatus(err)
	switch {
	case errors.As(err, &in):
		server.BadRequest(w, in.Error(), r.URL.Path)

	case errors.As(err, &nm):
		server.WriteProblemBody(w, status, NoMatchProblem{
			Problem: server.Problem{
				Type:     server.ProblemTypeNoMatch,
				Title:    "No Matches",
				Status:   status,
				Detail:   nm.Reason,
				Instance: r.URL.Path,
			},
			Error:          "no matches",
			Details:        nm.Reason,
			SearchCriteria: nm.Criteria,
			Rejections:     nm.Rejections,
		})

	case errors.As(err, &se):
		var serr *search.Error
		if errors.As(se.Err, &serr) {
			sec = serr.Code
		}
		h.logger.Error("search collaborator failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		server.WriteProblemBody(w, status, SearchProblem{
			Problem: server.Problem{
				Type:     server.ProblemTypeUpstream,
				Title:    "Search Failed",
				Status:   status,
				Detail:   "failed to fetch parts",
				Instance: r.URL.Path,
			},
			Error:   "failed to fetch parts",
			Details: se.Err.Error(),
			Code:    sec,
		})

	case errors.Is(err, ErrSuperseded):
		server.Conflict(w, err.Error(), r.URL.Path)

	default:
		h.logger.Error("recommendation failed", zap.String("path", r.URL.Path), zap.Error(err))
		server.InternalError(w, "failed to fetch parts", r.URL.Path)
	}
}
