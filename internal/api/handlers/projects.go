package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zeusbolt/internal/core"
	"zeusbolt/internal/db"
	"zeusbolt/internal/types"
)

// ProjectStore is the project persistence surface the handler needs.
// Satisfied by *db.ProjectRepo.
type ProjectStore interface {
	Create(ctx context.Context, userID, content, audience string) (*types.Project, error)
	GetByID(ctx context.Context, userID, projectID string) (*types.Project, error)
	ListByUser(ctx context.Context, userID string) ([]types.Project, error)
	ListRefsByUser(ctx context.Context, userID string) ([]db.ProjectRef, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	UpdateRefinementStep(ctx context.Context, userID, projectID string, step int, content string) error
}

// ProjectsHandler handles project CRUD and refinement-step updates.
type ProjectsHandler struct {
	projects      ProjectStore
	subscriptions SubscriptionReader
	validator     *core.Validator
	freeLimit     int
	logger        *slog.Logger
}

// NewProjectsHandler creates a new ProjectsHandler. freeLimit is the maximum
// number of projects a non-entitled user may own.
func NewProjectsHandler(
	projects ProjectStore,
	subscriptions SubscriptionReader,
	validator *core.Validator,
	freeLimit int,
	logger *slog.Logger,
) *ProjectsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectsHandler{
		projects:      projects,
		subscriptions: subscriptions,
		validator:     validator,
		freeLimit:     freeLimit,
		logger:        logger,
	}
}

// RegisterRoutes mounts the project endpoints on the given router.
func (h *ProjectsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/count", h.Count)
		r.Get("/{projectID}", h.Get)
		r.Get("/{projectID}/refinement", h.GetRefinement)
		r.Patch("/{projectID}/refinement", h.UpdateRefinement)
	})
}

// createProjectRequest is the request body for POST /projects.
type createProjectRequest struct {
	Content  string `json:"content" validate:"required,max=2000"`
	Audience string `json:"audience" validate:"omitempty,max=500"`
}

// Create stores a new project for the authenticated user. Non-entitled users
// are capped at the free project limit; an active Pro subscription lifts it.
// Entitlement is read fresh from the store on every call so a subscription
// change takes effect immediately.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	var req createProjectRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.checkProjectLimit(r.Context(), actor.ID); err != nil {
		core.Error(w, r, err)
		return
	}

	project, err := h.projects.Create(r.Context(), actor.ID, req.Content, req.Audience)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "project created",
		"user_id", actor.ID,
		"project_id", project.ID,
	)

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: project})
}

// checkProjectLimit enforces the free-tier cap. Entitled users are never
// limited.
func (h *ProjectsHandler) checkProjectLimit(ctx context.Context, userID string) error {
	sub, err := h.subscriptions.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if sub.Entitled() {
		return nil
	}

	count, err := h.projects.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count >= h.freeLimit {
		return types.NewAppErrorWithDetails(
			types.ErrCodeLimitProjects,
			"free plan project limit reached, upgrade to create more projects",
			nil,
			map[string]any{"limit": h.freeLimit, "count": count},
		)
	}
	return nil
}

// List returns the user's most recent projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	projects, err := h.projects.ListByUser(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: projects})
}

// projectCountResponse is the response body for GET /projects/count.
type projectCountResponse struct {
	Count    int             `json:"count"`
	Projects []db.ProjectRef `json:"projects"`
}

// Count returns the total number of projects the user owns along with a
// lightweight id/created_at listing, newest first.
func (h *ProjectsHandler) Count(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	refs, err := h.projects.ListRefsByUser(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: projectCountResponse{
		Count:    len(refs),
		Projects: refs,
	}})
}

// Get returns a single project owned by the user.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	project, err := h.projects.GetByID(r.Context(), actor.ID, chi.URLParam(r, "projectID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: project})
}

// refinementResponse is the response body for GET /projects/{id}/refinement.
type refinementResponse struct {
	ProjectID string   `json:"project_id"`
	Steps     []string `json:"steps"`
}

// GetRefinement returns all refinement-step answers for a project, in step
// order. Unanswered steps are empty strings.
func (h *ProjectsHandler) GetRefinement(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	project, err := h.projects.GetByID(r.Context(), actor.ID, chi.URLParam(r, "projectID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: refinementResponse{
		ProjectID: project.ID,
		Steps:     project.Refinement[:],
	}})
}

// updateRefinementRequest is the request body for PATCH /projects/{id}/refinement.
type updateRefinementRequest struct {
	Step    int    `json:"step" validate:"required,min=1,max=6"`
	Content string `json:"content" validate:"required,max=4000"`
}

// UpdateRefinement writes one refinement step answer on a project owned by
// the user.
func (h *ProjectsHandler) UpdateRefinement(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	var req updateRefinementRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	projectID := chi.URLParam(r, "projectID")
	if err := h.projects.UpdateRefinementStep(r.Context(), actor.ID, projectID, req.Step, req.Content); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "refinement step updated",
		"user_id", actor.ID,
		"project_id", projectID,
		"step", req.Step,
	)

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]any{
		"project_id": projectID,
		"step":       req.Step,
	}})
}
