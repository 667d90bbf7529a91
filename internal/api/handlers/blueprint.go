package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"zeusbolt/internal/core"
	"zeusbolt/internal/external"
	"zeusbolt/internal/types"
)

// BlueprintHandler generates a structured product blueprint from an app idea.
// Generation counts against the same free-tier limit as project creation so a
// free user cannot sidestep the cap by generating instead of saving.
type BlueprintHandler struct {
	generator     external.BlueprintGenerator
	subscriptions SubscriptionReader
	projects      ProjectStore
	validator     *core.Validator
	freeLimit     int
	logger        *slog.Logger
}

// NewBlueprintHandler creates a new BlueprintHandler with the provided
// dependencies.
func NewBlueprintHandler(
	generator external.BlueprintGenerator,
	subscriptions SubscriptionReader,
	projects ProjectStore,
	validator *core.Validator,
	freeLimit int,
	logger *slog.Logger,
) *BlueprintHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlueprintHandler{
		generator:     generator,
		subscriptions: subscriptions,
		projects:      projects,
		validator:     validator,
		freeLimit:     freeLimit,
		logger:        logger,
	}
}

// RegisterRoutes mounts the blueprint endpoint on the given router.
func (h *BlueprintHandler) RegisterRoutes(r chi.Router) {
	r.Post("/blueprints", h.Generate)
}

// generateBlueprintRequest is the request body for POST /blueprints.
type generateBlueprintRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Idea  string `json:"idea" validate:"required,max=2000"`
}

// generateBlueprintResponse is the response body for POST /blueprints.
type generateBlueprintResponse struct {
	Title     string           `json:"title"`
	Blueprint *types.Blueprint `json:"blueprint"`
}

// Generate produces a blueprint for the submitted idea. The subscription and
// project count are read in parallel; the expensive model call only happens
// after the limit check passes.
func (h *BlueprintHandler) Generate(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication required", nil))
		return
	}

	var req generateBlueprintRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	var (
		sub   *types.Subscription
		count int
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		sub, err = h.subscriptions.GetByUserID(gctx, actor.ID)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = h.projects.CountByUser(gctx, actor.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		core.Error(w, r, err)
		return
	}

	if !sub.Entitled() && count >= h.freeLimit {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeLimitProjects,
			"free plan project limit reached, upgrade to generate more blueprints",
			nil,
			map[string]any{"limit": h.freeLimit, "count": count},
		))
		return
	}

	blueprint, err := h.generator.GenerateBlueprint(r.Context(), req.Title+"\n\n"+req.Idea)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "blueprint generation failed",
			"error", err,
			"user_id", actor.ID,
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: generateBlueprintResponse{
		Title:     req.Title,
		Blueprint: blueprint,
	}})
}
