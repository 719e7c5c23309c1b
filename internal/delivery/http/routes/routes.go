package routes

import (
	"talent-match/internal/delivery/http/handler"
	"talent-match/internal/delivery/http/middleware"
	"talent-match/internal/usecase"
	"talent-match/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type Deps struct {
	Auth          *middleware.AuthMiddleware
	Recalculation usecase.RecalculationUsecase
	MatchList     usecase.MatchListUsecase
	Workflow      usecase.WorkflowUsecase
	WSHandler     *ws.Handler
}

type Registry struct {
	health *handler.HealthHandler
	deps   Deps
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{health: handler.NewHealthHandler(), deps: deps}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.health.RegisterRoutes(app)

	api := app.Group("/api")
	r.registerV1(api.Group("/v1"))

	if r.deps.WSHandler != nil {
		app.Get("/ws/matches", r.deps.WSHandler.HandleMatchesWS)
	}
}

func (r *Registry) registerV1(v1 fiber.Router) {
	protected := v1.Group("", r.deps.Auth.Middleware())

	calcHandler := handler.NewCalculateHandler(r.deps.Recalculation)
	listHandler := handler.NewMatchListHandler(r.deps.MatchList)
	workflowHandler := handler.NewWorkflowHandler(r.deps.Workflow)

	jobs := protected.Group("/jobs")
	calcHandler.RegisterRoutes(jobs)
	listHandler.RegisterJobRoutes(jobs)

	candidate := protected.Group("/candidate")
	listHandler.RegisterCandidateRoutes(candidate)

	matches := protected.Group("/matches")
	workflowHandler.RegisterRoutes(matches)
}
