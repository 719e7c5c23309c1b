package app

import (
	"fmt"
	"strings"

	"talent-match/internal/config"
	"talent-match/internal/delivery/http/middleware"
	"talent-match/internal/delivery/http/routes"
	"talent-match/internal/pkg/jwt"
	"talent-match/internal/repository"
	"talent-match/internal/usecase"
	"talent-match/internal/ws"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func Bootstrap(cfg config.Config, logger *zap.Logger) (*App, func() error, error) {
	c, err := NewContainer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	f := fiber.New(fiber.Config{AppName: cfg.App.AppName})

	f.Use(middleware.NewAccessLogMiddleware(logger).Middleware())
	f.Use(middleware.NewErrorMiddleware(logger).Middleware())

	jwtSvc := jwt.NewHMACService(cfg.JWT.AccessSecret)

	requirementRepo := repository.NewPostgresRequirementRepository(c.DB)
	scoreRepo := repository.NewPostgresSkillScoreRepository(c.DB)
	candidateRepo := repository.NewPostgresCandidateRepository(c.DB)
	matchRepo := repository.NewPostgresMatchRepository(c.DB)

	notifier := recalcNotifier{cache: c.Cache, hub: c.Hub}

	recalcUC := usecase.NewRecalculationUsecase(
		requirementRepo,
		scoreRepo,
		candidateRepo,
		matchRepo,
		notifier,
		cfg.Engine.Workers,
		cfg.Engine.RecalcTimeout,
		logger,
	)
	listUC := usecase.NewMatchListUsecase(
		matchRepo,
		requirementRepo,
		c.Cache,
		cfg.Engine.DefaultLimit,
		cfg.Engine.MaxLimit,
		logger,
	)
	workflowUC := usecase.NewWorkflowUsecase(matchRepo, logger)

	registry := routes.NewRegistry(routes.Deps{
		Auth:          middleware.NewAuthMiddleware(jwtSvc),
		Recalculation: recalcUC,
		MatchList:     listUC,
		Workflow:      workflowUC,
		WSHandler:     ws.NewHandler(c.Hub, logger),
	})
	registry.Register(f)

	app := &App{Fiber: f, Container: c}
	return app, c.Close, nil
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
