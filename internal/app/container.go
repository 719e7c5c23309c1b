package app

import (
	"context"
	"time"

	"talent-match/internal/config"
	"talent-match/internal/database"
	"talent-match/internal/database/migration"
	dbpostgres "talent-match/internal/database/postgres"
	"talent-match/internal/infrastructure/cache"
	"talent-match/internal/usecase"
	"talent-match/internal/ws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Container struct {
	Config config.Config
	DB     database.DB
	Cache  *cache.Redis
	Hub    *ws.Hub
	Logger *zap.Logger
}

func NewContainer(cfg config.Config, logger *zap.Logger) (*Container, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := (migration.Runner{Dir: "migrations"}).Run(ctx, db.SQLDB()); err != nil {
		_ = db.Close()
		return nil, err
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	return &Container{
		Config: cfg,
		DB:     db,
		Cache:  cache.NewRedis(cfg.Redis, logger),
		Hub:    hub,
		Logger: logger,
	}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// recalcNotifier fans a completed run out to the cache (new listing
// generation) and the websocket hub.
type recalcNotifier struct {
	cache *cache.Redis
	hub   *ws.Hub
}

func (n recalcNotifier) RecalculationCompleted(jobID uuid.UUID, res usecase.RecalculationResult) {
	if n.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n.cache.BumpJobVersion(ctx, jobID)
	}
	if n.hub != nil {
		n.hub.NotifyMatchRecalculated(jobID, res.MatchesWritten)
	}
}
