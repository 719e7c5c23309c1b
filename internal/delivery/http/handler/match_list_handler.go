package handler

import (
	"errors"
	"strconv"

	"talent-match/internal/delivery/http/middleware"
	"talent-match/internal/pkg/response"
	"talent-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type MatchListHandler struct {
	uc usecase.MatchListUsecase
}

func NewMatchListHandler(uc usecase.MatchListUsecase) *MatchListHandler {
	return &MatchListHandler{uc: uc}
}

func (h *MatchListHandler) RegisterJobRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/:job_id/candidates", h.ListJobCandidates)
}

func (h *MatchListHandler) RegisterCandidateRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/browse-jobs", h.BrowseJobs)
}

func (h *MatchListHandler) ListJobCandidates(c fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("job_id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid job id", response.CodeValidationError, err)
	}

	page, err := parseQueryInt(c, "page", 0)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid page", response.CodeValidationError, err)
	}
	limit, err := parseQueryInt(c, "limit", 0)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid limit", response.CodeValidationError, err)
	}

	var minScore *float64
	if s := c.Query("min_score"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return middleware.NewAppError(fiber.StatusBadRequest, "Invalid min_score", response.CodeValidationError, err)
		}
		minScore = &v
	}

	items, err := h.uc.ListJobCandidates(c.Context(), jobID, usecase.MatchListParams{
		Status:   c.Query("status"),
		MinScore: minScore,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return mapMatchListError(err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, items)
}

func (h *MatchListHandler) BrowseJobs(c fiber.Ctx) error {
	userID, ok := c.Locals(middleware.CtxUserIDKey).(uuid.UUID)
	if !ok {
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", response.CodeUnauthorized, nil)
	}

	page, err := parseQueryInt(c, "page", 0)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid page", response.CodeValidationError, err)
	}
	limit, err := parseQueryInt(c, "limit", 0)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid limit", response.CodeValidationError, err)
	}

	items, err := h.uc.BrowseJobs(c.Context(), userID, page, limit)
	if err != nil {
		return mapMatchListError(err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, items)
}

func mapMatchListError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrJobNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Job not found", response.CodeJobNotFound, err)
	case errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", response.CodeValidationError, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, response.CodeInternalError, err)
	}
}

func parseQueryInt(c fiber.Ctx, key string, defaultVal int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return v, nil
}
