package handler

import (
	"errors"

	"talent-match/internal/delivery/http/dto"
	"talent-match/internal/delivery/http/middleware"
	"talent-match/internal/pkg/response"
	"talent-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type CalculateHandler struct {
	uc usecase.RecalculationUsecase
}

func NewCalculateHandler(uc usecase.RecalculationUsecase) *CalculateHandler {
	return &CalculateHandler{uc: uc}
}

func (h *CalculateHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/:job_id/calculate", h.Calculate)
}

func (h *CalculateHandler) Calculate(c fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("job_id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid job id", response.CodeValidationError, err)
	}

	res, err := h.uc.Recalculate(c.Context(), jobID)
	if err != nil {
		return mapRecalculationError(err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.RecalculationResponse{
		MatchesWritten: res.MatchesWritten,
		DurationMs:     res.Duration.Milliseconds(),
	})
}

func mapRecalculationError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrJobNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Job not found", response.CodeJobNotFound, err)
	case errors.Is(err, usecase.ErrNoActiveRequirements):
		return middleware.NewAppError(fiber.StatusUnprocessableEntity, "No skills configured for this job", response.CodeNoRequirements, err)
	case errors.Is(err, usecase.ErrCalculationInProgress):
		return middleware.NewAppError(fiber.StatusConflict, "Recalculation already in progress", response.CodeCalculationInProgress, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, response.CodeInternalError, err)
	}
}
