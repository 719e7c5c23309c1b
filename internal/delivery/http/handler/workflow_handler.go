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

type WorkflowHandler struct {
	uc usecase.WorkflowUsecase
}

func NewWorkflowHandler(uc usecase.WorkflowUsecase) *WorkflowHandler {
	return &WorkflowHandler{uc: uc}
}

func (h *WorkflowHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Put("/:match_id/status", h.UpdateStatus)
	r.Post("/:match_id/view", h.RecordView)
	r.Post("/:match_id/contact", h.RecordContact)
}

func (h *WorkflowHandler) UpdateStatus(c fiber.Ctx) error {
	matchID, err := uuid.Parse(c.Params("match_id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid match id", response.CodeValidationError, err)
	}

	var req dto.MatchStatusRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", response.CodeValidationError, err)
	}

	rec, err := h.uc.UpdateStatus(c.Context(), matchID, req.Status)
	if err != nil {
		return mapWorkflowError(err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchRecordResponse(rec))
}

func (h *WorkflowHandler) RecordView(c fiber.Ctx) error {
	matchID, err := uuid.Parse(c.Params("match_id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid match id", response.CodeValidationError, err)
	}

	rec, err := h.uc.RecordView(c.Context(), matchID)
	if err != nil {
		return mapWorkflowError(err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchRecordResponse(rec))
}

func (h *WorkflowHandler) RecordContact(c fiber.Ctx) error {
	matchID, err := uuid.Parse(c.Params("match_id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid match id", response.CodeValidationError, err)
	}

	rec, err := h.uc.RecordContact(c.Context(), matchID)
	if err != nil {
		return mapWorkflowError(err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchRecordResponse(rec))
}

func mapWorkflowError(err error) error {
	switch {
	case errors.Is(err, usecase.ErrMatchNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Match not found", response.CodeMatchNotFound, err)
	case errors.Is(err, usecase.ErrInvalidStatus):
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid status", response.CodeInvalidStatus, err)
	case errors.Is(err, usecase.ErrTransitionDenied):
		return middleware.NewAppError(fiber.StatusConflict, "Status transition denied", response.CodeInvalidStatus, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, response.CodeInternalError, err)
	}
}
