package in

import (
	"context"

	"lingobot/internal/modules/workflow/dto"
	workflowin "lingobot/internal/modules/workflow/port/in"
)

type CLIHandler struct {
	usecase workflowin.Usecase
}

func NewCLIHandler(usecase workflowin.Usecase) *CLIHandler {
	return &CLIHandler{usecase: usecase}
}

func (h *CLIHandler) Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error) {
	return h.usecase.Run(ctx, input)
}

func (h *CLIHandler) CheckDrivers(ctx context.Context) ([]dto.DriverOutput, error) {
	return h.usecase.CheckDrivers(ctx)
}
