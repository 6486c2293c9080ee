package in

import (
	"context"

	"lingobot/internal/modules/tracking/dto"
	trackingin "lingobot/internal/modules/tracking/port/in"
)

type CLIHandler struct {
	usecase trackingin.Usecase
}

func NewCLIHandler(usecase trackingin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Status(ctx context.Context, userID string) (dto.StatusOutput, error) {
	return h.usecase.Status(ctx, userID)
}

func (h CLIHandler) StatusAll(ctx context.Context) ([]dto.StatusOutput, error) {
	return h.usecase.StatusAll(ctx)
}

func (h CLIHandler) Report(ctx context.Context, userID string) (dto.ReportOutput, error) {
	return h.usecase.Report(ctx, userID)
}

func (h CLIHandler) Reindex(ctx context.Context) error {
	return h.usecase.Reindex(ctx)
}
