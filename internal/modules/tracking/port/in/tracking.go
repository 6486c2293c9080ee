package in

import (
	"context"

	"lingobot/internal/modules/tracking/dto"
)

type Usecase interface {
	StartSession(ctx context.Context, input dto.StartInput) (dto.StartOutput, error)
	StopSession(ctx context.Context, input dto.StopInput) (dto.StopOutput, error)
	Status(ctx context.Context, userID string) (dto.StatusOutput, error)
	StatusAll(ctx context.Context) ([]dto.StatusOutput, error)
	Report(ctx context.Context, userID string) (dto.ReportOutput, error)
	Reindex(ctx context.Context) error
}
