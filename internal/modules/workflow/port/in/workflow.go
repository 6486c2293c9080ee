package in

import (
	"context"

	"lingobot/internal/modules/workflow/dto"
)

type Usecase interface {
	// Run executes practice sessions until the target is reached, a fatal
	// failure occurs, or ctx is cancelled. Every opened session is closed
	// before Run returns.
	Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error)
	// CheckDrivers probes every installed driver binary and reports what it
	// advertises.
	CheckDrivers(ctx context.Context) ([]dto.DriverOutput, error)
}
