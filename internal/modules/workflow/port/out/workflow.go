package out

import (
	"context"

	"lingobot/internal/modules/workflow/domain"
)

// Driver is the automation backend bound for this run. Login state must
// survive across RunIteration calls within one process.
type Driver interface {
	Describe(ctx context.Context) (domain.DriverInfo, error)
	Login(ctx context.Context, session domain.SessionInfo) error
	RunIteration(ctx context.Context, session domain.SessionInfo, unit domain.Unit) (domain.Outcome, error)
}

// DriverProbe inspects an installed driver without binding it to a run.
type DriverProbe interface {
	Describe(ctx context.Context, manifest domain.DriverManifest) (domain.DriverInfo, error)
}

type ManifestStore interface {
	Load(ctx context.Context) ([]domain.DriverManifest, error)
}
