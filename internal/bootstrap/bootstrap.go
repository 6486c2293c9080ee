package bootstrap

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"

	trackinginadapter "lingobot/internal/modules/tracking/adapter/in"
	trackingoutadapter "lingobot/internal/modules/tracking/adapter/out"
	trackingservice "lingobot/internal/modules/tracking/service"
	trackingusecase "lingobot/internal/modules/tracking/usecase"
	workflowinadapter "lingobot/internal/modules/workflow/adapter/in"
	workflowoutadapter "lingobot/internal/modules/workflow/adapter/out"
	workflowdomain "lingobot/internal/modules/workflow/domain"
	workflowout "lingobot/internal/modules/workflow/port/out"
	workflowservice "lingobot/internal/modules/workflow/service"
	workflowusecase "lingobot/internal/modules/workflow/usecase"
	"lingobot/internal/platform/clock"
	"lingobot/internal/platform/config"
	"lingobot/internal/platform/id"
	"lingobot/internal/platform/logging"
	uiapp "lingobot/internal/ui/app"
)

type App struct {
	Config      config.Config
	Log         hclog.Logger
	TrackingCLI trackinginadapter.CLIHandler
	WorkflowCLI *workflowinadapter.CLIHandler

	driver *workflowoutadapter.PluginDriver
}

func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel)
	clk := clock.SystemClock{}
	ids := id.RandomHex{}

	projector, err := trackingoutadapter.NewSQLiteStatusProjector(cfg.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("new status projector: %w", err)
	}
	trackingUC := trackingusecase.NewInteractor(
		trackingservice.NewTrackingService(clk, ids),
		trackingoutadapter.NewFileRecordStore(cfg.DataFilePath()),
		trackingoutadapter.NewMemoryActiveStore(),
		projector,
		trackingoutadapter.NewFileReportWriter(cfg.ReportsDir()),
		cfg.TargetHours,
		log,
	)

	manifests := workflowoutadapter.NewFileManifestStore(cfg.DataDir)
	driver, err := resolveDriver(cfg, manifests, log)
	if err != nil {
		return nil, err
	}
	var boundDriver workflowout.Driver
	if driver != nil {
		boundDriver = driver
	}
	workflowUC := workflowusecase.NewInteractor(
		workflowservice.NewPlanner(),
		trackingUC,
		boundDriver,
		workflowoutadapter.NewPluginProbe(),
		manifests,
		clk,
		log,
	)

	return &App{
		Config:      cfg,
		Log:         log,
		TrackingCLI: trackinginadapter.NewCLIHandler(trackingUC),
		WorkflowCLI: workflowinadapter.NewCLIHandler(workflowUC),
		driver:      driver,
	}, nil
}

// resolveDriver binds the configured driver binary, falling back to the
// installed manifest with the configured name. A missing driver is not an
// error here; only the run command needs one.
func resolveDriver(cfg config.Config, manifests workflowout.ManifestStore, log hclog.Logger) (*workflowoutadapter.PluginDriver, error) {
	manifest := workflowdomain.DriverManifest{
		Name:    cfg.Driver.Name,
		Binary:  cfg.Driver.Binary,
		Enabled: true,
		Env:     cfg.Driver.Env,
	}
	if manifest.Binary == "" && manifest.Name != "" {
		installed, err := manifests.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load driver manifests: %w", err)
		}
		for _, candidate := range installed {
			if candidate.Name == manifest.Name && candidate.Enabled {
				manifest = candidate
				break
			}
		}
	}
	if manifest.Binary == "" {
		return nil, nil
	}
	return workflowoutadapter.NewPluginDriver(manifest, log), nil
}

// Close releases the driver subprocess, if one was started.
func (a *App) Close() error {
	if a.driver != nil {
		return a.driver.Close()
	}
	return nil
}

func RunDashboard(app *App) error {
	model := uiapp.NewModel(app.TrackingCLI)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
