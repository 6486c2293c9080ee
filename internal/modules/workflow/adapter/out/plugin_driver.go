package out

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	driverrpc "lingobot/internal/modules/workflow/adapter/out/rpc"
	"lingobot/internal/modules/workflow/domain"
	"lingobot/internal/platform/logging"
)

const (
	defaultStartTimeout    = 5 * time.Second
	defaultDescribeTimeout = 5 * time.Second
)

// PluginDriver runs an automation driver binary as a go-plugin subprocess.
// The process is started on first use and kept alive until Close so that the
// driver's login state survives across iterations.
type PluginDriver struct {
	manifest domain.DriverManifest
	log      hclog.Logger

	mu     sync.Mutex
	client *plugin.Client
	rpc    driverrpc.AutomationDriverClient
}

func NewPluginDriver(manifest domain.DriverManifest, log hclog.Logger) *PluginDriver {
	if log == nil {
		log = logging.Discard()
	}
	return &PluginDriver{manifest: manifest, log: log.Named("driver")}
}

func (d *PluginDriver) Describe(ctx context.Context) (domain.DriverInfo, error) {
	client, err := d.ensure()
	if err != nil {
		return domain.DriverInfo{}, err
	}
	callCtx, cancel := callContext(ctx, defaultDescribeTimeout)
	defer cancel()
	info, err := client.Describe(callCtx)
	if err != nil {
		return domain.DriverInfo{}, fmt.Errorf("describe driver: %w", err)
	}
	return domain.DriverInfo{Name: info.Name, Version: info.Version, Modes: info.Modes}, nil
}

func (d *PluginDriver) Login(ctx context.Context, session domain.SessionInfo) error {
	client, err := d.ensure()
	if err != nil {
		return err
	}
	response, err := client.Login(ctx, &driverrpc.LoginRequest{Context: sessionContext(d.manifest, session)})
	if err != nil {
		return fmt.Errorf("driver login rpc: %w", err)
	}
	if !response.OK {
		return fmt.Errorf("driver refused login: %s", response.Reason)
	}
	return nil
}

func (d *PluginDriver) RunIteration(ctx context.Context, session domain.SessionInfo, unit domain.Unit) (domain.Outcome, error) {
	client, err := d.ensure()
	if err != nil {
		return domain.Outcome{}, err
	}
	response, err := client.RunIteration(ctx, &driverrpc.IterationRequest{
		Context: sessionContext(d.manifest, session),
		Unit:    driverrpc.UnitRef{Kind: unit.Kind, Name: unit.Name, Index: int32(unit.Index)},
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("driver iteration rpc: %w", err)
	}
	switch status := domain.OutcomeStatus(response.Status); status {
	case domain.OutcomeOK, domain.OutcomeRetry, domain.OutcomeFatal:
		return domain.Outcome{Status: status, Reason: response.Reason}, nil
	default:
		return domain.Outcome{}, fmt.Errorf("driver returned unknown status %q", response.Status)
	}
}

// Close kills the driver subprocess. Safe to call without a prior connect.
func (d *PluginDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		d.client.Kill()
		d.client = nil
		d.rpc = nil
	}
	return nil
}

func (d *PluginDriver) ensure() (driverrpc.AutomationDriverClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rpc != nil {
		return d.rpc, nil
	}
	if err := d.manifest.Validate(); err != nil {
		return nil, err
	}
	cmd := exec.Command(d.manifest.Binary)
	cmd.Env = os.Environ()
	for key, value := range d.manifest.Env {
		cmd.Env = append(cmd.Env, key+"="+value)
	}
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  driverrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          driverrpc.PluginMap(nil),
		Cmd:              cmd,
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.NoLevel}),
	})
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("start driver %s: %w", d.manifest.Name, err)
	}
	raw, err := rpcClient.Dispense(driverrpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense driver %s: %w", d.manifest.Name, err)
	}
	typed, ok := raw.(driverrpc.AutomationDriverClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("driver rpc client type mismatch")
	}
	d.client = client
	d.rpc = typed
	d.log.Debug("driver started", "name", d.manifest.Name, "binary", d.manifest.Binary)
	return d.rpc, nil
}

func sessionContext(manifest domain.DriverManifest, session domain.SessionInfo) driverrpc.SessionContext {
	return driverrpc.SessionContext{
		UserID:    session.UserID,
		SessionID: session.SessionID,
		Label:     session.Label,
		Env:       manifest.Env,
	}
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
