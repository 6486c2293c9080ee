package out

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	driverrpc "lingobot/internal/modules/workflow/adapter/out/rpc"
	"lingobot/internal/modules/workflow/domain"
	workflowout "lingobot/internal/modules/workflow/port/out"
)

// PluginProbe starts a driver binary just long enough to ask what it is.
type PluginProbe struct{}

func NewPluginProbe() workflowout.DriverProbe {
	return &PluginProbe{}
}

func (p *PluginProbe) Describe(ctx context.Context, manifest domain.DriverManifest) (domain.DriverInfo, error) {
	if err := manifest.Validate(); err != nil {
		return domain.DriverInfo{}, err
	}
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  driverrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          driverrpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.NoLevel}),
	})
	defer client.Kill()

	rpcClient, err := client.Client()
	if err != nil {
		return domain.DriverInfo{}, fmt.Errorf("start driver %s: %w", manifest.Name, err)
	}
	raw, err := rpcClient.Dispense(driverrpc.PluginMapKey)
	if err != nil {
		return domain.DriverInfo{}, fmt.Errorf("dispense driver %s: %w", manifest.Name, err)
	}
	typed, ok := raw.(driverrpc.AutomationDriverClient)
	if !ok {
		return domain.DriverInfo{}, fmt.Errorf("driver rpc client type mismatch")
	}

	callCtx, cancel := callContext(ctx, defaultDescribeTimeout)
	defer cancel()
	info, err := typed.Describe(callCtx)
	if err != nil {
		return domain.DriverInfo{}, fmt.Errorf("describe driver %s: %w", manifest.Name, err)
	}
	return domain.DriverInfo{Name: info.Name, Version: info.Version, Modes: info.Modes}, nil
}
