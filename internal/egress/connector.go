package egress

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
)

// Connector establishes and tears down the tunnel of one provider family.
// Both calls must respect ctx deadlines; an expired deadline counts as failure.
type Connector interface {
	Connect(ctx context.Context, svc *domain.EgressService, region *domain.EgressRegion) error
	Disconnect(ctx context.Context, svc *domain.EgressService) error
}

// ConnectorRegistry selects a Connector by provider tag.
type ConnectorRegistry struct {
	mu         sync.RWMutex
	byProvider map[domain.EgressProvider]Connector
}

func NewConnectorRegistry() *ConnectorRegistry {
	return &ConnectorRegistry{
		byProvider: make(map[domain.EgressProvider]Connector),
	}
}

func (r *ConnectorRegistry) Register(provider domain.EgressProvider, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byProvider[provider] = c
}

func (r *ConnectorRegistry) Lookup(provider domain.EgressProvider) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byProvider[provider]
	return c, ok
}

// Runner executes an external command. Factored out so tests can intercept
// the CLI calls the provider connectors make.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// CLIConnector drives a provider's own command-line client, e.g.
// `nordvpn connect US` / `nordvpn disconnect`.
type CLIConnector struct {
	Binary         string
	ConnectArgs    []string // region code is appended
	DisconnectArgs []string
	Run            Runner
}

func NewCLIConnector(binary string, connectArgs, disconnectArgs []string) *CLIConnector {
	return &CLIConnector{
		Binary:         binary,
		ConnectArgs:    connectArgs,
		DisconnectArgs: disconnectArgs,
		Run:            execRunner,
	}
}

func (c *CLIConnector) Connect(ctx context.Context, _ *domain.EgressService, region *domain.EgressRegion) error {
	args := append(append([]string{}, c.ConnectArgs...), region.Code)
	return c.Run(ctx, c.Binary, args...)
}

func (c *CLIConnector) Disconnect(ctx context.Context, _ *domain.EgressService) error {
	return c.Run(ctx, c.Binary, c.DisconnectArgs...)
}

// CommandConnector runs shell command templates taken from the service's auth
// data ("connect_command" / "disconnect_command"), with {region} substituted.
type CommandConnector struct {
	Run Runner
}

func NewCommandConnector() *CommandConnector {
	return &CommandConnector{Run: execRunner}
}

func (c *CommandConnector) Connect(ctx context.Context, svc *domain.EgressService, region *domain.EgressRegion) error {
	tmpl := svc.AuthData["connect_command"]
	if tmpl == "" {
		return fmt.Errorf("service %s has no connect_command configured", svc.Name)
	}
	cmd := strings.ReplaceAll(tmpl, "{region}", region.Code)
	return c.Run(ctx, "sh", "-c", cmd)
}

func (c *CommandConnector) Disconnect(ctx context.Context, svc *domain.EgressService) error {
	tmpl := svc.AuthData["disconnect_command"]
	if tmpl == "" {
		return fmt.Errorf("service %s has no disconnect_command configured", svc.Name)
	}
	return c.Run(ctx, "sh", "-c", tmpl)
}

// DefaultRegistry wires the shipped providers.
func DefaultRegistry() *ConnectorRegistry {
	r := NewConnectorRegistry()
	r.Register(domain.ProviderNordVPN, NewCLIConnector("nordvpn", []string{"connect"}, []string{"disconnect"}))
	r.Register(domain.ProviderSurfshark, NewCLIConnector("surfshark-vpn", []string{"attack"}, []string{"down"}))
	r.Register(domain.ProviderCustom, NewCommandConnector())
	return r
}
