package egress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
)

var (
	ErrServiceNotFound = errors.New("egress service not found")
	ErrRegionNotFound  = errors.New("egress region not found")
	ErrRegionInactive  = errors.New("egress region is not active")
	ErrNoConnector     = errors.New("no connector registered for provider")
)

const ipProbeURL = "https://api.ipify.org?format=json"

// Persister stores the pool's services after mutations.
type Persister interface {
	SaveEgressServices(ctx context.Context, services []*domain.EgressService) error
}

// Pool owns the egress services and the single active connection.
// Invariant: at most one service across the pool is connected at any time.
type Pool struct {
	mu         sync.Mutex
	services   []*domain.EgressService
	current    *domain.EgressService
	connectors *ConnectorRegistry
	store      Persister // nil => in-memory only
	logger     logger.Logger

	connectTimeout time.Duration
	probeClient    *http.Client
}

func NewPool(connectors *ConnectorRegistry, store Persister, log logger.Logger, connectTimeout, probeTimeout time.Duration) *Pool {
	return &Pool{
		connectors:     connectors,
		store:          store,
		logger:         log,
		connectTimeout: connectTimeout,
		probeClient:    &http.Client{Timeout: probeTimeout},
	}
}

// Replace swaps in a loaded service set. Persisted connection state is not
// trusted across restarts; every service comes back disconnected.
func (p *Pool) Replace(services []*domain.EgressService) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, svc := range services {
		svc.SetDisconnected()
	}
	p.services = services
	p.current = nil
}

// AddService registers a new service. Adding an existing name is idempotent
// and returns the existing record.
func (p *Pool) AddService(ctx context.Context, provider domain.EgressProvider, name string, authData map[string]string) (*domain.EgressService, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if svc := p.serviceByNameLocked(name); svc != nil {
		p.logger.Warn("egress service already exists", logger.String("name", name))
		return svc, false
	}

	svc := &domain.EgressService{
		Provider: provider,
		Name:     name,
		AuthData: authData,
		Status:   domain.EgressDisconnected,
	}
	p.services = append(p.services, svc)
	p.logger.Info("added egress service",
		logger.String("name", name),
		logger.String("provider", string(provider)))

	p.persistLocked(ctx)
	return svc, true
}

// RemoveService deletes a service by name. Removing the currently connected
// service disconnects it first.
func (p *Pool) RemoveService(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, svc := range p.services {
		if svc.Name == name {
			if p.current == svc {
				p.disconnectLocked(ctx)
			}
			p.services = append(p.services[:i], p.services[i+1:]...)
			p.logger.Info("removed egress service", logger.String("name", name))
			p.persistLocked(ctx)
			return nil
		}
	}
	return ErrServiceNotFound
}

// ServiceByName returns the service with the given name.
func (p *Pool) ServiceByName(name string) (*domain.EgressService, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	svc := p.serviceByNameLocked(name)
	return svc, svc != nil
}

func (p *Pool) serviceByNameLocked(name string) *domain.EgressService {
	for _, svc := range p.services {
		if svc.Name == name {
			return svc
		}
	}
	return nil
}

// List returns a snapshot of the pool's services.
func (p *Pool) List() []*domain.EgressService {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*domain.EgressService, len(p.services))
	copy(out, p.services)
	return out
}

// AddRegion registers a region under a service, idempotent by region id.
func (p *Pool) AddRegion(ctx context.Context, serviceName, id, name, code string) (*domain.EgressRegion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	svc := p.serviceByNameLocked(serviceName)
	if svc == nil {
		return nil, ErrServiceNotFound
	}
	if existing := svc.RegionByID(id); existing != nil {
		p.logger.Warn("egress region already exists",
			logger.String("service", serviceName),
			logger.String("region_id", id))
		return existing, nil
	}

	region := &domain.EgressRegion{ID: id, Name: name, Code: code, IsActive: true}
	svc.Regions = append(svc.Regions, region)
	p.logger.Info("added egress region",
		logger.String("service", serviceName),
		logger.String("region", name),
		logger.String("code", code))

	p.persistLocked(ctx)
	return region, nil
}

// RemoveRegion deletes a region from a service by id.
func (p *Pool) RemoveRegion(ctx context.Context, serviceName, regionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	svc := p.serviceByNameLocked(serviceName)
	if svc == nil {
		return ErrServiceNotFound
	}
	for i, region := range svc.Regions {
		if region.ID == regionID {
			svc.Regions = append(svc.Regions[:i], svc.Regions[i+1:]...)
			p.logger.Info("removed egress region",
				logger.String("service", serviceName),
				logger.String("region_id", regionID))
			p.persistLocked(ctx)
			return nil
		}
	}
	return ErrRegionNotFound
}

// Connect routes egress through the named service and region. Any previously
// connected service is disconnected first so that at most one connection
// exists. The service is never left in the connecting state: the call ends
// with it either connected or flagged with an error.
func (p *Pool) Connect(ctx context.Context, serviceName, regionCode string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.Status == domain.EgressConnected {
		p.disconnectLocked(ctx)
	}

	svc := p.serviceByNameLocked(serviceName)
	if svc == nil {
		return fmt.Errorf("%w: %s", ErrServiceNotFound, serviceName)
	}
	region := svc.RegionByCode(regionCode)
	if region == nil {
		return fmt.Errorf("%w: %s (service %s)", ErrRegionNotFound, regionCode, serviceName)
	}
	if !region.IsActive {
		return fmt.Errorf("%w: %s", ErrRegionInactive, region.Name)
	}
	connector, ok := p.connectors.Lookup(svc.Provider)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoConnector, svc.Provider)
	}

	svc.SetConnecting(region)

	cctx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	err := connector.Connect(cctx, svc, region)
	cancel()
	if err != nil {
		svc.SetError(err.Error())
		p.persistLocked(ctx)
		p.logger.Error("egress connect failed",
			logger.String("service", serviceName),
			logger.String("region", region.Name),
			logger.Error(err))
		return fmt.Errorf("connect %s (%s): %w", serviceName, region.Name, err)
	}

	svc.SetConnected()
	p.current = svc
	p.persistLocked(ctx)
	p.logger.Info("egress connected",
		logger.String("service", serviceName),
		logger.String("region", region.Name))
	return nil
}

// Disconnect tears down the active connection. With nothing connected it is a
// no-op success. Provider teardown failures are logged, not propagated: the
// pool still records the service as disconnected.
func (p *Pool) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnectLocked(ctx)
	return nil
}

func (p *Pool) disconnectLocked(ctx context.Context) {
	if p.current == nil {
		p.logger.Debug("no active egress connection to disconnect")
		return
	}

	svc := p.current
	if connector, ok := p.connectors.Lookup(svc.Provider); ok {
		dctx, cancel := context.WithTimeout(ctx, p.connectTimeout)
		if err := connector.Disconnect(dctx, svc); err != nil {
			p.logger.Warn("egress disconnect reported failure",
				logger.String("service", svc.Name),
				logger.Error(err))
		}
		cancel()
	}

	svc.SetDisconnected()
	p.current = nil
	p.persistLocked(ctx)
	p.logger.Info("egress disconnected", logger.String("service", svc.Name))
}

// Current returns the connected service and region, or nils.
func (p *Pool) Current() (*domain.EgressService, *domain.EgressRegion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	return p.current, p.current.CurrentRegion
}

// CurrentRegionCode returns the connected region's code, or "".
func (p *Pool) CurrentRegionCode() string {
	_, region := p.Current()
	if region == nil {
		return ""
	}
	return region.Code
}

// CheckConnection probes external reachability. Probe failures degrade to
// false rather than erroring.
func (p *Pool) CheckConnection(ctx context.Context) bool {
	return p.CurrentIP(ctx) != ""
}

// CurrentIP returns the external IP as seen by the probe endpoint, or "".
func (p *Pool) CurrentIP(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ipProbeURL, http.NoBody)
	if err != nil {
		return ""
	}
	resp, err := p.probeClient.Do(req)
	if err != nil {
		p.logger.Debug("ip probe failed", logger.Error(err))
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	return payload.IP
}

// Snapshot returns the services for persistence.
func (p *Pool) Snapshot() []*domain.EgressService {
	return p.List()
}

func (p *Pool) persistLocked(ctx context.Context) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveEgressServices(ctx, p.services); err != nil {
		p.logger.Warn("failed to persist egress services", logger.Error(err))
	}
}
