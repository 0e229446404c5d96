package egress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
)

// fakeConnector records connect/disconnect calls and can be told to fail.
type fakeConnector struct {
	connects    int
	disconnects int
	failConnect error
}

func (f *fakeConnector) Connect(_ context.Context, _ *domain.EgressService, _ *domain.EgressRegion) error {
	f.connects++
	return f.failConnect
}

func (f *fakeConnector) Disconnect(_ context.Context, _ *domain.EgressService) error {
	f.disconnects++
	return nil
}

func testPool(t *testing.T) (*Pool, *fakeConnector) {
	t.Helper()
	fake := &fakeConnector{}
	registry := NewConnectorRegistry()
	registry.Register(domain.ProviderNordVPN, fake)
	registry.Register(domain.ProviderCustom, fake)
	pool := NewPool(registry, nil, logger.New("error", false), 5*time.Second, time.Second)
	return pool, fake
}

func seedService(t *testing.T, pool *Pool, name string, provider domain.EgressProvider) *domain.EgressService {
	t.Helper()
	ctx := context.Background()
	svc, created := pool.AddService(ctx, provider, name, nil)
	if !created {
		t.Fatalf("AddService(%q) did not create", name)
	}
	if _, err := pool.AddRegion(ctx, name, "us", "United States", "US"); err != nil {
		t.Fatalf("AddRegion() error = %v", err)
	}
	if _, err := pool.AddRegion(ctx, name, "de", "Germany", "DE"); err != nil {
		t.Fatalf("AddRegion() error = %v", err)
	}
	return svc
}

func TestConnectHappyPath(t *testing.T) {
	pool, fake := testPool(t)
	svc := seedService(t, pool, "NordVPN", domain.ProviderNordVPN)
	ctx := context.Background()

	if err := pool.Connect(ctx, "NordVPN", "us"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if fake.connects != 1 {
		t.Errorf("connector called %d times, want 1", fake.connects)
	}
	if svc.Status != domain.EgressConnected {
		t.Errorf("service status = %v, want connected", svc.Status)
	}

	cur, region := pool.Current()
	if cur != svc || region == nil || region.Code != "US" {
		t.Errorf("Current() = (%v, %v), want (NordVPN, US)", cur, region)
	}
	if got := pool.CurrentRegionCode(); got != "US" {
		t.Errorf("CurrentRegionCode() = %q, want US", got)
	}
}

func TestConnectCaseInsensitiveRegion(t *testing.T) {
	pool, _ := testPool(t)
	seedService(t, pool, "NordVPN", domain.ProviderNordVPN)

	if err := pool.Connect(context.Background(), "NordVPN", "Us"); err != nil {
		t.Errorf("Connect() with mixed-case region = %v, want success", err)
	}
}

func TestConnectDisconnectsPrevious(t *testing.T) {
	pool, fake := testPool(t)
	first := seedService(t, pool, "NordVPN", domain.ProviderNordVPN)
	second := seedService(t, pool, "Custom VPN", domain.ProviderCustom)
	ctx := context.Background()

	if err := pool.Connect(ctx, "NordVPN", "us"); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	if err := pool.Connect(ctx, "Custom VPN", "de"); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}

	if fake.disconnects != 1 {
		t.Errorf("disconnects = %d, want exactly 1", fake.disconnects)
	}
	if first.Status != domain.EgressDisconnected {
		t.Errorf("first service status = %v, want disconnected", first.Status)
	}
	if second.Status != domain.EgressConnected {
		t.Errorf("second service status = %v, want connected", second.Status)
	}

	// At most one service connected across the pool
	connected := 0
	for _, svc := range pool.List() {
		if svc.Status == domain.EgressConnected {
			connected++
		}
	}
	if connected != 1 {
		t.Errorf("%d services connected, want 1", connected)
	}
}

func TestConnectFailureSetsError(t *testing.T) {
	pool, fake := testPool(t)
	svc := seedService(t, pool, "NordVPN", domain.ProviderNordVPN)
	fake.failConnect = errors.New("daemon not running")

	err := pool.Connect(context.Background(), "NordVPN", "us")
	if err == nil {
		t.Fatal("Connect() should propagate connector failure")
	}
	if svc.Status != domain.EgressError {
		t.Errorf("service status = %v, want error", svc.Status)
	}
	if svc.Status == domain.EgressConnecting {
		t.Error("service left in connecting state")
	}
	if cur, _ := pool.Current(); cur != nil {
		t.Errorf("Current() after failed connect = %v, want nil", cur)
	}
}

func TestConnectValidation(t *testing.T) {
	pool, _ := testPool(t)
	seedService(t, pool, "NordVPN", domain.ProviderNordVPN)
	ctx := context.Background()

	if err := pool.Connect(ctx, "missing", "us"); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("Connect() unknown service = %v, want ErrServiceNotFound", err)
	}
	if err := pool.Connect(ctx, "NordVPN", "zz"); !errors.Is(err, ErrRegionNotFound) {
		t.Errorf("Connect() unknown region = %v, want ErrRegionNotFound", err)
	}

	svc, _ := pool.ServiceByName("NordVPN")
	svc.RegionByCode("us").IsActive = false
	if err := pool.Connect(ctx, "NordVPN", "us"); !errors.Is(err, ErrRegionInactive) {
		t.Errorf("Connect() inactive region = %v, want ErrRegionInactive", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	pool, fake := testPool(t)
	seedService(t, pool, "NordVPN", domain.ProviderNordVPN)
	ctx := context.Background()

	if err := pool.Disconnect(ctx); err != nil {
		t.Errorf("Disconnect() with nothing connected = %v, want nil", err)
	}
	if fake.disconnects != 0 {
		t.Errorf("disconnects = %d, want 0", fake.disconnects)
	}

	if err := pool.Connect(ctx, "NordVPN", "us"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := pool.Disconnect(ctx); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if err := pool.Disconnect(ctx); err != nil {
		t.Errorf("second Disconnect() = %v, want nil", err)
	}
	if fake.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", fake.disconnects)
	}
}

func TestRemoveConnectedServiceDisconnectsFirst(t *testing.T) {
	pool, fake := testPool(t)
	seedService(t, pool, "NordVPN", domain.ProviderNordVPN)
	ctx := context.Background()

	if err := pool.Connect(ctx, "NordVPN", "us"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := pool.RemoveService(ctx, "NordVPN"); err != nil {
		t.Fatalf("RemoveService() error = %v", err)
	}
	if fake.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", fake.disconnects)
	}
	if cur, _ := pool.Current(); cur != nil {
		t.Errorf("Current() after removal = %v, want nil", cur)
	}
}

func TestReplaceResetsConnectionState(t *testing.T) {
	pool, _ := testPool(t)

	pool.Replace([]*domain.EgressService{
		{
			Provider: domain.ProviderNordVPN,
			Name:     "NordVPN",
			Status:   domain.EgressConnected,
			Regions: []*domain.EgressRegion{
				{ID: "us", Name: "United States", Code: "US", IsActive: true},
			},
		},
	})

	svc, ok := pool.ServiceByName("NordVPN")
	if !ok {
		t.Fatal("service missing after Replace()")
	}
	if svc.Status != domain.EgressDisconnected {
		t.Errorf("status after load = %v, want disconnected", svc.Status)
	}
	if cur, _ := pool.Current(); cur != nil {
		t.Errorf("Current() after load = %v, want nil", cur)
	}
}

func TestAddRegionIdempotent(t *testing.T) {
	pool, _ := testPool(t)
	seedService(t, pool, "NordVPN", domain.ProviderNordVPN)
	ctx := context.Background()

	again, err := pool.AddRegion(ctx, "NordVPN", "us", "USA", "US")
	if err != nil {
		t.Fatalf("AddRegion() error = %v", err)
	}
	if again.Name != "United States" {
		t.Errorf("re-adding a region should return the existing one, got %q", again.Name)
	}

	svc, _ := pool.ServiceByName("NordVPN")
	if len(svc.Regions) != 2 {
		t.Errorf("regions = %d, want 2", len(svc.Regions))
	}
}
