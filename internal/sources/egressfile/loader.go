package egressfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of the egress seed YAML
type Loader struct {
	filePath string
}

// NewLoader creates a new egress seed loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the seed file into egress services
func (l *Loader) Load() ([]*domain.EgressService, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read egress seed file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse egress seed yaml: %w", err)
	}

	return mapServices(file)
}

func mapServices(file File) ([]*domain.EgressService, error) {
	services := make([]*domain.EgressService, 0, len(file.Services))
	for i, entry := range file.Services {
		if entry.Name == "" {
			return nil, fmt.Errorf("service %d: name is required", i)
		}

		provider, err := mapProvider(entry.Provider)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", entry.Name, err)
		}

		svc := &domain.EgressService{
			Provider: provider,
			Name:     entry.Name,
			AuthData: entry.Auth,
			Regions:  make([]*domain.EgressRegion, 0, len(entry.Regions)),
			Status:   domain.EgressDisconnected,
		}
		for _, r := range entry.Regions {
			active := true
			if r.Active != nil {
				active = *r.Active
			}
			id := r.ID
			if id == "" {
				id = strings.ToLower(r.Code)
			}
			svc.Regions = append(svc.Regions, &domain.EgressRegion{
				ID:       id,
				Name:     r.Name,
				Code:     r.Code,
				IsActive: active,
			})
		}
		services = append(services, svc)
	}
	return services, nil
}

func mapProvider(name string) (domain.EgressProvider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nordvpn":
		return domain.ProviderNordVPN, nil
	case "surfshark":
		return domain.ProviderSurfshark, nil
	case "custom", "":
		return domain.ProviderCustom, nil
	default:
		return "", fmt.Errorf("unknown provider %q", name)
	}
}

// Default returns the built-in seed used when no seed file is configured.
// Region codes follow the checkout storefronts worth probing for key region
// locks.
func Default() []*domain.EgressService {
	regions := []struct {
		id, name, code string
	}{
		{"ar", "Argentina", "AR"},
		{"tr", "Turkey", "TR"},
		{"us", "United States", "US"},
		{"gb", "United Kingdom", "GB"},
		{"de", "Germany", "DE"},
		{"jp", "Japan", "JP"},
		{"sg", "Singapore", "SG"},
		{"br", "Brazil", "BR"},
		{"au", "Australia", "AU"},
	}

	build := func(provider domain.EgressProvider, name string) *domain.EgressService {
		svc := &domain.EgressService{
			Provider: provider,
			Name:     name,
			Regions:  make([]*domain.EgressRegion, 0, len(regions)),
			Status:   domain.EgressDisconnected,
		}
		for _, r := range regions {
			svc.Regions = append(svc.Regions, &domain.EgressRegion{
				ID:       r.id,
				Name:     r.name,
				Code:     r.code,
				IsActive: true,
			})
		}
		return svc
	}

	return []*domain.EgressService{
		build(domain.ProviderNordVPN, "NordVPN"),
		build(domain.ProviderSurfshark, "Surfshark"),
		build(domain.ProviderCustom, "Custom VPN"),
	}
}
