package egressfile

// File represents the top-level structure of the egress seed YAML
type File struct {
	Services []ServiceEntry `yaml:"services"`
}

// ServiceEntry describes one VPN service and its selectable regions
type ServiceEntry struct {
	Provider string            `yaml:"provider"`
	Name     string            `yaml:"name"`
	Auth     map[string]string `yaml:"auth,omitempty"`
	Regions  []RegionEntry     `yaml:"regions"`
}

// RegionEntry describes one exit region of a service
type RegionEntry struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Code   string `yaml:"code"`
	Active *bool  `yaml:"active,omitempty"`
}
