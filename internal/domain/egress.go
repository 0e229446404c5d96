package domain

import "strings"

// EgressProvider identifies which connector implementation drives a service.
type EgressProvider string

const (
	ProviderNordVPN   EgressProvider = "NordVPN"
	ProviderSurfshark EgressProvider = "Surfshark"
	ProviderCustom    EgressProvider = "Custom"
)

// EgressStatus is the connection state of one egress service.
type EgressStatus string

const (
	EgressDisconnected EgressStatus = "disconnected"
	EgressConnecting   EgressStatus = "connecting"
	EgressConnected    EgressStatus = "connected"
	EgressError        EgressStatus = "error"
)

// EgressRegion is a named network exit point within a service.
type EgressRegion struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	IsActive bool   `json:"is_active"`
}

// EgressService groups the regions of one provider account.
// Invariant: Status == connected implies CurrentRegion is one of Regions.
type EgressService struct {
	Provider      EgressProvider    `json:"provider"`
	Name          string            `json:"name"`
	AuthData      map[string]string `json:"auth_data,omitempty"`
	Regions       []*EgressRegion   `json:"regions"`
	CurrentRegion *EgressRegion     `json:"current_region,omitempty"`
	Status        EgressStatus      `json:"status"`
	ErrorMessage  string            `json:"error_message,omitempty"`
}

func (s *EgressService) RegionByID(id string) *EgressRegion {
	for _, r := range s.Regions {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// RegionByCode matches region codes case-insensitively.
func (s *EgressService) RegionByCode(code string) *EgressRegion {
	for _, r := range s.Regions {
		if strings.EqualFold(r.Code, code) {
			return r
		}
	}
	return nil
}

func (s *EgressService) SetConnecting(region *EgressRegion) {
	s.Status = EgressConnecting
	s.CurrentRegion = region
	s.ErrorMessage = ""
}

func (s *EgressService) SetConnected() {
	s.Status = EgressConnected
	s.ErrorMessage = ""
}

func (s *EgressService) SetDisconnected() {
	s.Status = EgressDisconnected
	s.CurrentRegion = nil
}

func (s *EgressService) SetError(message string) {
	s.Status = EgressError
	s.ErrorMessage = message
}
