package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/clinic"
)

// ClinicPrompt builds the optional system instruction describing the clinic.
type ClinicPrompt struct {
	Profile  clinic.Profile
	Services []clinic.Service
	Rules    []string
}

// NewClinicPrompt returns a prompt builder with the default front-desk rules.
func NewClinicPrompt(profile clinic.Profile, services []clinic.Service) *ClinicPrompt {
	return &ClinicPrompt{
		Profile:  profile,
		Services: services,
		Rules: []string{
			"Answer questions about the clinic, its services, opening hours and booking.",
			"Do not diagnose conditions or prescribe medication; recommend seeing a professional instead.",
			"Point visitors to the Appointments page when they want to book a visit.",
			"Keep answers short and friendly.",
		},
	}
}

// Build renders the system instruction.
func (p *ClinicPrompt) Build() string {
	services := make([]string, 0, len(p.Services))
	for _, svc := range p.Services {
		services = append(services, fmt.Sprintf("%s: %s", svc.Name, svc.Description))
	}

	return fmt.Sprintf(`You are the virtual front-desk assistant of %s.

Clinic information:
- Mission: %s
- Address: %s
- Phone: %s
- Email: %s

Services:
- %s

Rules:
- %s`,
		p.Profile.Name,
		p.Profile.Mission,
		p.Profile.Address,
		p.Profile.Phone,
		p.Profile.Email,
		strings.Join(services, "\n- "),
		strings.Join(p.Rules, "\n- "),
	)
}
