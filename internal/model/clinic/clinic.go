package clinic

// Service is one entry of the clinic's service catalog.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Profile holds the contact and mission copy shared by the pages and the assistant prompt.
type Profile struct {
	Name        string `json:"name"`
	Tagline     string `json:"tagline"`
	Established int    `json:"established"`
	Mission     string `json:"mission"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

// DefaultProfile is the copy the site ships with.
func DefaultProfile() Profile {
	return Profile{
		Name:        "Healthcare Company",
		Tagline:     "Providing compassionate and comprehensive healthcare services to your family.",
		Established: 2024,
		Mission:     "To provide accessible, compassionate, and comprehensive healthcare services to improve the quality of life for every individual we serve.",
		Address:     "123 Main Street, City, State, ZIP",
		Phone:       "(555) 123-4567",
		Email:       "info@healthcare.com",
	}
}

// Seed provides the services listed on the Services page.
func Seed() []Service {
	return []Service{
		{
			ID:          "general-checkups",
			Name:        "General Checkups",
			Description: "Routine health assessments for individuals of all ages.",
		},
		{
			ID:          "pediatrics",
			Name:        "Pediatrics",
			Description: "Specialized care for children and adolescents.",
		},
		{
			ID:          "cardiology",
			Name:        "Cardiology",
			Description: "Heart health consultations and diagnostics.",
		},
		{
			ID:          "diagnostics",
			Name:        "Diagnostics",
			Description: "Laboratory tests and medical imaging services.",
		},
		{
			ID:          "physical-therapy",
			Name:        "Physical Therapy",
			Description: "Rehabilitation services to restore mobility and strength.",
		},
	}
}
