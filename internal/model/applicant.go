package model

import "fmt"

// Applicant is the profile used to fill job applications.
type Applicant struct {
	Name                string
	Email               string
	Phone               string
	Location            string
	LinkedIn            string
	ResumeText          string
	ResumePath          string
	BackgroundSummary   string
	KeyAchievements     []string
	AuthorizedToWorkUS  bool
	RequiresSponsorship bool
}

// Validate validates the applicant profile.
func (a Applicant) Validate() error {
	required := []struct{ name, value string }{
		{"name", a.Name},
		{"email", a.Email},
		{"phone", a.Phone},
		{"location", a.Location},
		{"linkedin", a.LinkedIn},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required: %w", r.name, ErrNotValid)
		}
	}
	return nil
}
