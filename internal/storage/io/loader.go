package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/peebo/peebo/internal/model"
)

// ApplicantYAMLRepository loads the applicant profile from YAML files.
type ApplicantYAMLRepository struct {
	fs fs.FS
}

// NewApplicantYAMLRepository creates a new YAML applicant repository.
func NewApplicantYAMLRepository(filesystem fs.FS) *ApplicantYAMLRepository {
	return &ApplicantYAMLRepository{fs: filesystem}
}

// GetApplicant loads an applicant profile from a YAML file and returns a validated domain model.
func (r *ApplicantYAMLRepository) GetApplicant(ctx context.Context, path string) (model.Applicant, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Applicant{}, fmt.Errorf("reading applicant file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Applicant{}, ctx.Err()
	}

	var cfg ApplicantConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.Applicant{}, fmt.Errorf("parsing YAML: %w", err)
	}

	a := cfg.toModel()
	if err := a.Validate(); err != nil {
		return model.Applicant{}, fmt.Errorf("invalid applicant: %w", err)
	}

	return a, nil
}

// ApplicantConfig represents the YAML structure of the applicant profile.
type ApplicantConfig struct {
	Personal   PersonalConfig   `yaml:"personal"`
	Resume     ResumeConfig     `yaml:"resume"`
	Background BackgroundConfig `yaml:"background"`
	Work       WorkConfig       `yaml:"work_authorization"`
}

// PersonalConfig represents the YAML structure of the contact details.
type PersonalConfig struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Location string `yaml:"location"`
	LinkedIn string `yaml:"linkedin"`
}

// ResumeConfig represents the YAML structure of the resume section.
type ResumeConfig struct {
	Text string `yaml:"text"`
	Path string `yaml:"path"`
}

// BackgroundConfig represents the YAML structure of the background section.
type BackgroundConfig struct {
	Summary         string   `yaml:"summary"`
	KeyAchievements []string `yaml:"key_achievements"`
}

// WorkConfig represents the YAML structure of the work authorization section.
type WorkConfig struct {
	AuthorizedUS        bool `yaml:"authorized_us"`
	RequiresSponsorship bool `yaml:"requires_sponsorship"`
}

func (c ApplicantConfig) toModel() model.Applicant {
	return model.Applicant{
		Name:                c.Personal.Name,
		Email:               c.Personal.Email,
		Phone:               c.Personal.Phone,
		Location:            c.Personal.Location,
		LinkedIn:            c.Personal.LinkedIn,
		ResumeText:          c.Resume.Text,
		ResumePath:          c.Resume.Path,
		BackgroundSummary:   c.Background.Summary,
		KeyAchievements:     c.Background.KeyAchievements,
		AuthorizedToWorkUS:  c.Work.AuthorizedUS,
		RequiresSponsorship: c.Work.RequiresSponsorship,
	}
}
