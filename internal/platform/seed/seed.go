// Package seed loads starter note templates from a YAML file at boot so a
// fresh deployment has usable SOAP and intake templates without an admin
// authoring them first.
package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/clinicdesk/clinicdesk/internal/domain/template"
)

type seedFile struct {
	Templates []seedTemplate `yaml:"templates"`
}

type seedTemplate struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Category    template.Category  `yaml:"category"`
	Structure   template.Structure `yaml:"structure"`
}

// Loader creates the templates described by a seed file through the regular
// template service, so seeded templates pass the same structural validation
// as admin-authored ones.
type Loader struct {
	svc *template.Service
	log zerolog.Logger
}

func NewLoader(svc *template.Service, logger zerolog.Logger) *Loader {
	return &Loader{svc: svc, log: logger}
}

// Load reads the seed file and creates each template that does not already
// exist by name. Re-running against a seeded database is a no-op, so the
// loader is safe to call on every boot.
func (l *Loader) Load(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	existing, err := l.existingNames(ctx)
	if err != nil {
		return err
	}

	created := 0
	for _, s := range file.Templates {
		if existing[s.Name] {
			continue
		}
		t := &template.TemplateDefinition{
			Name:      s.Name,
			Category:  s.Category,
			Structure: s.Structure,
		}
		if s.Description != "" {
			desc := s.Description
			t.Description = &desc
		}
		if err := l.svc.CreateTemplate(ctx, t); err != nil {
			return fmt.Errorf("seed template %q: %w", s.Name, err)
		}
		created++
		l.log.Info().Str("name", s.Name).Str("category", string(s.Category)).
			Msg("seeded template")
	}

	l.log.Info().Int("created", created).Int("skipped", len(file.Templates)-created).
		Msg("template seeding complete")
	return nil
}

func (l *Loader) existingNames(ctx context.Context) (map[string]bool, error) {
	names := make(map[string]bool)
	offset := 0
	const page = 100
	for {
		items, total, err := l.svc.ListTemplates(ctx, template.ListFilter{}, page, offset)
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		for _, t := range items {
			names[t.Name] = true
		}
		offset += len(items)
		if offset >= total || len(items) == 0 {
			return names, nil
		}
	}
}
