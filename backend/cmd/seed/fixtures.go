package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"media-contacts/backend/internal/entity"
	"media-contacts/backend/internal/relationship"
)

// Fixtures is the seed file layout. Entities are named by a local key that
// the relationship sections refer to.
type Fixtures struct {
	Companies   []EntityFixture `yaml:"companies"`
	Journalists []EntityFixture `yaml:"journalists"`
	Media       []EntityFixture `yaml:"media"`
	Medialists  []EntityFixture `yaml:"medialists"`

	Employment []EmploymentFixture `yaml:"employment"`
	Notes      []NoteFixture       `yaml:"notes"`
	Inclusions []InclusionFixture  `yaml:"inclusions"`
}

type EntityFixture struct {
	Key        string         `yaml:"key"`
	Tags       []string       `yaml:"tags"`
	Properties map[string]any `yaml:"properties"`
}

type EmploymentFixture struct {
	Person     string         `yaml:"person"`
	Company    string         `yaml:"company"`
	Properties map[string]any `yaml:"properties"`
}

type NoteFixture struct {
	Author  string `yaml:"author"`
	Subject string `yaml:"subject"`
	Content string `yaml:"content"`
}

type InclusionFixture struct {
	Person     string         `yaml:"person"`
	Medialist  string         `yaml:"medialist"`
	Properties map[string]any `yaml:"properties"`
}

// Summary counts what a seed run created
type Summary struct {
	Entities      int
	Relationships int
}

// LoadFixtures decodes a seed file and checks that keys are unique
func LoadFixtures(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}

	seen := make(map[string]bool)
	for _, group := range f.entityGroups() {
		for _, e := range group.fixtures {
			if e.Key == "" {
				return nil, fmt.Errorf("%s fixture without key", group.kind)
			}
			if seen[e.Key] {
				return nil, fmt.Errorf("duplicate fixture key %q", e.Key)
			}
			seen[e.Key] = true
		}
	}
	return &f, nil
}

type entityGroup struct {
	kind     entity.Kind
	fixtures []EntityFixture
}

func (f *Fixtures) entityGroups() []entityGroup {
	return []entityGroup{
		{entity.KindCompany, f.Companies},
		{entity.KindJournalist, f.Journalists},
		{entity.KindMedia, f.Media},
		{entity.KindMedialist, f.Medialists},
	}
}

// Seeder writes fixtures through the repositories and the relationship manager
type Seeder struct {
	registry  *entity.Registry
	relations *relationship.Manager
	workers   int
	logger    *zap.Logger

	mu   sync.Mutex
	uids map[string]string
}

func NewSeeder(registry *entity.Registry, relations *relationship.Manager, workers int, log *zap.Logger) *Seeder {
	if workers < 1 {
		workers = 1
	}
	return &Seeder{
		registry:  registry,
		relations: relations,
		workers:   workers,
		logger:    log,
		uids:      make(map[string]string),
	}
}

// Seed creates every entity, then every relationship. Each phase runs on a
// bounded worker group and stops at the first failure.
func (s *Seeder) Seed(ctx context.Context, f *Fixtures) (Summary, error) {
	var summary Summary

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, group := range f.entityGroups() {
		repo, ok := s.registry.Get(group.kind)
		if !ok {
			return summary, fmt.Errorf("no repository for %s", group.kind)
		}
		for _, fx := range group.fixtures {
			fx := fx
			g.Go(func() error {
				e, err := repo.Create(gctx, fx.Properties, fx.Tags)
				if err != nil {
					return fmt.Errorf("fixture %q: %w", fx.Key, err)
				}
				s.remember(fx.Key, e.UID)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	summary.Entities = len(s.uids)
	s.logger.Info("Entities seeded", zap.Int("count", summary.Entities))

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var created int
	var countMu sync.Mutex
	link := func(fn func(context.Context) error) func() error {
		return func() error {
			if err := fn(gctx); err != nil {
				return err
			}
			countMu.Lock()
			created++
			countMu.Unlock()
			return nil
		}
	}

	for _, fx := range f.Employment {
		fx := fx
		g.Go(link(func(ctx context.Context) error {
			person, company, err := s.resolve(fx.Person, fx.Company)
			if err != nil {
				return err
			}
			_, err = s.relations.CreateEmployment(ctx, person, company, fx.Properties)
			return wrapFixture("employment", fx.Person, fx.Company, err)
		}))
	}
	for _, fx := range f.Notes {
		fx := fx
		g.Go(link(func(ctx context.Context) error {
			author, subject, err := s.resolve(fx.Author, fx.Subject)
			if err != nil {
				return err
			}
			_, err = s.relations.CreateNote(ctx, author, subject, fx.Content)
			return wrapFixture("note", fx.Author, fx.Subject, err)
		}))
	}
	for _, fx := range f.Inclusions {
		fx := fx
		g.Go(link(func(ctx context.Context) error {
			person, list, err := s.resolve(fx.Person, fx.Medialist)
			if err != nil {
				return err
			}
			_, err = s.relations.CreateInclusion(ctx, person, list, fx.Properties)
			return wrapFixture("inclusion", fx.Person, fx.Medialist, err)
		}))
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	summary.Relationships = created
	s.logger.Info("Relationships seeded", zap.Int("count", created))
	return summary, nil
}

func (s *Seeder) remember(key, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uids[key] = uid
}

// resolve maps two fixture keys to stored uids
func (s *Seeder) resolve(from, to string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.uids[from]
	if !ok {
		return "", "", fmt.Errorf("unknown fixture key %q", from)
	}
	b, ok := s.uids[to]
	if !ok {
		return "", "", fmt.Errorf("unknown fixture key %q", to)
	}
	return a, b, nil
}

func wrapFixture(what, from, to string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s -> %s: %w", what, from, to, err)
}
