package entity

import (
	"context"
	"fmt"
	"strings"

	"media-contacts/backend/internal/graph"
)

// Registry holds one repository per entity kind over a shared executor
type Registry struct {
	repos map[Kind]*Repository
}

// NewRegistry builds a repository for every schema in Schemas
func NewRegistry(exec graph.Executor, opts ...Option) *Registry {
	repos := make(map[Kind]*Repository, len(Schemas))
	for kind, schema := range Schemas {
		repos[kind] = NewRepository(exec, schema, opts...)
	}
	return &Registry{repos: repos}
}

// Get returns the repository for kind
func (r *Registry) Get(kind Kind) (*Repository, bool) {
	repo, ok := r.repos[kind]
	return repo, ok
}

// ConstraintName is the name of the uid constraint for kind
func ConstraintName(kind Kind) string {
	return strings.ToLower(string(kind)) + "_uid"
}

// ConstraintStatement returns the uid uniqueness constraint for kind
func ConstraintStatement(kind Kind) string {
	return fmt.Sprintf(
		"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.uid IS UNIQUE",
		ConstraintName(kind), kind,
	)
}

// EnsureConstraints creates a uniqueness constraint on uid for every kind.
// Existing constraints are left alone.
func EnsureConstraints(ctx context.Context, exec graph.Executor) error {
	for _, kind := range Kinds() {
		if _, err := exec.Execute(ctx, ConstraintStatement(kind), nil); err != nil {
			return fmt.Errorf("failed to create %s uid constraint: %w", kind, err)
		}
	}
	return nil
}
