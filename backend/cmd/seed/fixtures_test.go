package main

import (
	"context"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"media-contacts/backend/internal/entity"
	"media-contacts/backend/internal/graph"
	"media-contacts/backend/internal/graph/graphtest"
	"media-contacts/backend/internal/relationship"
	apperrors "media-contacts/backend/pkg/errors"
)

// graphStub serves node queries from a store and answers edge queries
// from the stored node labels
type graphStub struct {
	store *graphtest.Store

	mu    sync.Mutex
	edges []neo4j.Relationship
}

func (g *graphStub) handle(call graphtest.Call) ([]graph.Record, error) {
	q := graphtest.Compact(call.Cypher)
	switch {
	case strings.HasPrefix(q, "OPTIONAL MATCH"):
		return []graph.Record{{
			"from_labels": g.labels(call.Params["from"]),
			"to_labels":   g.labels(call.Params["to"]),
		}}, nil
	case strings.Contains(q, "CREATE (a)-["):
		props := call.Params["props"].(map[string]any)
		rel := neo4j.Relationship{Type: edgeType(q), Props: props}
		g.mu.Lock()
		g.edges = append(g.edges, rel)
		g.mu.Unlock()
		return []graph.Record{{"r": rel, "from_uid": call.Params["from"], "to_uid": call.Params["to"]}}, nil
	}
	return g.store.Handle(call)
}

func (g *graphStub) labels(uid any) []any {
	for _, n := range g.store.Nodes() {
		if n.Props["uid"] == uid {
			out := make([]any, len(n.Labels))
			for i, l := range n.Labels {
				out[i] = l
			}
			return out
		}
	}
	return nil
}

func edgeType(q string) string {
	start := strings.Index(q, "[r:") + len("[r:")
	end := strings.Index(q[start:], " ")
	return q[start : start+end]
}

func newStubSeeder(workers int) (*Seeder, *graphStub) {
	stub := &graphStub{store: graphtest.NewStore()}
	exec := graphtest.New().HandleWith(stub.handle)
	return NewSeeder(entity.NewRegistry(exec), relationship.NewManager(exec), workers, zap.NewNop()), stub
}

func TestLoadFixtures_Sample(t *testing.T) {
	f, err := os.Open("../../fixtures/sample.yaml")
	require.NoError(t, err)
	defer f.Close()

	fixtures, err := LoadFixtures(f)
	require.NoError(t, err)

	assert.Len(t, fixtures.Companies, 2)
	assert.Len(t, fixtures.Journalists, 2)
	assert.Len(t, fixtures.Employment, 2)
	assert.Equal(t, "Canon", fixtures.Companies[0].Properties["name"])
}

func TestLoadFixtures_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"duplicate key", "companies:\n  - key: a\n    properties: {name: A}\njournalists:\n  - key: a\n"},
		{"missing key", "media:\n  - properties: {first_name: A}\n"},
		{"unknown section", "agencies:\n  - key: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFixtures(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSeed_Sample(t *testing.T) {
	f, err := os.Open("../../fixtures/sample.yaml")
	require.NoError(t, err)
	defer f.Close()
	fixtures, err := LoadFixtures(f)
	require.NoError(t, err)

	seeder, stub := newStubSeeder(4)
	summary, err := seeder.Seed(context.Background(), fixtures)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Entities)
	assert.Equal(t, 5, summary.Relationships)
	assert.Len(t, stub.store.Nodes(), 6)

	var types []string
	for _, e := range stub.edges {
		types = append(types, e.Type)
	}
	slices.Sort(types)
	assert.Equal(t, []string{"EMPLOYMENT", "EMPLOYMENT", "INCLUDED", "INCLUDED", "NOTE"}, types)

	for _, n := range stub.store.Nodes() {
		if n.Props["name"] == "Canon" {
			assert.ElementsMatch(t, []string{"Company", "Electronics", "Imaging"}, n.Labels)
			assert.IsType(t, neo4j.Date{}, n.Props["founding_date"])
		}
	}
}

func TestSeed_StopsOnInvalidEntity(t *testing.T) {
	fixtures, err := LoadFixtures(strings.NewReader(`
companies:
  - key: bad
    tags: [Not A Tag]
    properties: {name: Bad}
`))
	require.NoError(t, err)

	seeder, stub := newStubSeeder(2)
	_, err = seeder.Seed(context.Background(), fixtures)

	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeTag))
	assert.Contains(t, err.Error(), `"bad"`)
	assert.Empty(t, stub.store.Nodes())
}

func TestSeed_WrongEndpointKind(t *testing.T) {
	fixtures, err := LoadFixtures(strings.NewReader(`
journalists:
  - key: a
    properties: {first_name: A, last_name: One}
  - key: b
    properties: {first_name: B, last_name: Two}
employment:
  - person: a
    company: b
    properties: {role: Editor}
`))
	require.NoError(t, err)

	seeder, stub := newStubSeeder(1)
	_, err = seeder.Seed(context.Background(), fixtures)

	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeTypeMismatch))
	assert.Empty(t, stub.edges)
}

func TestSeed_UnknownKey(t *testing.T) {
	fixtures, err := LoadFixtures(strings.NewReader(`
inclusions:
  - person: ghost
    medialist: list
`))
	require.NoError(t, err)

	seeder, _ := newStubSeeder(1)
	_, err = seeder.Seed(context.Background(), fixtures)

	assert.ErrorContains(t, err, "unknown fixture key")
}
