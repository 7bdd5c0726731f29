package graph

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-contacts/backend/internal/metrics"
	apperrors "media-contacts/backend/pkg/errors"
)

// The driver interfaces are embedded so only the methods the gateway calls
// need an implementation.

type fakeDriver struct {
	neo4j.DriverWithContext
	session  *fakeSession
	sessions []neo4j.SessionConfig
}

func (d *fakeDriver) NewSession(_ context.Context, cfg neo4j.SessionConfig) neo4j.SessionWithContext {
	d.sessions = append(d.sessions, cfg)
	return d.session
}

type fakeSession struct {
	neo4j.SessionWithContext
	result  *fakeResult
	runErr  error
	closed  int
	lastRun string
	params  map[string]any
}

func (s *fakeSession) Run(_ context.Context, cypher string, params map[string]any, _ ...func(*neo4j.TransactionConfig)) (neo4j.ResultWithContext, error) {
	s.lastRun = cypher
	s.params = params
	if s.runErr != nil {
		return nil, s.runErr
	}
	return s.result, nil
}

func (s *fakeSession) Close(context.Context) error {
	s.closed++
	return nil
}

type fakeResult struct {
	neo4j.ResultWithContext
	records    []*neo4j.Record
	collectErr error
}

func (r *fakeResult) Collect(context.Context) ([]*neo4j.Record, error) {
	return r.records, r.collectErr
}

func TestGateway_Execute_MaterializesRecords(t *testing.T) {
	session := &fakeSession{result: &fakeResult{records: []*neo4j.Record{
		{Keys: []string{"uid", "name"}, Values: []any{"u-1", "Canon"}},
		{Keys: []string{"uid", "name"}, Values: []any{"u-2", "Nikon"}},
	}}}
	driver := &fakeDriver{session: session}
	reg := prometheus.NewRegistry()
	m := metrics.NewGraphMetrics(reg)
	g := NewGateway(driver, WithDatabase("contacts"), WithMetrics(m))

	records, err := g.Execute(context.Background(), "MATCH (n) RETURN n.uid AS uid, n.name AS name", map[string]any{"x": 1})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "u-1", records[0].String("uid"))
	assert.Equal(t, "Nikon", records[1].String("name"))
	assert.Equal(t, 1, session.closed)
	assert.Equal(t, map[string]any{"x": 1}, session.params)
	require.Len(t, driver.sessions, 1)
	assert.Equal(t, neo4j.AccessModeWrite, driver.sessions[0].AccessMode)
	assert.Equal(t, "contacts", driver.sessions[0].DatabaseName)
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "graph_queries_total"))
}

func TestGateway_ExecuteRead_UsesReadSession(t *testing.T) {
	session := &fakeSession{result: &fakeResult{}}
	driver := &fakeDriver{session: session}
	g := NewGateway(driver)

	records, err := g.ExecuteRead(context.Background(), "RETURN 1", nil)
	require.NoError(t, err)

	assert.Empty(t, records)
	assert.Equal(t, neo4j.AccessModeRead, driver.sessions[0].AccessMode)
}

func TestGateway_QueryFailure_ReleasesSession(t *testing.T) {
	engineErr := &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "Invalid input"}
	session := &fakeSession{runErr: engineErr}
	g := NewGateway(&fakeDriver{session: session})

	_, err := g.Execute(context.Background(), "MATCH (n RETURN n", nil)
	require.Error(t, err)

	var qe *apperrors.QueryError
	require.True(t, stderrors.As(err, &qe))
	assert.Contains(t, err.Error(), "Invalid input")
	assert.Equal(t, 1, session.closed)
}

func TestGateway_CollectFailure_IsQueryError(t *testing.T) {
	session := &fakeSession{result: &fakeResult{collectErr: stderrors.New("stream broken")}}
	g := NewGateway(&fakeDriver{session: session})

	_, err := g.ExecuteRead(context.Background(), "RETURN 1", nil)

	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeQuery))
	assert.Equal(t, 1, session.closed)
}

func TestGateway_ConnectivityFailure_IsConnectionError(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: stderrors.New("connection refused")}
	session := &fakeSession{runErr: dialErr}
	g := NewGateway(&fakeDriver{session: session})

	_, err := g.Execute(context.Background(), "RETURN 1", nil)

	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConnection))
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, 1, session.closed)
}

func TestRecord_Accessors(t *testing.T) {
	node := neo4j.Node{Labels: []string{"Company"}, Props: map[string]any{"uid": "u-1"}}
	rec := Record{
		"n":      node,
		"labels": []any{"Company", 42, "Tech"},
	}

	got, ok := rec.Node("n")
	require.True(t, ok)
	assert.Equal(t, "u-1", got.Props["uid"])
	assert.Equal(t, []string{"Company", "Tech"}, rec.Strings("labels"))
	assert.Equal(t, "", rec.String("missing"))

	_, ok = rec.Relationship("n")
	assert.False(t, ok)
}

// TestGateway_Live requires a running Neo4j instance.
// Set NEO4J_TEST_URI (and NEO4J_USER, NEO4J_PASSWORD) to enable it.
func TestGateway_Live(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}

	ctx := context.Background()
	g, err := Connect(ctx, uri, os.Getenv("NEO4J_USER"), os.Getenv("NEO4J_PASSWORD"))
	require.NoError(t, err)
	defer g.Close(ctx)

	records, err := g.ExecuteRead(ctx, "RETURN 1 AS one", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0]["one"])
}
