package graph

import (
	"context"
	stderrors "errors"
	"net"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"media-contacts/backend/internal/metrics"
	apperrors "media-contacts/backend/pkg/errors"
	"media-contacts/backend/pkg/logger"
)

// Executor runs one query template with a parameter bag and returns every
// record, fully materialized. Repositories depend on this instead of the driver.
type Executor interface {
	Execute(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
}

// Gateway executes queries against Neo4j, one session per call
type Gateway struct {
	driver   neo4j.DriverWithContext
	database string
	metrics  *metrics.GraphMetrics
	logger   *zap.Logger
}

// Option configures a Gateway
type Option func(*Gateway)

// WithDatabase targets a named database instead of the server default
func WithDatabase(name string) Option {
	return func(g *Gateway) { g.database = name }
}

// WithMetrics records every round trip on m
func WithMetrics(m *metrics.GraphMetrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway wraps an existing driver. The gateway owns it from here on.
func NewGateway(driver neo4j.DriverWithContext, opts ...Option) *Gateway {
	g := &Gateway{
		driver: driver,
		logger: logger.Component("graph"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect creates a driver for uri and verifies the store is reachable
func Connect(ctx context.Context, uri, user, password string, opts ...Option) (*Gateway, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, apperrors.NewConnectionError(err)
	}

	g := NewGateway(driver, opts...)
	if err := g.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return g, nil
}

// VerifyConnectivity checks that the store accepts connections
func (g *Gateway) VerifyConnectivity(ctx context.Context) error {
	if err := g.driver.VerifyConnectivity(ctx); err != nil {
		return apperrors.NewConnectionError(err)
	}
	return nil
}

// Close closes the Neo4j driver connection
func (g *Gateway) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// Execute runs cypher in a write session
func (g *Gateway) Execute(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	return g.run(ctx, neo4j.AccessModeWrite, cypher, params)
}

// ExecuteRead runs cypher in a read session
func (g *Gateway) ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	return g.run(ctx, neo4j.AccessModeRead, cypher, params)
}

// run is a single auto-commit attempt. The driver's managed transactions
// retry transient failures, which callers own here, so they are not used.
func (g *Gateway) run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]Record, error) {
	start := time.Now()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: g.database,
	})
	defer func() {
		if err := session.Close(ctx); err != nil {
			g.logger.Warn("Failed to close session", zap.Error(err))
		}
	}()

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, g.fail(mode, start, cypher, err)
	}

	raw, err := result.Collect(ctx)
	if err != nil {
		return nil, g.fail(mode, start, cypher, err)
	}

	records := make([]Record, 0, len(raw))
	for _, rec := range raw {
		records = append(records, Record(rec.AsMap()))
	}

	g.metrics.ObserveQuery(modeLabel(mode), metrics.OutcomeOK, time.Since(start))
	return records, nil
}

func (g *Gateway) fail(mode neo4j.AccessMode, start time.Time, cypher string, err error) error {
	if isConnectivityError(err) {
		g.metrics.ObserveQuery(modeLabel(mode), metrics.OutcomeConnection, time.Since(start))
		g.logger.Error("Graph store unreachable", zap.Error(err))
		return apperrors.NewConnectionError(err)
	}

	g.metrics.ObserveQuery(modeLabel(mode), metrics.OutcomeQuery, time.Since(start))
	g.logger.Error("Graph query failed", zap.Error(err))
	return apperrors.NewQueryError(cypher, err)
}

func isConnectivityError(err error) bool {
	if neo4j.IsConnectivityError(err) {
		return true
	}
	var opErr *net.OpError
	return stderrors.As(err, &opErr)
}

func modeLabel(mode neo4j.AccessMode) string {
	if mode == neo4j.AccessModeRead {
		return "read"
	}
	return "write"
}
