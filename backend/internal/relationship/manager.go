package relationship

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"media-contacts/backend/internal/entity"
	"media-contacts/backend/internal/graph"
	apperrors "media-contacts/backend/pkg/errors"
	"media-contacts/backend/pkg/logger"
)

// Manager creates and lists edges. Endpoints are checked in one read before
// each write; the check and the write are separate statements.
type Manager struct {
	exec   graph.Executor
	now    func() time.Time
	newUID func() string
	logger *zap.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces time.Now for creation stamps
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithUIDGenerator replaces uuid.NewString
func WithUIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newUID = gen }
}

// NewManager creates a manager over exec
func NewManager(exec graph.Executor, opts ...Option) *Manager {
	m := &Manager{
		exec:   exec,
		now:    time.Now,
		newUID: uuid.NewString,
		logger: logger.Component("relationship"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateEmployment links a person to the company that employs them.
// role is required; end_date may be omitted for current employment.
func (m *Manager) CreateEmployment(ctx context.Context, personUID, companyUID string, props map[string]any) (*Relationship, error) {
	stored, err := employmentProperties(props)
	if err != nil {
		return nil, err
	}
	return m.create(ctx, employmentEdge, personUID, companyUID, stored)
}

// CreateNote records a note written by author about a person. The creation
// date is today's date on the server clock.
func (m *Manager) CreateNote(ctx context.Context, authorUID, subjectUID, content string) (*Relationship, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError(FieldContent, "must not be empty")
	}
	stored := map[string]any{
		FieldContent:      content,
		FieldCreationDate: entity.DateOf(m.now()),
	}
	return m.create(ctx, noteEdge, authorUID, subjectUID, stored)
}

// CreateInclusion adds a person to a medialist. creation_date holds the full
// timestamp, unlike the date-only stamp on notes.
func (m *Manager) CreateInclusion(ctx context.Context, personUID, medialistUID string, props map[string]any) (*Relationship, error) {
	stored, err := scalarProperties(props)
	if err != nil {
		return nil, err
	}
	stored[FieldCreationDate] = m.now().UTC()
	return m.create(ctx, inclusionEdge, personUID, medialistUID, stored)
}

// ListEmploymentFor returns the employment edges of a person with their companies
func (m *Manager) ListEmploymentFor(ctx context.Context, personUID string) ([]Link, error) {
	query := fmt.Sprintf(`
		MATCH (p {uid: $uid})-[r:%s]->(c:%s)
		WHERE %s
		RETURN r, p.uid AS from_uid, c.uid AS to_uid, c AS neighbor
	`, TypeEmployment, entity.KindCompany, kindPredicate("p", entity.PersonKinds))
	return m.list(ctx, TypeEmployment, query, personUID)
}

// ListNotesFor returns the notes about a person with their authors
func (m *Manager) ListNotesFor(ctx context.Context, subjectUID string) ([]Link, error) {
	query := fmt.Sprintf(`
		MATCH (a)-[r:%s]->(s {uid: $uid})
		WHERE %s
		RETURN r, a.uid AS from_uid, s.uid AS to_uid, a AS neighbor
	`, TypeNote, kindPredicate("s", entity.PersonKinds))
	return m.list(ctx, TypeNote, query, subjectUID)
}

// ListInclusionsFor returns the members of a medialist
func (m *Manager) ListInclusionsFor(ctx context.Context, medialistUID string) ([]Link, error) {
	query := fmt.Sprintf(`
		MATCH (p)-[r:%s]->(l:%s {uid: $uid})
		WHERE %s
		RETURN r, p.uid AS from_uid, l.uid AS to_uid, p AS neighbor
	`, TypeIncluded, entity.KindMedialist, kindPredicate("p", entity.PersonKinds))
	return m.list(ctx, TypeIncluded, query, medialistUID)
}

func (m *Manager) create(ctx context.Context, edge edgeSpec, from, to string, props map[string]any) (*Relationship, error) {
	if err := m.checkEndpoints(ctx, edge, from, to); err != nil {
		return nil, err
	}

	uid := m.newUID()
	props[entity.UIDField] = uid

	query := fmt.Sprintf(`
		MATCH (a {uid: $from}), (b {uid: $to})
		WHERE %s AND %s
		CREATE (a)-[r:%s $props]->(b)
		RETURN r, a.uid AS from_uid, b.uid AS to_uid
	`, kindPredicate("a", edge.from), kindPredicate("b", edge.to), edge.typ)

	records, err := m.exec.Execute(ctx, query, map[string]any{
		"from":  from,
		"to":    to,
		"props": props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s relationship: %w", edge.typ, err)
	}
	if len(records) == 0 {
		// An endpoint disappeared between the check and the write
		return nil, m.vanishedEndpoint(ctx, edge, from, to)
	}

	rel, err := decodeRelationship(records[0])
	if err != nil {
		return nil, err
	}

	m.logger.Info("Relationship created",
		zap.String("type", string(edge.typ)),
		zap.String("uid", uid),
		zap.String("from", from),
		zap.String("to", to),
	)
	return rel, nil
}

// checkEndpoints resolves the labels of both endpoints in one round trip
func (m *Manager) checkEndpoints(ctx context.Context, edge edgeSpec, from, to string) error {
	query := `
		OPTIONAL MATCH (a {uid: $from})
		OPTIONAL MATCH (b {uid: $to})
		RETURN labels(a) AS from_labels, labels(b) AS to_labels
		LIMIT 1
	`
	records, err := m.exec.ExecuteRead(ctx, query, map[string]any{"from": from, "to": to})
	if err != nil {
		return fmt.Errorf("failed to resolve %s endpoints: %w", edge.typ, err)
	}

	var fromLabels, toLabels []string
	if len(records) > 0 {
		fromLabels = records[0].Strings("from_labels")
		toLabels = records[0].Strings("to_labels")
	}

	if err := checkKind(from, fromLabels, edge.from, edge.strict); err != nil {
		return err
	}
	return checkKind(to, toLabels, edge.to, edge.strict)
}

// vanishedEndpoint repeats the endpoint check after a write matched nothing
// so the error names the node that is actually gone
func (m *Manager) vanishedEndpoint(ctx context.Context, edge edgeSpec, from, to string) error {
	if err := m.checkEndpoints(ctx, edge, from, to); err != nil {
		return err
	}
	return apperrors.NewBaseError(apperrors.ErrorTypeNotFound,
		fmt.Sprintf("%s endpoints changed during write: %s -> %s", edge.typ, from, to), nil)
}

func checkKind(uid string, labels []string, allowed []entity.Kind, strict bool) error {
	expected := strings.Join(kindNames(allowed), " or ")
	kind, ok := entity.KindFromLabels(labels)
	if !ok {
		return apperrors.NewNotFoundError(expected, uid)
	}
	if slices.Contains(allowed, kind) {
		return nil
	}
	if strict {
		return apperrors.NewTypeMismatchError(uid, kindNames(allowed), labels)
	}
	return apperrors.NewNotFoundError(expected, uid)
}

func (m *Manager) list(ctx context.Context, typ Type, query, uid string) ([]Link, error) {
	records, err := m.exec.ExecuteRead(ctx, query, map[string]any{"uid": uid})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s relationships: %w", typ, err)
	}

	links := make([]Link, 0, len(records))
	for _, rec := range records {
		link, err := decodeLink(rec)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

func employmentProperties(props map[string]any) (map[string]any, error) {
	stored, err := scalarProperties(props)
	if err != nil {
		return nil, err
	}

	role, _ := stored[FieldRole].(string)
	if strings.TrimSpace(role) == "" {
		return nil, apperrors.NewValidationError(FieldRole, "is required")
	}

	for _, field := range []string{FieldStartDate, FieldEndDate} {
		v, ok := stored[field]
		if !ok {
			continue
		}
		d, err := entity.ParseDate(field, v)
		if err != nil {
			return nil, err
		}
		if d == nil {
			delete(stored, field)
			continue
		}
		stored[field] = d
	}

	start, hasStart := stored[FieldStartDate].(neo4j.Date)
	end, hasEnd := stored[FieldEndDate].(neo4j.Date)
	if hasStart && hasEnd && end.Time().Before(start.Time()) {
		return nil, apperrors.NewValidationError(FieldEndDate, "must not be before start_date")
	}
	return stored, nil
}

// scalarProperties copies props without the uid, checking every value
func scalarProperties(props map[string]any) (map[string]any, error) {
	stored := make(map[string]any, len(props)+2)
	for k, v := range props {
		if k == entity.UIDField {
			continue
		}
		if strings.TrimSpace(k) == "" {
			return nil, apperrors.NewValidationError(k, "property names must not be blank")
		}
		val, err := entity.Scalar(k, v)
		if err != nil {
			return nil, err
		}
		stored[k] = val
	}
	return stored, nil
}
