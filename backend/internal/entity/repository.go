package entity

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"media-contacts/backend/internal/fuzzy"
	"media-contacts/backend/internal/graph"
	"media-contacts/backend/internal/tags"
	apperrors "media-contacts/backend/pkg/errors"
	"media-contacts/backend/pkg/logger"
)

// Repository reads and writes the nodes of one entity kind
type Repository struct {
	exec        graph.Executor
	schema      Schema
	tags        *tags.Validator
	maxDistance int
	now         func() time.Time
	newUID      func() string
	logger      *zap.Logger
}

// Option configures a Repository
type Option func(*Repository)

// WithTagValidator replaces the default letters-only validator
func WithTagValidator(v *tags.Validator) Option {
	return func(r *Repository) { r.tags = v }
}

// WithMaxDistance sets the fuzzy tolerance used when a filter gives none
func WithMaxDistance(d int) Option {
	return func(r *Repository) { r.maxDistance = d }
}

// WithClock replaces time.Now for server-stamped fields
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithUIDGenerator replaces uuid.NewString
func WithUIDGenerator(gen func() string) Option {
	return func(r *Repository) { r.newUID = gen }
}

// NewTagValidator returns a validator that reserves every kind label
func NewTagValidator(allowDigits bool) *tags.Validator {
	opts := []tags.Option{tags.WithReserved(Labels()...)}
	if allowDigits {
		opts = append(opts, tags.WithDigits())
	}
	return tags.NewValidator(opts...)
}

// NewRepository creates a repository for the kind described by schema
func NewRepository(exec graph.Executor, schema Schema, opts ...Option) *Repository {
	r := &Repository{
		exec:        exec,
		schema:      schema,
		maxDistance: fuzzy.DefaultMaxDistance,
		now:         time.Now,
		newUID:      uuid.NewString,
		logger:      logger.Component("entity").With(zap.String("kind", string(schema.Kind))),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tags == nil {
		r.tags = NewTagValidator(false)
	}
	return r
}

// Schema returns the schema the repository was built for
func (r *Repository) Schema() Schema {
	return r.schema
}

// Create stores a new entity with a fresh uid. Tags and properties are
// fully validated before anything is written.
func (r *Repository) Create(ctx context.Context, props map[string]any, tagNames []string) (*Entity, error) {
	parsed, err := r.tags.ParseAll(tagNames)
	if err != nil {
		return nil, err
	}

	stored, err := r.schema.normalize(props, true)
	if err != nil {
		return nil, err
	}
	if r.schema.CreatedField != "" {
		stored[r.schema.CreatedField] = r.now().UTC()
	}
	uid := r.newUID()
	stored[UIDField] = uid

	query := fmt.Sprintf(`
		CREATE (n:%s%s $props)
		RETURN n
	`, r.schema.Label(), tags.LabelClause(parsed))

	records, err := r.exec.Execute(ctx, query, map[string]any{"props": stored})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.schema.Kind, err)
	}

	e, err := r.single(records)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("failed to create %s: no node returned", r.schema.Kind)
	}

	r.logger.Info("Entity created",
		zap.String("uid", uid),
		zap.Strings("tags", e.Tags),
	)
	return e, nil
}

// FindByUID returns the entity with uid. A missing entity is reported by
// the boolean, not an error.
func (r *Repository) FindByUID(ctx context.Context, uid string) (*Entity, bool, error) {
	query := fmt.Sprintf(`
		MATCH (n:%s {uid: $uid})
		RETURN n
	`, r.schema.Label())

	records, err := r.exec.ExecuteRead(ctx, query, map[string]any{"uid": uid})
	if err != nil {
		return nil, false, fmt.Errorf("failed to find %s: %w", r.schema.Kind, err)
	}

	e, err := r.single(records)
	if err != nil {
		return nil, false, err
	}
	return e, e != nil, nil
}

// Filter narrows FindByFilter. Tags are intersected. A blank Name disables
// fuzzy matching; a nil MaxDistance uses the repository default.
type Filter struct {
	Tags        []string
	Name        string
	MaxDistance *int
}

// Match is an entity returned by FindByFilter with its name distance
type Match struct {
	*Entity
	Distance int
}

// FindByFilter returns entities carrying every tag in the filter. With a
// name, only fuzzy matches are returned, best first.
func (r *Repository) FindByFilter(ctx context.Context, f Filter) ([]Match, error) {
	parsed, err := r.tags.ParseAll(f.Tags)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		MATCH (n:%s%s)
		RETURN n
	`, r.schema.Label(), tags.LabelClause(parsed))

	records, err := r.exec.ExecuteRead(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.schema.Kind, err)
	}

	entities, err := r.decodeAll(records)
	if err != nil {
		return nil, err
	}

	maxDistance := r.maxDistance
	if f.MaxDistance != nil {
		maxDistance = *f.MaxDistance
	}

	byUID := make(map[string]*Entity, len(entities))
	candidates := make([]fuzzy.Candidate, len(entities))
	for i, e := range entities {
		byUID[e.UID] = e
		candidates[i] = fuzzy.Candidate{UID: e.UID, Name: e.Name()}
	}

	results := fuzzy.Match(candidates, f.Name, maxDistance)
	matches := make([]Match, len(results))
	for i, res := range results {
		matches[i] = Match{Entity: byUID[res.UID], Distance: res.Best}
	}
	return matches, nil
}

// UpdateProperties merges patch into the entity. A uid in the patch is ignored.
func (r *Repository) UpdateProperties(ctx context.Context, uid string, patch map[string]any) (*Entity, error) {
	stored, err := r.schema.normalize(patch, false)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		MATCH (n:%s {uid: $uid})
		SET n += $patch
		RETURN n
	`, r.schema.Label())

	records, err := r.exec.Execute(ctx, query, map[string]any{
		"uid":   uid,
		"patch": stored,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.schema.Kind, err)
	}

	e, err := r.single(records)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NewNotFoundError(string(r.schema.Kind), uid)
	}

	r.logger.Info("Entity properties updated",
		zap.String("uid", uid),
		zap.Int("fields", len(stored)),
	)
	return e, nil
}

// UpdateTags removes then adds tags, so a tag in both lists ends up present.
// Both lists are validated before the entity is touched.
func (r *Repository) UpdateTags(ctx context.Context, uid string, add, remove []string) (*Entity, error) {
	toAdd, err := r.tags.ParseAll(add)
	if err != nil {
		return nil, err
	}
	toRemove, err := r.tags.ParseAll(remove)
	if err != nil {
		return nil, err
	}

	current, found, err := r.FindByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewNotFoundError(string(r.schema.Kind), uid)
	}
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return current, nil
	}

	query := fmt.Sprintf("MATCH (n:%s {uid: $uid})\n", r.schema.Label())
	if len(toRemove) > 0 {
		query += fmt.Sprintf("REMOVE n%s\n", tags.LabelClause(toRemove))
	}
	if len(toAdd) > 0 {
		query += fmt.Sprintf("SET n%s\n", tags.LabelClause(toAdd))
	}
	query += "RETURN n"

	records, err := r.exec.Execute(ctx, query, map[string]any{"uid": uid})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s tags: %w", r.schema.Kind, err)
	}

	e, err := r.single(records)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NewNotFoundError(string(r.schema.Kind), uid)
	}

	before := mapset.NewThreadUnsafeSet(current.Tags...)
	after := mapset.NewThreadUnsafeSet(e.Tags...)
	r.logger.Info("Entity tags updated",
		zap.String("uid", uid),
		zap.Strings("added", after.Difference(before).ToSlice()),
		zap.Strings("removed", before.Difference(after).ToSlice()),
	)
	return e, nil
}

func (r *Repository) single(records []graph.Record) (*Entity, error) {
	if len(records) == 0 {
		return nil, nil
	}
	node, ok := records[0].Node("n")
	if !ok {
		return nil, fmt.Errorf("unexpected %s record: missing node", r.schema.Kind)
	}
	return FromNode(node)
}

func (r *Repository) decodeAll(records []graph.Record) ([]*Entity, error) {
	entities := make([]*Entity, 0, len(records))
	for _, rec := range records {
		node, ok := rec.Node("n")
		if !ok {
			return nil, fmt.Errorf("unexpected %s record: missing node", r.schema.Kind)
		}
		e, err := FromNode(node)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
