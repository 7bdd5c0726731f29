// Package relationship creates and lists the typed edges between entities.
package relationship

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"media-contacts/backend/internal/entity"
	"media-contacts/backend/internal/graph"
)

// Type is the relationship type stored on the edge
type Type string

const (
	TypeEmployment Type = "EMPLOYMENT"
	TypeNote       Type = "NOTE"
	TypeIncluded   Type = "INCLUDED"
)

// Property names set by the manager
const (
	FieldRole         = "role"
	FieldStartDate    = "start_date"
	FieldEndDate      = "end_date"
	FieldContent      = "content"
	FieldCreationDate = "creation_date"
)

// Relationship is a stored edge with the uids of both endpoints
type Relationship struct {
	UID        string
	Type       Type
	From       string
	To         string
	Properties map[string]any
}

// MarshalJSON renders dates in their external string form
func (r Relationship) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UID        string         `json:"uid"`
		Type       Type           `json:"type"`
		From       string         `json:"from"`
		To         string         `json:"to"`
		Properties map[string]any `json:"properties"`
	}{
		UID:        r.UID,
		Type:       r.Type,
		From:       r.From,
		To:         r.To,
		Properties: entity.ExportProperties(r.Properties),
	})
}

// Link is an edge together with the entity at its far end
type Link struct {
	Relationship *Relationship `json:"relationship"`
	Neighbor     *entity.Entity `json:"neighbor"`
}

// edgeSpec describes which kinds an edge type may connect
type edgeSpec struct {
	typ  Type
	from []entity.Kind
	to   []entity.Kind

	// strict reports a wrong endpoint kind as a type mismatch rather than
	// as a missing entity
	strict bool
}

var (
	employmentEdge = edgeSpec{
		typ:    TypeEmployment,
		from:   entity.PersonKinds,
		to:     []entity.Kind{entity.KindCompany},
		strict: true,
	}
	noteEdge = edgeSpec{
		typ:  TypeNote,
		from: entity.Kinds(),
		to:   entity.PersonKinds,
	}
	inclusionEdge = edgeSpec{
		typ:  TypeIncluded,
		from: entity.PersonKinds,
		to:   []entity.Kind{entity.KindMedialist},
	}
)

// kindPredicate renders "(v:A OR v:B)" for the given node variable
func kindPredicate(variable string, kinds []entity.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s:%s", variable, k)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func kindNames(kinds []entity.Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// decodeLink reads the r, from_uid, to_uid and neighbor columns of a record
func decodeLink(rec graph.Record) (Link, error) {
	rel, err := decodeRelationship(rec)
	if err != nil {
		return Link{}, err
	}
	node, ok := rec.Node("neighbor")
	if !ok {
		return Link{}, fmt.Errorf("unexpected %s record: missing neighbor", rel.Type)
	}
	neighbor, err := entity.FromNode(node)
	if err != nil {
		return Link{}, err
	}
	return Link{Relationship: rel, Neighbor: neighbor}, nil
}

func decodeRelationship(rec graph.Record) (*Relationship, error) {
	r, ok := rec.Relationship("r")
	if !ok {
		return nil, fmt.Errorf("unexpected record: missing relationship")
	}
	return fromRelationship(r, rec.String("from_uid"), rec.String("to_uid")), nil
}

func fromRelationship(r neo4j.Relationship, from, to string) *Relationship {
	props := make(map[string]any, len(r.Props))
	for k, v := range r.Props {
		if k != entity.UIDField {
			props[k] = v
		}
	}
	uid, _ := r.Props[entity.UIDField].(string)
	return &Relationship{
		UID:        uid,
		Type:       Type(r.Type),
		From:       from,
		To:         to,
		Properties: props,
	}
}
