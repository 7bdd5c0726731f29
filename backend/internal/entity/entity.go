package entity

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Entity is a stored node of one of the entity kinds
type Entity struct {
	UID        string
	Kind       Kind
	Properties map[string]any
	Tags       []string // sorted
}

// Name returns the fuzzy-searchable name built from the schema's name fields
func (e *Entity) Name() string {
	schema, ok := Schemas[e.Kind]
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(schema.NameFields))
	for _, f := range schema.NameFields {
		if s, ok := e.Properties[f].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// MarshalJSON renders dates in their external string form
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UID        string         `json:"uid"`
		Kind       Kind           `json:"kind"`
		Properties map[string]any `json:"properties"`
		Tags       []string       `json:"tags"`
	}{
		UID:        e.UID,
		Kind:       e.Kind,
		Properties: ExportProperties(e.Properties),
		Tags:       e.Tags,
	})
}

// FromNode decodes a node. The first entity-kind label is the kind and
// every other label is a tag.
func FromNode(node neo4j.Node) (*Entity, error) {
	kind, ok := KindFromLabels(node.Labels)
	if !ok {
		return nil, fmt.Errorf("node has no entity kind label: %v", node.Labels)
	}

	uid, _ := node.Props[UIDField].(string)
	if uid == "" {
		return nil, fmt.Errorf("%s node has no uid", kind)
	}

	props := make(map[string]any, len(node.Props))
	for k, v := range node.Props {
		if k != UIDField {
			props[k] = v
		}
	}

	tags := make([]string, 0, len(node.Labels))
	for _, l := range node.Labels {
		if l != string(kind) {
			tags = append(tags, l)
		}
	}
	sort.Strings(tags)

	return &Entity{
		UID:        uid,
		Kind:       kind,
		Properties: props,
		Tags:       tags,
	}, nil
}
