package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Record is one result row keyed by the names in the RETURN clause
type Record map[string]any

// String returns the string stored under key, or "" when absent or not a string
func (r Record) String(key string) string {
	if str, ok := r[key].(string); ok {
		return str
	}
	return ""
}

// Strings returns the list of strings stored under key, skipping non-strings
func (r Record) Strings(key string) []string {
	slice, ok := r[key].([]any)
	if !ok {
		return []string{}
	}
	result := make([]string, 0, len(slice))
	for _, v := range slice {
		if str, ok := v.(string); ok {
			result = append(result, str)
		}
	}
	return result
}

// Node returns the node stored under key
func (r Record) Node(key string) (neo4j.Node, bool) {
	switch v := r[key].(type) {
	case neo4j.Node:
		return v, true
	case *neo4j.Node:
		if v != nil {
			return *v, true
		}
	}
	return neo4j.Node{}, false
}

// Relationship returns the relationship stored under key
func (r Record) Relationship(key string) (neo4j.Relationship, bool) {
	switch v := r[key].(type) {
	case neo4j.Relationship:
		return v, true
	case *neo4j.Relationship:
		if v != nil {
			return *v, true
		}
	}
	return neo4j.Relationship{}, false
}
