package graphtest

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"media-contacts/backend/internal/graph"
)

var (
	createNodeRe = regexp.MustCompile(`^CREATE \(n((?::\w+)+) \$props\) RETURN n$`)
	matchNodeRe  = regexp.MustCompile(`^MATCH \(n((?::\w+)+)( \{uid: \$uid\})?\)(.*)RETURN n$`)
	removeRe     = regexp.MustCompile(`REMOVE n((?::\w+)+)`)
	setLabelsRe  = regexp.MustCompile(`SET n((?::\w+)+)`)
	mergeRe      = regexp.MustCompile(`SET n \+= \$patch`)
)

// Store is an in-memory node store that understands the node queries of the
// entity repository: create with labels, match by labels and uid, property
// merge, and label removal followed by label addition.
type Store struct {
	mu    sync.Mutex
	nodes []*neo4j.Node
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Executor returns an executor backed by the store
func (s *Store) Executor() *Executor {
	return New().HandleWith(s.Handle)
}

// Nodes returns a snapshot of every stored node
func (s *Store) Nodes() []neo4j.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]neo4j.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = snapshot(n)
	}
	return out
}

// Handle answers one call
func (s *Store) Handle(call Call) ([]graph.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := Compact(call.Cypher)

	if m := createNodeRe.FindStringSubmatch(q); m != nil {
		props, _ := call.Params["props"].(map[string]any)
		node := &neo4j.Node{Labels: splitLabels(m[1]), Props: copyProps(props)}
		s.nodes = append(s.nodes, node)
		return []graph.Record{{"n": snapshot(node)}}, nil
	}

	m := matchNodeRe.FindStringSubmatch(q)
	if m == nil {
		return nil, fmt.Errorf("graphtest: unsupported query: %s", q)
	}
	labels := splitLabels(m[1])
	byUID := m[2] != ""
	mutation := strings.TrimSpace(m[3])

	var records []graph.Record
	for _, n := range s.nodes {
		if !hasLabels(n, labels) {
			continue
		}
		if byUID && n.Props["uid"] != call.Params["uid"] {
			continue
		}
		if mergeRe.MatchString(mutation) {
			patch, _ := call.Params["patch"].(map[string]any)
			for k, v := range patch {
				n.Props[k] = v
			}
		}
		if rm := removeRe.FindStringSubmatch(mutation); rm != nil {
			for _, l := range splitLabels(rm[1]) {
				n.Labels = slices.DeleteFunc(n.Labels, func(x string) bool { return x == l })
			}
		}
		if add := setLabelsRe.FindStringSubmatch(mutation); add != nil {
			for _, l := range splitLabels(add[1]) {
				if !slices.Contains(n.Labels, l) {
					n.Labels = append(n.Labels, l)
				}
			}
		}
		records = append(records, graph.Record{"n": snapshot(n)})
	}
	return records, nil
}

func splitLabels(clause string) []string {
	return strings.Split(strings.TrimPrefix(clause, ":"), ":")
}

func hasLabels(n *neo4j.Node, labels []string) bool {
	for _, l := range labels {
		if !slices.Contains(n.Labels, l) {
			return false
		}
	}
	return true
}

func snapshot(n *neo4j.Node) neo4j.Node {
	return neo4j.Node{
		Labels: append([]string(nil), n.Labels...),
		Props:  copyProps(n.Props),
	}
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
