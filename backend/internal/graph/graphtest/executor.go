// Package graphtest provides a scripted graph.Executor for tests.
package graphtest

import (
	"context"
	"strings"
	"sync"

	"media-contacts/backend/internal/graph"
)

// Call is one query the executor received
type Call struct {
	Cypher string
	Params map[string]any
	Read   bool
}

type response struct {
	records []graph.Record
	err     error
}

// Handler answers a call that has no queued response
type Handler func(call Call) ([]graph.Record, error)

// Executor replays queued responses in order and records every call.
// Once the queue is empty it defers to the handler, or answers with no records.
type Executor struct {
	mu        sync.Mutex
	calls     []Call
	responses []response
	handler   Handler
}

// New creates an empty executor
func New() *Executor {
	return &Executor{}
}

// Returns queues a successful response
func (e *Executor) Returns(records ...graph.Record) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses = append(e.responses, response{records: records})
	return e
}

// HandleWith sets the handler used once the queue is empty
func (e *Executor) HandleWith(h Handler) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
	return e
}

// Fails queues a failed response
func (e *Executor) Fails(err error) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses = append(e.responses, response{err: err})
	return e
}

// Execute implements graph.Executor
func (e *Executor) Execute(_ context.Context, cypher string, params map[string]any) ([]graph.Record, error) {
	return e.next(Call{Cypher: cypher, Params: params})
}

// ExecuteRead implements graph.Executor
func (e *Executor) ExecuteRead(_ context.Context, cypher string, params map[string]any) ([]graph.Record, error) {
	return e.next(Call{Cypher: cypher, Params: params, Read: true})
}

func (e *Executor) next(call Call) ([]graph.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
	if len(e.responses) == 0 {
		if e.handler != nil {
			return e.handler(call)
		}
		return nil, nil
	}
	r := e.responses[0]
	e.responses = e.responses[1:]
	return r.records, r.err
}

// Calls returns every call received so far
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Writes returns the calls made through Execute
func (e *Executor) Writes() []Call {
	var writes []Call
	for _, c := range e.Calls() {
		if !c.Read {
			writes = append(writes, c)
		}
	}
	return writes
}

// Last returns the most recent call
func (e *Executor) Last() Call {
	calls := e.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

// Compact collapses whitespace so assertions can ignore query formatting
func Compact(cypher string) string {
	return strings.Join(strings.Fields(cypher), " ")
}
