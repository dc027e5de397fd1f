package engine

import (
	"context"

	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
)

// Result is a handler's verdict for one invocation. Completed with a
// NextDomain hands the conversation on; NeedsUserInput false lets the
// orchestrator cascade into the next domain within the same turn.
type Result struct {
	Message        string
	Completed      bool
	NextDomain     Domain
	NeedsUserInput bool
}

// ask keeps the conversation in the current domain and waits for the
// customer.
func ask(msg string) Result {
	return Result{Message: msg, NeedsUserInput: true}
}

// handoff completes the current domain and waits for the customer before
// the next domain runs.
func handoff(msg string, next Domain) Result {
	return Result{Message: msg, Completed: true, NextDomain: next, NeedsUserInput: true}
}

// cascade completes the current domain and lets the next one run
// immediately on the same turn.
func cascade(msg string, next Domain) Result {
	return Result{Message: msg, Completed: true, NextDomain: next, NeedsUserInput: false}
}

// Handler is one sub-dialogue. AwaitingField reports the slot the handler
// is currently filling, or empty when it is idle; the orchestrator uses
// it to bias classification of short answers.
type Handler interface {
	Domain() Domain
	Invoke(ctx context.Context, state *OrderState, utterance string) (Result, error)
	AwaitingField(state *OrderState) string
}

// Catalog prices items against the store's menu. Implementations are
// immutable in-memory snapshots, so lookups take no context. Unknown
// items resolve to a category fallback price rather than failing.
type Catalog interface {
	BasePrice(category, name string) float64
	ModifierPrice(name string) float64
	InStock(category, name string) bool
}

// StoreInfo is the static storefront identity used by informational
// replies and the pickup flow.
type StoreInfo struct {
	Name    string
	Address string
	Phone   string
	Hours   string
}

// Registry is the closed table of domain handlers. Its size bounds the
// orchestrator's same-turn cascade.
type Registry struct {
	handlers map[Domain]Handler
	order    []Domain
}

func NewRegistry(handlers ...Handler) (*Registry, error) {
	if len(handlers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "at least one handler is required")
	}
	r := &Registry{handlers: make(map[Domain]Handler, len(handlers))}
	for _, h := range handlers {
		if h == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "nil handler in registry")
		}
		if _, ok := r.handlers[h.Domain()]; ok {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "duplicate handler for domain "+string(h.Domain()))
		}
		r.handlers[h.Domain()] = h
		r.order = append(r.order, h.Domain())
	}
	return r, nil
}

// Get returns the handler bound to a domain.
func (r *Registry) Get(d Domain) (Handler, bool) {
	h, ok := r.handlers[d]
	return h, ok
}

// Len is the number of registered domains. It caps cascade depth.
func (r *Registry) Len() int {
	return len(r.order)
}

// Domains lists registered domains in registration order.
func (r *Registry) Domains() []Domain {
	out := make([]Domain, len(r.order))
	copy(out, r.order)
	return out
}
