package order

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownKind is matched by every UnknownKindError
var ErrUnknownKind = errors.New("unknown order kind")

// UnknownKindError reports a request for an unregistered order kind
type UnknownKindError struct {
	Kind Kind
}

// Error implements the error interface
func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown order kind %q", string(e.Kind))
}

// Is lets errors.Is(err, ErrUnknownKind) match
func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// Creator builds an order of one kind
type Creator func(id int) Order

// Registry maps kinds to creators. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	creators map[Kind]Creator
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{creators: make(map[Kind]Creator)}
}

// DefaultRegistry returns a registry with burgers and pizzas
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindBurger, func(id int) Order { return NewBurger(id) })
	r.Register(KindPizza, func(id int) Order { return NewPizza(id) })
	return r
}

// Register adds or replaces the creator for kind
func (r *Registry) Register(kind Kind, creator Creator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[kind] = creator
}

// Create builds an order of the given kind
func (r *Registry) Create(kind Kind, id int) (Order, error) {
	r.mu.RLock()
	creator, ok := r.creators[kind]
	r.mu.RUnlock()

	if !ok || creator == nil {
		return nil, &UnknownKindError{Kind: kind}
	}
	return creator(id), nil
}

// Kinds returns the registered kinds in sorted order
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.creators))
	for k := range r.creators {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ParseKind resolves a kind name case-insensitively against the registry
func (r *Registry) ParseKind(name string) (Kind, error) {
	for _, k := range r.Kinds() {
		if strings.EqualFold(string(k), name) {
			return k, nil
		}
	}
	return "", &UnknownKindError{Kind: Kind(name)}
}

var defaultRegistry = DefaultRegistry()

// Create builds an order using the package default registry
func Create(kind Kind, id int) (Order, error) {
	return defaultRegistry.Create(kind, id)
}

// Register adds a creator to the package default registry
func Register(kind Kind, creator Creator) {
	defaultRegistry.Register(kind, creator)
}

// ParseKind resolves a kind name against the package default registry
func ParseKind(name string) (Kind, error) {
	return defaultRegistry.ParseKind(name)
}
