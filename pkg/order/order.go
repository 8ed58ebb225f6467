// Package order defines the work items the kitchen prepares and the factory
// that constructs them by kind.
package order

import (
	"context"
	"fmt"
)

// Kind identifies the concrete type of an order
type Kind string

const (
	// KindBurger is a burger order
	KindBurger Kind = "Burger"
	// KindPizza is a pizza order
	KindPizza Kind = "Pizza"
)

// String returns the kind name
func (k Kind) String() string {
	return string(k)
}

// Order is a unit of work. Implementations are immutable after construction
// and safe to prepare from any goroutine without locking.
type Order interface {
	// ID returns the identifier assigned at creation
	ID() int

	// Kind returns the order kind
	Kind() Kind

	// Prepare produces the human-readable result of preparing the order
	Prepare(ctx context.Context) (string, error)
}

type basicOrder struct {
	id   int
	kind Kind
}

func (o basicOrder) ID() int    { return o.id }
func (o basicOrder) Kind() Kind { return o.kind }

func (o basicOrder) Prepare(ctx context.Context) (string, error) {
	return fmt.Sprintf("%s %d prepared", o.kind, o.id), nil
}

// Burger is a burger order
type Burger struct{ basicOrder }

// NewBurger creates a burger order
func NewBurger(id int) *Burger {
	return &Burger{basicOrder{id: id, kind: KindBurger}}
}

// Pizza is a pizza order
type Pizza struct{ basicOrder }

// NewPizza creates a pizza order
func NewPizza(id int) *Pizza {
	return &Pizza{basicOrder{id: id, kind: KindPizza}}
}

// Describe formats an order for log lines
func Describe(o Order) string {
	return fmt.Sprintf("order %d (%s)", o.ID(), o.Kind())
}
