package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurgerAndPizza(t *testing.T) {
	ctx := context.Background()

	b := NewBurger(2)
	assert.Equal(t, 2, b.ID())
	assert.Equal(t, KindBurger, b.Kind())
	res, err := b.Prepare(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Burger 2 prepared", res)

	p := NewPizza(0)
	assert.Equal(t, KindPizza, p.Kind())
	res, err = p.Prepare(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pizza 0 prepared", res)
}

func TestPrepareIsDeterministic(t *testing.T) {
	p := NewPizza(9)
	first, _ := p.Prepare(context.Background())
	second, _ := p.Prepare(context.Background())
	assert.Equal(t, first, second)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "order 4 (Burger)", Describe(NewBurger(4)))
}

func TestRegistry_Create(t *testing.T) {
	r := DefaultRegistry()

	o, err := r.Create(KindBurger, 1)
	require.NoError(t, err)
	assert.IsType(t, &Burger{}, o)

	o, err = r.Create(KindPizza, 1)
	require.NoError(t, err)
	assert.IsType(t, &Pizza{}, o)
}

func TestRegistry_UnknownKind(t *testing.T) {
	r := DefaultRegistry()

	o, err := r.Create("Salad", 1)
	assert.Nil(t, o)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))

	var uke *UnknownKindError
	require.True(t, errors.As(err, &uke))
	assert.Equal(t, Kind("Salad"), uke.Kind)
	assert.Equal(t, `unknown order kind "Salad"`, err.Error())
}

type salad struct{ id int }

func (s salad) ID() int    { return s.id }
func (s salad) Kind() Kind { return "Salad" }
func (s salad) Prepare(ctx context.Context) (string, error) {
	return fmt.Sprintf("Salad %d tossed", s.id), nil
}

func TestRegistry_RegisterExtendsKinds(t *testing.T) {
	r := DefaultRegistry()
	r.Register("Salad", func(id int) Order { return salad{id: id} })

	assert.Equal(t, []Kind{KindBurger, KindPizza, "Salad"}, r.Kinds())

	o, err := r.Create("Salad", 5)
	require.NoError(t, err)
	res, err := o.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Salad 5 tossed", res)
}

func TestRegistry_ParseKind(t *testing.T) {
	r := DefaultRegistry()

	k, err := r.ParseKind("pizza")
	require.NoError(t, err)
	assert.Equal(t, KindPizza, k)

	k, err = r.ParseKind("BURGER")
	require.NoError(t, err)
	assert.Equal(t, KindBurger, k)

	_, err = r.ParseKind("taco")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := DefaultRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Register(Kind(fmt.Sprintf("K%d", i)), func(id int) Order { return NewBurger(id) })
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := r.Create(KindPizza, i)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.Kinds(), 22)
}

func TestPackageCreate(t *testing.T) {
	o, err := Create(KindBurger, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, o.ID())

	k, err := ParseKind("Burger")
	require.NoError(t, err)
	assert.Equal(t, KindBurger, k)

	_, err = Create("Sushi", 1)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
