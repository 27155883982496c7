package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/teslix_shop/pkg/events"
)

func TestCartService_AddDoesNotMerge(t *testing.T) {
	r := newTestRepo(t)
	ev := &events.Memory{}
	svc := &CartService{Repo: r, Events: ev}
	ctx := context.Background()
	u := seedUser(t, r, "alice")
	p := seedProduct(t, r, "Widget", "10.00")

	first, err := svc.AddToCart(ctx, u.ID, p.ID, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Quantity, "quantity defaults to one")
	assert.Equal(t, "Widget", first.Product.Name)

	second, err := svc.AddToCart(ctx, u.ID, p.ID, 3)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	view, err := svc.GetCart(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.EqualValues(t, 4, view.TotalItems)
	assert.Equal(t, "40.00", view.Total.StringFixed(2))

	_, err = svc.RemoveFromCart(ctx, u.ID, first.ID)
	require.NoError(t, err)

	view, err = svc.GetCart(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, second.ID, view.Items[0].ID)

	assert.Len(t, ev.ByTopic(events.CartTopic), 3)
}

func TestCartService_Errors(t *testing.T) {
	r := newTestRepo(t)
	svc := &CartService{Repo: r}
	ctx := context.Background()
	alice := seedUser(t, r, "alice")
	mallory := seedUser(t, r, "mallory")
	p := seedProduct(t, r, "Widget", "10.00")

	_, err := svc.AddToCart(ctx, alice.ID, 0, 1)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddToCart(ctx, alice.ID, 4242, 1)
	require.ErrorIs(t, err, ErrNotFound)

	item, err := svc.AddToCart(ctx, alice.ID, p.ID, 1)
	require.NoError(t, err)

	_, err = svc.RemoveFromCart(ctx, mallory.ID, item.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RemoveFromCart(ctx, alice.ID, 4242)
	require.ErrorIs(t, err, ErrNotFound)

	view, err := svc.GetCart(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestCartService_QuantityBounded(t *testing.T) {
	r := newTestRepo(t)
	ev := &events.Memory{}
	svc := &CartService{Repo: r, Events: ev}
	ctx := context.Background()
	u := seedUser(t, r, "alice")
	p := seedProduct(t, r, "Widget", "10.00")

	item, err := svc.AddToCart(ctx, u.ID, p.ID, MaxCartQuantity)
	require.NoError(t, err)
	assert.EqualValues(t, MaxCartQuantity, item.Quantity)

	for _, q := range []uint{MaxCartQuantity + 1, 1 << 62, math.MaxUint64} {
		_, err := svc.AddToCart(ctx, u.ID, p.ID, q)
		require.ErrorIs(t, err, ErrValidation, "quantity %d", q)
	}

	view, err := svc.GetCart(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "10000.00", view.Total.StringFixed(2))
	assert.Len(t, ev.ByTopic(events.CartTopic), 1)
}
