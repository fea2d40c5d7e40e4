package cart

import (
	"testing"

	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	brakePad  = domain.Product{ID: "p1", Name: "Brake Pad", Image: "/img/p1.jpg", Price: 450}
	oilFilter = domain.Product{ID: "p2", Name: "Oil Filter", Image: "/img/p2.jpg", Price: 120}
)

func TestAddItem_DuplicateAddMerges(t *testing.T) {
	c := New()

	require.NoError(t, c.AddItem(brakePad, 1))
	require.NoError(t, c.AddItem(brakePad, 1))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddItem_SnapshotsProduct(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(brakePad, 3))

	item, ok := c.Get("p1")
	require.True(t, ok)
	assert.Equal(t, domain.LineItem{ID: "p1", Name: "Brake Pad", Image: "/img/p1.jpg", Price: 450, Quantity: 3}, item)
}

func TestAddItem_RejectsNonPositiveDelta(t *testing.T) {
	c := New()

	assert.ErrorIs(t, c.AddItem(brakePad, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, c.AddItem(brakePad, -2), ErrInvalidQuantity)
	assert.ErrorIs(t, c.AddItem(domain.Product{Name: "no id"}, 1), ErrInvalidProduct)
	assert.True(t, c.IsEmpty())
}

func TestAddItem_PreservesInsertionOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(oilFilter, 1))
	require.NoError(t, c.AddItem(brakePad, 1))
	require.NoError(t, c.AddItem(oilFilter, 1))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p2", items[0].ID)
	assert.Equal(t, "p1", items[1].ID)
}

func TestSetQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(brakePad, 1))
	require.NoError(t, c.AddItem(oilFilter, 1))

	c.SetQuantity("p1", 5)
	item, _ := c.Get("p1")
	assert.Equal(t, 5, item.Quantity)

	c.SetQuantity("p1", 0)
	_, ok := c.Get("p1")
	assert.False(t, ok, "zero quantity removes the line item")

	c.SetQuantity("p2", -1)
	assert.True(t, c.IsEmpty())
}

func TestSetQuantity_UnknownIDIsNoop(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(brakePad, 2))

	c.SetQuantity("missing", 4)

	assert.Equal(t, []domain.LineItem{domain.NewLineItem(brakePad, 2)}, c.Items())
}

func TestRemoveItem(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(brakePad, 1))
	require.NoError(t, c.AddItem(oilFilter, 1))

	c.RemoveItem("p1")
	c.RemoveItem("p1")

	require.Equal(t, 1, c.Len())
	assert.Equal(t, "p2", c.Items()[0].ID)
}

func TestClear(t *testing.T) {
	c := New(domain.NewLineItem(brakePad, 1))
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Empty(t, c.Items())
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New(domain.NewLineItem(brakePad, 1))

	items := c.Items()
	items[0].Quantity = 99

	item, _ := c.Get("p1")
	assert.Equal(t, 1, item.Quantity)
}

func TestNew_EnforcesInvariants(t *testing.T) {
	c := New(
		domain.LineItem{ID: "p1", Price: 450, Quantity: 1},
		domain.LineItem{ID: "p1", Price: 450, Quantity: 2},
		domain.LineItem{ID: "p2", Price: 120, Quantity: 0},
		domain.LineItem{ID: "", Price: 1, Quantity: 1},
	)

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.Count())
}

func TestTotals_RecomputedOnEveryRead(t *testing.T) {
	c := New()
	require.NoError(t, c.AddItem(domain.Product{ID: "a", Price: 333}, 3))

	totals := c.Totals()
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(999)))
	assert.True(t, totals.ShippingFee.Equal(decimal.NewFromInt(99)))

	require.NoError(t, c.AddItem(domain.Product{ID: "b", Price: 1}, 1))

	totals = c.Totals()
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, totals.ShippingFee.IsZero())
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(1000)))
}
