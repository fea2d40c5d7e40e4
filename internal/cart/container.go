// Package cart holds the in-memory line items of one shopping cart.
//
// A Container has no persistence dependency and is not safe for concurrent
// use; the owning session serializes access and writes every mutation through
// to durable storage.
package cart

import (
	"errors"

	"github.com/fjod/autoparts-storefront/internal/domain"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product id is required")
)

type Container struct {
	items []domain.LineItem
}

// New returns a container seeded with items in the given order. Entries with
// a non-positive quantity are dropped and duplicate ids are merged.
func New(items ...domain.LineItem) *Container {
	c := &Container{}
	c.Replace(items)
	return c
}

// AddItem increments the quantity of the line item with p's id or appends a
// new line item snapshotting p.
func (c *Container) AddItem(p domain.Product, delta int) error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	if delta < 1 {
		return ErrInvalidQuantity
	}

	if i := c.indexOf(p.ID); i >= 0 {
		c.items[i].Quantity += delta
		return nil
	}
	c.items = append(c.items, domain.NewLineItem(p, delta))
	return nil
}

// SetQuantity replaces the quantity of an existing line item. A quantity of
// zero or less removes it; an unknown id is a no-op.
func (c *Container) SetQuantity(id string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(id)
		return
	}
	if i := c.indexOf(id); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

func (c *Container) RemoveItem(id string) {
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
}

func (c *Container) Clear() {
	c.items = nil
}

// Replace swaps the whole collection, keeping the invariants of New.
func (c *Container) Replace(items []domain.LineItem) {
	c.items = nil
	for _, item := range items {
		if item.ID == "" || item.Quantity <= 0 {
			continue
		}
		if i := c.indexOf(item.ID); i >= 0 {
			c.items[i].Quantity += item.Quantity
			continue
		}
		c.items = append(c.items, item)
	}
}

// Items returns a copy of the line items in insertion order.
func (c *Container) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Container) Get(id string) (domain.LineItem, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	return domain.LineItem{}, false
}

// Len is the number of distinct products.
func (c *Container) Len() int {
	return len(c.items)
}

// Count is the number of units across all line items.
func (c *Container) Count() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c *Container) IsEmpty() bool {
	return len(c.items) == 0
}

// Totals is recomputed on every call.
func (c *Container) Totals() domain.Totals {
	return domain.ComputeTotals(c.items)
}

func (c *Container) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}
