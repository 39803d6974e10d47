package catalog

import "sync/atomic"

// Holder publishes the catalog currently in effect so a reload can swap it
// without the readers holding a stale pointer.
type Holder struct {
	p atomic.Pointer[Catalog]
}

// NewHolder returns a holder initialised with c.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.p.Store(c)
	return h
}

// Current returns the catalog in effect.
func (h *Holder) Current() *Catalog {
	return h.p.Load()
}

// Swap replaces the catalog in effect.
func (h *Holder) Swap(c *Catalog) {
	h.p.Store(c)
}
