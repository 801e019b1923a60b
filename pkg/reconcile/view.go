// Package reconcile implements the client-side merge contract for live
// delivery events. A View holds a locally paginated, filtered snapshot of a
// server-side list and merges pushed creation/update/deletion/counter events
// into it without corrupting pagination state or producing duplicates.
//
// Every item carries a provenance tag: authoritative items came from a
// server page, live-injected items arrived over the live channel before any
// page contained them. The tag is what lets a full refresh avoid evicting a
// just-pushed item that the refreshed page omits due to timing.
package reconcile

import "sync"

// Entity is anything a View can track. Identity is the only requirement;
// ordering and filtering stay the caller's concern.
type Entity interface {
	EntityID() string
}

// Provenance records how an item entered the view.
type Provenance int

const (
	// ProvenanceUnknown is returned for items the view does not hold.
	ProvenanceUnknown Provenance = iota
	// ProvenanceAuthoritative marks items that came from a server page.
	ProvenanceAuthoritative
	// ProvenanceLiveInjected marks items inserted by a creation event that
	// no server page has confirmed yet.
	ProvenanceLiveInjected
)

type entry[T Entity] struct {
	value T
	prov  Provenance
}

// View is the reconciliation state machine. All operations are idempotent:
// applying the same event twice leaves the view unchanged.
type View[T Entity] struct {
	mu    sync.Mutex
	order []string
	byID  map[string]*entry[T]
}

// NewView returns an empty view.
func NewView[T Entity]() *View[T] {
	return &View[T]{
		byID: make(map[string]*entry[T]),
	}
}

// ApplyCreate inserts a newly created item at the head of the view, tagged
// live-injected. New content is shown even when it would not match the
// view's active filters. A no-op when the ID is already present.
func (v *View[T]) ApplyCreate(item T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := item.EntityID()
	if _, ok := v.byID[id]; ok {
		return
	}
	v.byID[id] = &entry[T]{value: item, prov: ProvenanceLiveInjected}
	v.order = append([]string{id}, v.order...)
}

// ApplyUpdate replaces the tracked item in place, preserving its position
// and provenance. Absent IDs are ignored: inserting on update would violate
// the view's sort order.
func (v *View[T]) ApplyUpdate(item T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if e, ok := v.byID[item.EntityID()]; ok {
		e.value = item
	}
}

// ApplyPatch mutates the tracked item in place via fn, for counter-style
// events that change a single field without refetching the entity. A no-op
// when the ID is absent.
func (v *View[T]) ApplyPatch(id string, fn func(*T)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if e, ok := v.byID[id]; ok {
		fn(&e.value)
	}
}

// ApplyDelete removes the item unconditionally, regardless of provenance or
// filter membership. A no-op when the ID is absent. A deleted live-injected
// item will not be resurrected by a later Refresh.
func (v *View[T]) ApplyDelete(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.byID[id]; !ok {
		return
	}
	delete(v.byID, id)
	v.order = removeID(v.order, id)
}

// Refresh replaces the view with an authoritative server page, then
// re-merges live-injected items the page did not contain back at the head,
// preserving their relative order and de-duplicating by ID. Live-injected
// items that do appear in the page are promoted to authoritative.
func (v *View[T]) Refresh(page []T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fresh := make(map[string]*entry[T], len(page))
	freshOrder := make([]string, 0, len(page))
	for _, item := range page {
		id := item.EntityID()
		if _, ok := fresh[id]; ok {
			continue // server page should not repeat IDs, dedupe anyway
		}
		fresh[id] = &entry[T]{value: item, prov: ProvenanceAuthoritative}
		freshOrder = append(freshOrder, id)
	}

	// Carry over still-untracked live-injected items, head-first in their
	// existing relative order.
	var carried []string
	for _, id := range v.order {
		e := v.byID[id]
		if e.prov != ProvenanceLiveInjected {
			continue
		}
		if _, ok := fresh[id]; ok {
			continue
		}
		fresh[id] = e
		carried = append(carried, id)
	}

	v.byID = fresh
	v.order = append(carried, freshOrder...)
}

// Items returns the view's contents in display order.
func (v *View[T]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()

	items := make([]T, 0, len(v.order))
	for _, id := range v.order {
		items = append(items, v.byID[id].value)
	}
	return items
}

// Len returns the number of tracked items.
func (v *View[T]) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.order)
}

// Provenance reports how the item with the given ID entered the view.
func (v *View[T]) Provenance(id string) Provenance {
	v.mu.Lock()
	defer v.mu.Unlock()

	if e, ok := v.byID[id]; ok {
		return e.prov
	}
	return ProvenanceUnknown
}

func removeID(order []string, id string) []string {
	for i, existing := range order {
		if existing == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
