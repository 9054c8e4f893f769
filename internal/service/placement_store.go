package service

import (
	"strconv"
	"sync"
	"time"

	"pdf-signer/internal/domain"
)

// PlacementStore owns the ordered placement list of one session. List order is
// z-order: index 0 is the front-most signature.
//
// Every method is total: an unknown id is a no-op reported through the bool result.
type PlacementStore struct {
	mu          sync.Mutex
	placements  []domain.Placement
	drags       map[string]dragState
	subscribers map[int]func([]domain.Placement)
	nextSubID   int
	lastID      int64
	version     uint64
	now         func() time.Time

	// notifyMu orders deliveries; delivered is the last version handed out.
	notifyMu  sync.Mutex
	delivered uint64
}

type dragState struct {
	origin domain.Position
	start  domain.Pointer
}

// NewPlacementStore creates an empty store.
func NewPlacementStore() *PlacementStore {
	return &PlacementStore{
		drags:       make(map[string]dragState),
		subscribers: make(map[int]func([]domain.Placement)),
		now:         time.Now,
	}
}

// Add appends p as the back-most entry. An empty id is replaced by a creation
// timestamp in milliseconds, bumped past the last issued id on collision.
func (s *PlacementStore) Add(p domain.Placement) domain.Placement {
	s.mu.Lock()
	if p.ID == "" || s.indexOf(p.ID) >= 0 {
		p.ID = s.newID()
	}
	p.Deleted = false
	s.placements = append(s.placements, p)
	version, snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(version, snap)
	return p
}

func (s *PlacementStore) newID() string {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// Get returns a copy of one placement.
func (s *PlacementStore) Get(id string) (domain.Placement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Placement{}, false
	}
	return s.placements[i], true
}

// Move merges a partial position/page update.
func (s *PlacementStore) Move(id string, u domain.MoveUpdate) (domain.Placement, bool) {
	return s.mutate(id, func(p *domain.Placement) {
		if u.X != nil {
			p.Position.X = *u.X
		}
		if u.Y != nil {
			p.Position.Y = *u.Y
		}
		if u.Page != nil {
			p.Page = *u.Page
		}
	})
}

// PlaceAt moves a placement so its box is centered on the pointer, on the given page.
func (s *PlacementStore) PlaceAt(id string, ptr domain.Pointer, rect domain.PageRect, scale float64, page int) (domain.Placement, bool) {
	return s.mutate(id, func(p *domain.Placement) {
		p.Position = ClickToPlace(ptr, rect, scale, p.Width, p.Height)
		p.Page = page
	})
}

// BeginDrag records the position a drag is measured from.
func (s *PlacementStore) BeginDrag(id string, ptr domain.Pointer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.drags[id] = dragState{origin: s.placements[i].Position, start: ptr}
	return true
}

// DragMove positions the placement at drag origin + total pointer delta. When page is
// set the placement moves to that page in the same update.
func (s *PlacementStore) DragMove(id string, ptr domain.Pointer, scale float64, page *int) (domain.Placement, bool) {
	s.mu.Lock()
	drag, active := s.drags[id]
	s.mu.Unlock()
	if !active {
		return domain.Placement{}, false
	}
	return s.mutate(id, func(p *domain.Placement) {
		p.Position = DragTo(drag.origin, drag.start, ptr, scale)
		if page != nil {
			p.Page = *page
		}
	})
}

// EndDrag forgets the drag origin.
func (s *PlacementStore) EndDrag(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.drags[id]
	delete(s.drags, id)
	return ok
}

// Delete removes a placement outright.
func (s *PlacementStore) Delete(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.placements = append(s.placements[:i], s.placements[i+1:]...)
	delete(s.drags, id)
	version, snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(version, snap)
	return true
}

// Reorder splices the placement to a new z-order slot. forward moves one step toward
// the front (index 0), backward one step toward the back; both stop at the ends.
func (s *PlacementStore) Reorder(id string, dir domain.ReorderDirection) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}

	item := s.placements[i]
	rest := make([]domain.Placement, 0, len(s.placements))
	rest = append(rest, s.placements[:i]...)
	rest = append(rest, s.placements[i+1:]...)

	var target int
	switch dir {
	case domain.ReorderFront:
		target = 0
	case domain.ReorderBack:
		target = len(rest)
	case domain.ReorderForward:
		target = max(0, i-1)
	case domain.ReorderBackward:
		target = min(len(rest), i+1)
	default:
		s.mu.Unlock()
		return false
	}

	if target == i {
		s.mu.Unlock()
		return true
	}

	next := make([]domain.Placement, 0, len(s.placements))
	next = append(next, rest[:target]...)
	next = append(next, item)
	next = append(next, rest[target:]...)
	s.placements = next
	version, snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(version, snap)
	return true
}

// Reset drops every placement, used when a new document replaces the old one.
func (s *PlacementStore) Reset() {
	s.mu.Lock()
	s.placements = nil
	s.drags = make(map[string]dragState)
	version, snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(version, snap)
}

// Snapshot returns a copy of the full list in z-order.
func (s *PlacementStore) Snapshot() []domain.Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Active returns the non-deleted placements in z-order.
func (s *PlacementStore) Active() []domain.Placement {
	all := s.Snapshot()
	active := all[:0]
	for _, p := range all {
		if !p.Deleted {
			active = append(active, p)
		}
	}
	return active
}

// Subscribe registers fn to receive a snapshot after every change. Snapshots arrive
// in change order; one superseded by a newer change before delivery is dropped. fn
// must not block or call back into the store. The returned function removes the
// subscription.
func (s *PlacementStore) Subscribe(fn func([]domain.Placement)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *PlacementStore) mutate(id string, fn func(p *domain.Placement)) (domain.Placement, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Placement{}, false
	}
	fn(&s.placements[i])
	updated := s.placements[i]
	version, snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(version, snap)
	return updated, true
}

func (s *PlacementStore) notify(version uint64, snap []domain.Placement) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version

	s.mu.Lock()
	subs := make([]func([]domain.Placement), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		cp := make([]domain.Placement, len(snap))
		copy(cp, snap)
		fn(cp)
	}
}

func (s *PlacementStore) indexOf(id string) int {
	for i := range s.placements {
		if s.placements[i].ID == id {
			return i
		}
	}
	return -1
}

// commitLocked stamps a change with the next version and snapshots the result.
func (s *PlacementStore) commitLocked() (uint64, []domain.Placement) {
	s.version++
	return s.version, s.snapshotLocked()
}

func (s *PlacementStore) snapshotLocked() []domain.Placement {
	out := make([]domain.Placement, len(s.placements))
	copy(out, s.placements)
	return out
}
