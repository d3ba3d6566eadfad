// Package boardstore is the in-memory board object store (spec §4.B): a
// registry of per-board state, keyed by board id, that is authoritative for
// reads while a board is resident. Persisted storage only catches up
// asynchronously through the persistence worker; the store itself never
// talks to storage.
package boardstore

import (
	"sync"
	"time"

	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardmodel"
)

// dragStaleAfter is the minimum age at which a drag shadow is considered
// stale and eligible for pruning (spec §4.B, §4.E: "≥1.5 s").
const dragStaleAfter = 1500 * time.Millisecond

// Patch is a partial update applied to an object by Update. Nil fields are
// left unchanged (spec §4.E "Partial patches leave unmentioned fields
// unchanged").
type Patch struct {
	X        *float64
	Y        *float64
	Width    *float64
	Height   *float64
	Rotation *float64
	ZIndex   *int
	GroupID  *string
	Props    map[string]any
}

// BoardState is the resident, in-memory state for one board: its objects,
// dirty set, pending deletions, and ephemeral drag shadows. All access goes
// through its own mutex; the Store's lock only ever guards the registry map.
type BoardState struct {
	mu sync.Mutex

	boardID string
	objects map[string]*boardmodel.Object
	dirty   map[string]struct{}
	deleted map[string]struct{}
	drags   map[string]dragEntry
}

type dragEntry struct {
	data boardmodel.Object // synthetic object carrying the transform hint
	at   time.Time
}

func newBoardState(boardID string) *BoardState {
	return &BoardState{
		boardID: boardID,
		objects: make(map[string]*boardmodel.Object),
		dirty:   make(map[string]struct{}),
		deleted: make(map[string]struct{}),
		drags:   make(map[string]dragEntry),
	}
}

// GetObject returns a clone of the object, or (nil, false) if absent.
func (b *BoardState) GetObject(id string) (*boardmodel.Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[id]
	if !ok {
		return nil, false
	}
	return obj.Clone(), true
}

// List returns clones of every resident object, in no particular order.
func (b *BoardState) List() []*boardmodel.Object {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*boardmodel.Object, 0, len(b.objects))
	for _, obj := range b.objects {
		out = append(out, obj.Clone())
	}
	return out
}

// Contains reports whether id is resident.
func (b *BoardState) Contains(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[id]
	return ok
}

// Insert places obj into the store, replacing any existing object with the
// same id, and marks it dirty.
func (b *BoardState) Insert(obj *boardmodel.Object) {
	b.mu.Lock()
	defer b.mu.Unlock()
	clone := obj.Clone()
	b.objects[clone.ID] = clone
	b.dirty[clone.ID] = struct{}{}
}

// Update applies patch to the object identified by id, gated on
// observedVersion (spec §4.E). If observedVersion is less than the
// authoritative version, the update is rejected with E_STALE_UPDATE
// carrying the current server object as Extra["object"]. Otherwise the
// patch is applied, the version is bumped, and the object is marked dirty.
func (b *BoardState) Update(id string, patch Patch, observedVersion int64) (*boardmodel.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	obj, ok := b.objects[id]
	if !ok {
		return nil, boarderrors.New(boarderrors.CodeObjectNotFound, "object not found: "+id)
	}
	if observedVersion < obj.Version {
		return nil, boarderrors.New(boarderrors.CodeStaleUpdate, "object has been modified since last observed version").
			WithExtra(map[string]any{"object": obj.Clone()})
	}

	if patch.X != nil {
		obj.X = *patch.X
	}
	if patch.Y != nil {
		obj.Y = *patch.Y
	}
	if patch.Width != nil {
		obj.Width = patch.Width
	}
	if patch.Height != nil {
		obj.Height = patch.Height
	}
	if patch.Rotation != nil {
		obj.Rotation = *patch.Rotation
	}
	if patch.ZIndex != nil {
		obj.ZIndex = *patch.ZIndex
	}
	if patch.GroupID != nil {
		obj.GroupID = patch.GroupID
	}
	if patch.Props != nil {
		obj.Props = patch.Props
	}
	obj.Version = obj.Version + 1
	b.dirty[id] = struct{}{}
	return obj.Clone(), nil
}

// Delete removes id from the store and marks it for durable removal.
func (b *BoardState) Delete(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[id]; !ok {
		return false
	}
	delete(b.objects, id)
	delete(b.dirty, id)
	delete(b.drags, id)
	b.deleted[id] = struct{}{}
	return true
}

// DrainDirty atomically clears and returns the dirty id set and the pending
// deletion id set, along with clones of the still-resident dirty objects
// (spec §4.I step 1: "Atomically drain every board's dirty set ... collect
// the referenced objects by cloning from the store").
func (b *BoardState) DrainDirty() (objects []*boardmodel.Object, deletedIDs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	objects = make([]*boardmodel.Object, 0, len(b.dirty))
	for id := range b.dirty {
		if obj, ok := b.objects[id]; ok {
			objects = append(objects, obj.Clone())
		}
	}
	b.dirty = make(map[string]struct{})

	deletedIDs = make([]string, 0, len(b.deleted))
	for id := range b.deleted {
		deletedIDs = append(deletedIDs, id)
	}
	b.deleted = make(map[string]struct{})
	return objects, deletedIDs
}

// HasDirty reports whether there is anything pending a flush, used by
// lifecycle eviction to decide whether a final flush is needed.
func (b *BoardState) HasDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.dirty) > 0 || len(b.deleted) > 0
}

// SetDragShadow records an ephemeral transform hint for id, never applied
// to the authoritative object (spec §4.E "Drag (ephemeral)").
func (b *BoardState) SetDragShadow(id string, hint boardmodel.Object) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drags[id] = dragEntry{data: hint, at: time.Now()}
}

// ClearDragShadow removes a drag shadow outright (e.g. on object:drag:end).
func (b *BoardState) ClearDragShadow(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.drags, id)
}

// DragShadows returns the currently live (non-stale) drag shadows, pruning
// anything older than dragStaleAfter as a side effect.
func (b *BoardState) DragShadows() map[string]boardmodel.Object {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	out := make(map[string]boardmodel.Object, len(b.drags))
	for id, entry := range b.drags {
		if now.Sub(entry.at) >= dragStaleAfter {
			delete(b.drags, id)
			continue
		}
		out[id] = entry.data
	}
	return out
}

// LoadAll replaces the resident object set wholesale, used by board
// lifecycle hydration when a board is first joined (spec §4.H "Hydrate").
// Loaded objects are not marked dirty: they already match storage.
func (b *BoardState) LoadAll(objects []*boardmodel.Object) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects = make(map[string]*boardmodel.Object, len(objects))
	for _, obj := range objects {
		b.objects[obj.ID] = obj.Clone()
	}
}

// Store is the registry of resident board states, guarded by a
// readers-writer lock over the map itself; per-board work happens after
// the map lookup releases the registry lock (spec §5 "Shared-resource
// policy").
type Store struct {
	mu     sync.RWMutex
	boards map[string]*BoardState
}

// New returns an empty store.
func New() *Store {
	return &Store{boards: make(map[string]*BoardState)}
}

// Get returns the resident board state, or (nil, false) if not hydrated.
func (s *Store) Get(boardID string) (*BoardState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bs, ok := s.boards[boardID]
	return bs, ok
}

// GetOrCreate returns the resident board state for boardID, creating an
// empty one if this is the first touch. Callers that need a freshly
// hydrated board (loaded from storage) should follow up with LoadAll.
func (s *Store) GetOrCreate(boardID string) (*BoardState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bs, existed := s.boards[boardID]
	if !existed {
		bs = newBoardState(boardID)
		s.boards[boardID] = bs
	}
	return bs, existed
}

// Evict drops the board state from residency (spec §4.H "evict"). Callers
// are responsible for flushing dirty state beforehand.
func (s *Store) Evict(boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.boards, boardID)
}

// ResidentBoardIDs returns the ids of every currently hydrated board, used
// by the persistence worker to fan out DrainDirty across all boards.
func (s *Store) ResidentBoardIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.boards))
	for id := range s.boards {
		ids = append(ids, id)
	}
	return ids
}
