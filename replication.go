package main

import (
	"fmt"
	"log"

	"github.com/vmihailenco/msgpack/v5"
)

// FieldName identifies one replicated value within a scope
type FieldName uint8

const (
	FieldPos FieldName = iota + 1
	FieldYaw
	FieldVel
	FieldDashing
	FieldFrozen
	FieldVisible
	FieldHealth
	FieldTeam
	FieldPhase
	FieldRound
	FieldWinsA
	FieldWinsB
	FieldSuddenDeath
	FieldRoundEndTime
	FieldPlayerCount
)

// MatchScope is the scope key for match-level fields (entity fields use the
// entity's connection id)
const MatchScope = ""

// FieldUpdate is one replicated write on the wire. Val is the msgpack
// encoding of the field's value.
type FieldUpdate struct {
	Scope string    `msgpack:"s"`
	Name  FieldName `msgpack:"n"`
	Seq   uint32    `msgpack:"q"`
	Val   []byte    `msgpack:"v"`
}

// FieldBatch is the binary frame broadcast after each server tick that
// changed replicated state. Time is the server clock in seconds and doubles
// as the timestamp for remote interpolation samples.
type FieldBatch struct {
	Time    float64       `msgpack:"t"`
	Updates []FieldUpdate `msgpack:"u"`
}

type dirtyField interface {
	encodeUpdate() (FieldUpdate, error)
}

// Replicator collects dirty fields for one scope on the server. All access
// is confined to the owning game loop; no locking.
type Replicator struct {
	scope  string
	fields []dirtyField
	dirty  []dirtyField
	seen   map[FieldName]bool
}

// NewReplicator creates a replicator for the given scope
func NewReplicator(scope string) *Replicator {
	return &Replicator{scope: scope, seen: make(map[FieldName]bool)}
}

// register adds a freshly created field and marks it dirty, so a field's
// initial value rides the next flush like any other write. Without this a
// value that is never Set after creation would stay invisible to clients.
func (r *Replicator) register(name FieldName, f dirtyField) {
	r.fields = append(r.fields, f)
	r.mark(name, f)
}

func (r *Replicator) mark(name FieldName, f dirtyField) {
	if r == nil || r.seen[name] {
		return
	}
	r.seen[name] = true
	r.dirty = append(r.dirty, f)
}

// Collect appends encoded updates for all dirty fields and clears the dirty
// set. Updates carry the latest value and sequence number; intermediate
// writes within one tick are coalesced, which preserves the per-field
// ordering contract (the last write wins and seq never decreases).
func (r *Replicator) Collect(updates []FieldUpdate) []FieldUpdate {
	for _, f := range r.dirty {
		u, err := f.encodeUpdate()
		if err != nil {
			log.Printf("replication: encode field: %v", err)
			continue
		}
		updates = append(updates, u)
	}
	r.dirty = r.dirty[:0]
	for k := range r.seen {
		delete(r.seen, k)
	}
	return updates
}

// Snapshot appends an encoded update for every field of the scope at its
// current value, leaving the dirty set untouched. Used to bring a newly
// connected client up to date without waiting for the next write.
func (r *Replicator) Snapshot(updates []FieldUpdate) []FieldUpdate {
	for _, f := range r.fields {
		u, err := f.encodeUpdate()
		if err != nil {
			log.Printf("replication: encode field: %v", err)
			continue
		}
		updates = append(updates, u)
	}
	return updates
}

// Field is a server-owned replicated value. On the server it is created
// with a Replicator and mutated only through Set; on the client it is
// registered in a FieldStore and mutated only by incoming updates. Either
// way, OnChange observers fire with (old, new) on every applied write.
type Field[T any] struct {
	repl     *Replicator
	name     FieldName
	seq      uint32
	val      T
	watchers []func(old, new T)
}

// NewField creates a server-side field owned by repl. The initial value is
// replicated on the next flush.
func NewField[T any](repl *Replicator, name FieldName, initial T) *Field[T] {
	f := &Field[T]{repl: repl, name: name, val: initial}
	if repl != nil {
		repl.register(name, f)
	}
	return f
}

// NewClientField creates a client-side field and registers it in the store
func NewClientField[T any](store *FieldStore, scope string, name FieldName, initial T) *Field[T] {
	f := &Field[T]{name: name, val: initial}
	store.register(scope, name, f)
	return f
}

// Get returns the current value
func (f *Field[T]) Get() T {
	return f.val
}

// Set writes a new value. Server-only: it bumps the sequence number, marks
// the field dirty for the next flush, and fires local observers.
func (f *Field[T]) Set(v T) {
	old := f.val
	f.val = v
	f.seq++
	if f.repl != nil {
		f.repl.mark(f.name, f)
	}
	for _, w := range f.watchers {
		w(old, v)
	}
}

// OnChange registers an observer called with (old, new) after every write
func (f *Field[T]) OnChange(fn func(old, new T)) {
	f.watchers = append(f.watchers, fn)
}

func (f *Field[T]) encodeUpdate() (FieldUpdate, error) {
	raw, err := msgpack.Marshal(f.val)
	if err != nil {
		return FieldUpdate{}, err
	}
	return FieldUpdate{Scope: f.repl.scope, Name: f.name, Seq: f.seq, Val: raw}, nil
}

// apply decodes an incoming update into the field. Updates arriving with a
// stale sequence number are dropped, so per-field write order is preserved
// even if frames are replayed.
func (f *Field[T]) apply(seq uint32, raw []byte) error {
	if seq <= f.seq && f.seq != 0 {
		return nil
	}
	var v T
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		return err
	}
	old := f.val
	f.val = v
	f.seq = seq
	for _, w := range f.watchers {
		w(old, v)
	}
	return nil
}

type fieldApplier interface {
	apply(seq uint32, raw []byte) error
}

// FieldStore is the client-side registry of replicated fields, keyed by
// (scope, name). Unknown scopes or names are ignored: a client may receive
// updates for entities it has not registered yet.
type FieldStore struct {
	fields map[string]map[FieldName]fieldApplier
}

// NewFieldStore creates an empty store
func NewFieldStore() *FieldStore {
	return &FieldStore{fields: make(map[string]map[FieldName]fieldApplier)}
}

func (s *FieldStore) register(scope string, name FieldName, f fieldApplier) {
	m, ok := s.fields[scope]
	if !ok {
		m = make(map[FieldName]fieldApplier)
		s.fields[scope] = m
	}
	m[name] = f
}

// Drop removes all fields for a scope (entity despawned)
func (s *FieldStore) Drop(scope string) {
	delete(s.fields, scope)
}

// ApplyBatch routes each update of a decoded batch to its field
func (s *FieldStore) ApplyBatch(batch FieldBatch) {
	for _, u := range batch.Updates {
		m, ok := s.fields[u.Scope]
		if !ok {
			continue
		}
		f, ok := m[u.Name]
		if !ok {
			continue
		}
		if err := f.apply(u.Seq, u.Val); err != nil {
			log.Printf("replication: apply field %d/%q: %v", u.Name, u.Scope, err)
		}
	}
}

// EncodeBatch marshals a batch for the wire
func EncodeBatch(b FieldBatch) ([]byte, error) {
	return msgpack.Marshal(b)
}

// DecodeBatch unmarshals a binary frame
func DecodeBatch(frame []byte) (FieldBatch, error) {
	var batch FieldBatch
	if err := msgpack.Unmarshal(frame, &batch); err != nil {
		return batch, fmt.Errorf("decode field batch: %w", err)
	}
	return batch, nil
}
