package main

import (
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestCollectCoalescesWrites(t *testing.T) {
	repl := NewReplicator("e1")
	f := NewField(repl, FieldHealth, 100)

	f.Set(90)
	f.Set(80)

	updates := repl.Collect(nil)
	if len(updates) != 1 {
		t.Fatalf("expected 1 coalesced update, got %d", len(updates))
	}
	u := updates[0]
	if u.Scope != "e1" || u.Name != FieldHealth {
		t.Errorf("unexpected update key %q/%d", u.Scope, u.Name)
	}
	if u.Seq != 2 {
		t.Errorf("expected seq 2 after two writes, got %d", u.Seq)
	}
	var v int
	if err := msgpack.Unmarshal(u.Val, &v); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if v != 80 {
		t.Errorf("expected latest value 80, got %d", v)
	}

	if got := repl.Collect(nil); len(got) != 0 {
		t.Errorf("second collect should be empty, got %d updates", len(got))
	}
}

func TestCollectAfterNewWrite(t *testing.T) {
	repl := NewReplicator("e1")
	f := NewField(repl, FieldHealth, 100)

	f.Set(90)
	repl.Collect(nil)
	f.Set(70)

	updates := repl.Collect(nil)
	if len(updates) != 1 || updates[0].Seq != 2 {
		t.Fatalf("expected one update at seq 2, got %+v", updates)
	}
}

func mustEncode(t *testing.T, v interface{}) []byte {
	t.Helper()
	raw, err := msgpack.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestApplyDropsStaleSeq(t *testing.T) {
	store := NewFieldStore()
	f := NewClientField(store, "e1", FieldHealth, 100)

	apply := func(seq uint32, v int) {
		store.ApplyBatch(FieldBatch{Updates: []FieldUpdate{
			{Scope: "e1", Name: FieldHealth, Seq: seq, Val: mustEncode(t, v)},
		}})
	}

	apply(2, 80)
	if f.Get() != 80 {
		t.Fatalf("expected 80 after seq 2, got %d", f.Get())
	}
	apply(2, 60) // replayed frame
	if f.Get() != 80 {
		t.Errorf("replayed seq must be dropped, got %d", f.Get())
	}
	apply(1, 90) // reordered older write
	if f.Get() != 80 {
		t.Errorf("stale seq must be dropped, got %d", f.Get())
	}
	apply(3, 40)
	if f.Get() != 40 {
		t.Errorf("newer seq should apply, got %d", f.Get())
	}
}

func TestApplyIgnoresUnknownScope(t *testing.T) {
	store := NewFieldStore()
	f := NewClientField(store, "e1", FieldHealth, 100)

	store.ApplyBatch(FieldBatch{Updates: []FieldUpdate{
		{Scope: "ghost", Name: FieldHealth, Seq: 1, Val: mustEncode(t, 5)},
		{Scope: "e1", Name: FieldVel, Seq: 1, Val: mustEncode(t, Vec3{})},
	}})
	if f.Get() != 100 {
		t.Errorf("unrelated updates must not touch the field, got %d", f.Get())
	}
}

func TestOnChangeObserver(t *testing.T) {
	store := NewFieldStore()
	f := NewClientField(store, "e1", FieldHealth, 100)

	var gotOld, gotNew int
	f.OnChange(func(old, new int) {
		gotOld, gotNew = old, new
	})

	store.ApplyBatch(FieldBatch{Updates: []FieldUpdate{
		{Scope: "e1", Name: FieldHealth, Seq: 1, Val: mustEncode(t, 55)},
	}})
	if gotOld != 100 || gotNew != 55 {
		t.Errorf("expected observer (100, 55), got (%d, %d)", gotOld, gotNew)
	}
}

func TestDropUnregistersScope(t *testing.T) {
	store := NewFieldStore()
	f := NewClientField(store, "e1", FieldHealth, 100)
	store.Drop("e1")

	store.ApplyBatch(FieldBatch{Updates: []FieldUpdate{
		{Scope: "e1", Name: FieldHealth, Seq: 1, Val: mustEncode(t, 5)},
	}})
	if f.Get() != 100 {
		t.Errorf("dropped scope must not receive updates, got %d", f.Get())
	}
}

func TestBatchRoundTrip(t *testing.T) {
	repl := NewReplicator("e1")
	pos := NewField(repl, FieldPos, Vec3{})
	pos.Set(Vec3{X: 1, Y: 2, Z: 3})

	frame, err := EncodeBatch(FieldBatch{Time: 4.5, Updates: repl.Collect(nil)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	batch, err := DecodeBatch(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if batch.Time != 4.5 || len(batch.Updates) != 1 {
		t.Fatalf("unexpected batch %+v", batch)
	}

	store := NewFieldStore()
	mirror := NewClientField(store, "e1", FieldPos, Vec3{})
	store.ApplyBatch(batch)
	if mirror.Get() != (Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("expected mirrored position, got %+v", mirror.Get())
	}
}
