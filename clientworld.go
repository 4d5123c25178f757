package main

import "time"

// ClientWorld is the headless client-side reconciliation layer: it applies
// incoming field batches, keeps an estimate of the server clock, and owns
// the remote views for every entity the local client does not control.
// The locally owned entity lives in an OwnerSim and is not mirrored here.
type ClientWorld struct {
	Store *FieldStore

	Phase        *Field[Phase]
	Round        *Field[int]
	WinsA        *Field[int]
	WinsB        *Field[int]
	SuddenDeath  *Field[bool]
	RoundEndTime *Field[float64]
	PlayerCount  *Field[int]

	Remotes map[string]*RemoteEntity

	ownID string

	// Server clock estimate: server batch time + local elapsed since that
	// batch arrived
	lastBatchTime  float64
	lastBatchLocal time.Time
}

// NewClientWorld creates the view for a client whose own entity is ownID
func NewClientWorld(ownID string) *ClientWorld {
	store := NewFieldStore()
	w := &ClientWorld{
		Store:        store,
		Phase:        NewClientField(store, MatchScope, FieldPhase, PhaseWaiting),
		Round:        NewClientField(store, MatchScope, FieldRound, 0),
		WinsA:        NewClientField(store, MatchScope, FieldWinsA, 0),
		WinsB:        NewClientField(store, MatchScope, FieldWinsB, 0),
		SuddenDeath:  NewClientField(store, MatchScope, FieldSuddenDeath, false),
		RoundEndTime: NewClientField(store, MatchScope, FieldRoundEndTime, 0.0),
		PlayerCount:  NewClientField(store, MatchScope, FieldPlayerCount, 0),
		Remotes:      make(map[string]*RemoteEntity),
		ownID:        ownID,
	}
	return w
}

// Track registers a remote view for an entity id. The local client's own
// entity is never tracked; it is simulated, not interpolated.
func (w *ClientWorld) Track(id string) *RemoteEntity {
	if id == w.ownID {
		return nil
	}
	if r, ok := w.Remotes[id]; ok {
		return r
	}
	r := NewRemoteEntity(w.Store, id)
	w.Remotes[id] = r
	return r
}

// Drop removes an entity view (despawn)
func (w *ClientWorld) Drop(id string) {
	delete(w.Remotes, id)
	w.Store.Drop(id)
}

// ApplyFrame decodes one binary field batch and routes it. Remote views
// stamp their interpolation samples with the batch's server time.
func (w *ClientWorld) ApplyFrame(frame []byte) error {
	batch, err := DecodeBatch(frame)
	if err != nil {
		return err
	}
	for _, r := range w.Remotes {
		r.SetBatchTime(batch.Time)
	}
	w.Store.ApplyBatch(batch)
	w.lastBatchTime = batch.Time
	w.lastBatchLocal = time.Now()
	return nil
}

// ServerNow estimates the current server clock
func (w *ClientWorld) ServerNow() float64 {
	if w.lastBatchLocal.IsZero() {
		return 0
	}
	return w.lastBatchTime + time.Since(w.lastBatchLocal).Seconds()
}

// Render advances every remote view to the delayed render timestamp
func (w *ClientWorld) Render() {
	renderTime := w.ServerNow() - InterpDelay
	for _, r := range w.Remotes {
		r.Render(renderTime)
	}
}
