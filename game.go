package main

import (
	"log"
	"sync"
	"time"
)

const (
	TickRate     = 60 // simulation ticks per second
	TickDuration = time.Second / TickRate

	maxHitAmount = 50 // cap on a single owner-reported hit
)

// Broadcaster is the sending side of one connected client
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// playerSlot is a connection that joined the match, whether or not its
// entity is currently spawned
type playerSlot struct {
	Name   string
	Team   int
	Client Broadcaster
}

// Game hosts one match session: the entity set, the lifecycle controller,
// and the replication flush. The tick loop is the single writer of all
// replicated state.
type Game struct {
	mu        sync.RWMutex
	players   map[string]*playerSlot
	entities  map[string]*Entity
	lifecycle *Lifecycle
	terrain   *Terrain

	maxPlayers  int
	inputPaused bool
	tick        uint64
	epoch       time.Time
	running     bool
	stop        chan struct{}

	db *DB
}

// NewGame creates a match session for the given scene
func NewGame(scene string, maxPlayers int, rules MatchRules, db *DB) *Game {
	g := &Game{
		players:    make(map[string]*playerSlot),
		entities:   make(map[string]*Entity),
		terrain:    NewTerrain(scene),
		maxPlayers: maxPlayers,
		epoch:      time.Now(),
		stop:       make(chan struct{}),
		db:         db,
	}
	g.lifecycle = NewLifecycle(g, g.terrain, rules, DefaultLayout())
	return g
}

// Now returns the server clock in seconds since the session started
func (g *Game) Now() float64 {
	return time.Since(g.epoch).Seconds()
}

// Run starts the fixed-rate tick loop
func (g *Game) Run() {
	g.mu.Lock()
	g.running = true
	g.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the tick loop
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		g.running = false
		close(g.stop)
	}
}

// update runs one tick: lifecycle timers, then replication flush
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	now := g.Now()
	g.lifecycle.Step(now)
	g.flushFields(now)
}

// flushFields broadcasts one binary batch with every field written this
// tick. Per-field ordering rides on sequence numbers; fields changed in
// the same tick share a frame with no cross-field order promised.
func (g *Game) flushFields(now float64) {
	updates := g.lifecycle.Replicator().Collect(nil)
	for _, e := range g.entities {
		updates = e.repl.Collect(updates)
	}
	if len(updates) == 0 {
		return
	}
	frame, err := EncodeBatch(FieldBatch{Time: now, Updates: updates})
	if err != nil {
		log.Printf("game: encode batch: %v", err)
		return
	}
	for _, p := range g.players {
		if p.Client != nil {
			p.Client.SendBinary(frame)
		}
	}
}

// AddPlayer admits a connection to the match. Returns the assigned team,
// or false when the session is full.
func (g *Game) AddPlayer(connID, name string, client Broadcaster) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.players) >= g.maxPlayers {
		return TeamNone, false
	}
	team := g.lifecycle.HandleJoin(connID, g.Now())
	g.players[connID] = &playerSlot{Name: name, Team: team, Client: client}
	g.sendSnapshot(client)
	return team, true
}

// sendSnapshot sends the full replicated state to one freshly joined
// client, so it does not wait for fields to change before seeing the
// current phase, score, and live entities
func (g *Game) sendSnapshot(client Broadcaster) {
	if client == nil {
		return
	}
	updates := g.lifecycle.Replicator().Snapshot(nil)
	for _, e := range g.entities {
		updates = e.repl.Snapshot(updates)
	}
	frame, err := EncodeBatch(FieldBatch{Time: g.Now(), Updates: updates})
	if err != nil {
		log.Printf("game: encode snapshot: %v", err)
		return
	}
	client.SendBinary(frame)
}

// RemovePlayer drops a connection, despawning its entity if present
func (g *Game) RemovePlayer(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.entities[connID]; ok {
		delete(g.entities, connID)
		g.broadcastDespawn(e.ID)
	}
	delete(g.players, connID)
	g.lifecycle.HandleLeave(connID, g.Now())
}

// PlayerCount returns the number of joined connections
func (g *Game) PlayerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.players)
}

// Phase returns the current lifecycle phase
func (g *Game) Phase() Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lifecycle.Phase.Get()
}

// HandleMove applies an owner-reported movement update. Reports are
// dropped while input is paused or when the entity does not exist.
func (g *Game) HandleMove(connID string, m MoveMsg) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inputPaused {
		return
	}
	e, ok := g.entities[connID]
	if !ok {
		return
	}
	e.ApplyMove(m)
}

// HandleHit applies owner-reported damage through the clamped health
// entry point
func (g *Game) HandleHit(attackerID string, m HitMsg) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inputPaused || g.lifecycle.Phase.Get() != PhasePlaying {
		return
	}
	attacker, ok := g.entities[attackerID]
	if !ok || !attacker.Alive() {
		return
	}
	target, ok := g.entities[m.TargetID]
	if !ok || m.TargetID == attackerID {
		return
	}
	if attacker.Team.Get() == target.Team.Get() {
		return
	}
	amount := ClampInt(m.Amount, 0, maxHitAmount)
	target.AdjustHealth(-amount)
}

// HandlePick forwards a spawn selection to the lifecycle controller
func (g *Game) HandlePick(connID string, m PickMsg) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lifecycle.HandlePick(connID, m.Point, g.Now())
}

// ---- MatchHost ----
// These run inside the tick (or under the caller's lock via the handlers
// above); they must not retake g.mu.

// Broadcast sends a JSON envelope to every joined client
func (g *Game) Broadcast(msg Envelope) {
	for _, p := range g.players {
		if p.Client != nil {
			p.Client.SendJSON(msg)
		}
	}
}

// Unicast sends a JSON envelope to one client
func (g *Game) Unicast(connID string, msg Envelope) {
	if p, ok := g.players[connID]; ok && p.Client != nil {
		p.Client.SendJSON(msg)
	}
}

// SpawnEntity instantiates a fresh entity for a connection
func (g *Game) SpawnEntity(connID string, pos Vec3, yaw float64, team int) *Entity {
	p, ok := g.players[connID]
	if !ok {
		// Connection vanished between pick and spawn: skip, don't fail
		return nil
	}
	e := NewEntity(connID, p.Name, team, pos, yaw)
	g.entities[connID] = e
	return e
}

// Entity returns a spawned entity, or nil
func (g *Game) Entity(connID string) *Entity {
	return g.entities[connID]
}

// Entities returns all spawned entities
func (g *Game) Entities() []*Entity {
	out := make([]*Entity, 0, len(g.entities))
	for _, e := range g.entities {
		out = append(out, e)
	}
	return out
}

// DespawnAll destroys every entity and tells clients to drop their views
func (g *Game) DespawnAll() {
	for id := range g.entities {
		g.broadcastDespawn(id)
	}
	g.entities = make(map[string]*Entity)
}

func (g *Game) broadcastDespawn(id string) {
	g.Broadcast(Envelope{T: MsgDespawn, Data: map[string]string{"id": id}})
}

// SetInputPaused gates owner move/hit reports
func (g *Game) SetInputPaused(paused bool) {
	g.inputPaused = paused
}

// RecordMatchResult persists the final outcome
func (g *Game) RecordMatchResult(winner int, score string) {
	if g.db == nil {
		return
	}
	if _, err := g.db.RecordMatch(winner, score, g.Now()); err != nil {
		log.Printf("game: record match: %v", err)
	}
}
