package main

// PlayerMaxHealth is the health every entity spawns with; the clamp upper bound
const PlayerMaxHealth = 100

// Entity is a server-tracked simulated actor. The connecting client owns
// its input; the server exclusively owns the replicated fields and is
// their only writer.
type Entity struct {
	ID   string // connection id of the owner
	Name string

	Pos     *Field[Vec3]
	Yaw     *Field[float64]
	Vel     *Field[Vec3]
	Dashing *Field[bool]
	Frozen  *Field[bool]
	Visible *Field[bool]
	Health  *Field[int]
	Team    *Field[int]

	repl *Replicator
}

// NewEntity instantiates a server-side entity for a connection
func NewEntity(id, name string, team int, pos Vec3, yaw float64) *Entity {
	repl := NewReplicator(id)
	e := &Entity{
		ID:      id,
		Name:    name,
		Pos:     NewField(repl, FieldPos, pos),
		Yaw:     NewField(repl, FieldYaw, yaw),
		Vel:     NewField(repl, FieldVel, Vec3{}),
		Dashing: NewField(repl, FieldDashing, false),
		Frozen:  NewField(repl, FieldFrozen, false),
		Visible: NewField(repl, FieldVisible, true),
		Health:  NewField(repl, FieldHealth, PlayerMaxHealth),
		Team:    NewField(repl, FieldTeam, team),
		repl:    repl,
	}
	return e
}

// Alive reports whether the entity has health left
func (e *Entity) Alive() bool {
	return e.Health.Get() > 0
}

// ApplyMove writes an owner-reported movement update into the replicated
// fields. The report is trusted without re-simulation; a frozen entity's
// reports are dropped so stale client state cannot thaw it.
func (e *Entity) ApplyMove(m MoveMsg) {
	if e.Frozen.Get() {
		return
	}
	e.Pos.Set(m.Pos)
	e.Yaw.Set(m.Yaw)
	e.Vel.Set(m.Vel)
	if e.Dashing.Get() != m.Dashing {
		e.Dashing.Set(m.Dashing)
	}
}

// AdjustHealth is the single server-only health mutation point. The result
// is clamped into [0, PlayerMaxHealth] for any delta.
func (e *Entity) AdjustHealth(delta int) {
	e.Health.Set(ClampInt(e.Health.Get()+delta, 0, PlayerMaxHealth))
}

// ResetHealth restores full health (round spawn)
func (e *Entity) ResetHealth() {
	e.Health.Set(PlayerMaxHealth)
}

// SetFrozen toggles physics participation. Freezing zeroes velocity and
// replicates the flag so remote proxies mirror the same kinematic,
// non-colliding state.
func (e *Entity) SetFrozen(frozen bool) {
	if e.Frozen.Get() == frozen {
		return
	}
	if frozen {
		e.Vel.Set(Vec3{})
	}
	e.Frozen.Set(frozen)
}

// SetVisible toggles rendering only; physics and colliders are unaffected,
// so an entity can keep simulating while hidden
func (e *Entity) SetVisible(visible bool) {
	if e.Visible.Get() != visible {
		e.Visible.Set(visible)
	}
}

// Teleport places the entity server-side (spawn resolution)
func (e *Entity) Teleport(pos Vec3, yaw float64) {
	e.Pos.Set(pos)
	e.Yaw.Set(yaw)
	e.Vel.Set(Vec3{})
}
