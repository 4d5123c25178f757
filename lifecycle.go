package main

import (
	"fmt"
	"log"
	"math"
)

// Phase is one state of the match lifecycle machine
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseCountdown
	PhaseFlyIn
	PhaseSpawnSelect
	PhasePlaying
	PhaseRoundEnd
	PhaseMatchEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseCountdown:
		return "countdown"
	case PhaseFlyIn:
		return "flyin"
	case PhaseSpawnSelect:
		return "spawnselect"
	case PhasePlaying:
		return "playing"
	case PhaseRoundEnd:
		return "roundend"
	case PhaseMatchEnd:
		return "matchend"
	}
	return "unknown"
}

// Team ids
const (
	TeamNone = 0
	TeamA    = 1
	TeamB    = 2
)

// MatchRules are the lifecycle knobs of one match
type MatchRules struct {
	CountdownSeconds int
	FlyInDuration    float64
	SpawnSelectTime  float64
	RoundTime        float64
	RoundEndDelay    float64
	GraceTime        float64
	WinsNeeded       int
	WinLead          int
	SuddenDeathWins  int
	MinPlayers       int
}

// DefaultMatchRules returns the standard ruleset
func DefaultMatchRules() MatchRules {
	return MatchRules{
		CountdownSeconds: 3,
		FlyInDuration:    6.0,
		SpawnSelectTime:  15.0,
		RoundTime:        90.0,
		RoundEndDelay:    5.0,
		GraceTime:        2.0,
		WinsNeeded:       5,
		WinLead:          2,
		SuddenDeathWins:  7,
		MinPlayers:       2,
	}
}

// ArenaLayout describes the spawn geometry of a scene
type ArenaLayout struct {
	TeamABounds Rect
	TeamBBounds Rect
	Reference   Vec3 // neutral point spawned entities face
}

// DefaultLayout returns the standard two-sided arena
func DefaultLayout() ArenaLayout {
	return ArenaLayout{
		TeamABounds: Rect{MinX: -90, MaxX: -60, MinZ: -50, MaxZ: 50},
		TeamBBounds: Rect{MinX: 60, MaxX: 90, MinZ: -50, MaxZ: 50},
	}
}

// TeamBounds returns the spawn region for a team
func (a ArenaLayout) TeamBounds(team int) Rect {
	if team == TeamB {
		return a.TeamBBounds
	}
	return a.TeamABounds
}

// MatchHost is the surface the lifecycle controller drives. Game implements
// it; tests substitute a mock.
type MatchHost interface {
	Broadcast(msg Envelope)
	Unicast(connID string, msg Envelope)
	SpawnEntity(connID string, pos Vec3, yaw float64, team int) *Entity
	Entity(connID string) *Entity
	Entities() []*Entity
	DespawnAll()
	SetInputPaused(paused bool)
	RecordMatchResult(winner int, score string)
}

// Lifecycle is the single server-owned state machine of one match. It is
// the sole writer of phase/score/round fields and the sole caller of
// freeze/teleport/despawn on entities. All methods run on the game tick
// goroutine; transitions are strictly sequential.
type Lifecycle struct {
	Rules  MatchRules
	Layout ArenaLayout

	Phase        *Field[Phase]
	Round        *Field[int]
	WinsA        *Field[int]
	WinsB        *Field[int]
	SuddenDeath  *Field[bool]
	RoundEndTime *Field[float64]
	PlayerCount  *Field[int]

	host    MatchHost
	terrain *Terrain
	repl    *Replicator

	roster    map[string]int // connection id -> team
	joinOrder int            // round-robin counter

	picks map[string]Vec3 // validated spawn selections for this round

	flyInDone bool

	// Phase-local timers. Every setPhase resets them, so a deadline from a
	// previous phase can never fire into the current one.
	deadline      float64
	countdownLeft int
	nextCountdown float64
	nextMonitor   float64
	graceUntil    float64
	pendingWinner int
}

// NewLifecycle creates a controller in the Waiting phase
func NewLifecycle(host MatchHost, terrain *Terrain, rules MatchRules, layout ArenaLayout) *Lifecycle {
	repl := NewReplicator(MatchScope)
	lc := &Lifecycle{
		Rules:        rules,
		Layout:       layout,
		Phase:        NewField(repl, FieldPhase, PhaseWaiting),
		Round:        NewField(repl, FieldRound, 0),
		WinsA:        NewField(repl, FieldWinsA, 0),
		WinsB:        NewField(repl, FieldWinsB, 0),
		SuddenDeath:  NewField(repl, FieldSuddenDeath, false),
		RoundEndTime: NewField(repl, FieldRoundEndTime, 0.0),
		PlayerCount:  NewField(repl, FieldPlayerCount, 0),
		host:         host,
		terrain:      terrain,
		repl:         repl,
		roster:       make(map[string]int),
		picks:        make(map[string]Vec3),
	}
	return lc
}

// Replicator exposes the match-scope replicator for the flush pass
func (lc *Lifecycle) Replicator() *Replicator {
	return lc.repl
}

// TeamOf returns the team a connection was assigned, or TeamNone
func (lc *Lifecycle) TeamOf(connID string) int {
	return lc.roster[connID]
}

// HandleJoin assigns a team round-robin in join order and arms the
// countdown when enough players are present
func (lc *Lifecycle) HandleJoin(connID string, now float64) int {
	team := TeamA
	if lc.joinOrder%2 == 1 {
		team = TeamB
	}
	lc.joinOrder++
	lc.roster[connID] = team
	lc.PlayerCount.Set(len(lc.roster))

	if lc.Phase.Get() == PhaseWaiting && len(lc.roster) >= lc.Rules.MinPlayers {
		lc.startCountdown(now)
	}
	return team
}

// HandleLeave drops the connection's team mapping. A later reconnect under
// a new id is assigned fresh; the stale mapping is gone. If the player
// count falls below the minimum before the match has ended, the match
// force-resets to Waiting and input is paused.
func (lc *Lifecycle) HandleLeave(connID string, now float64) {
	delete(lc.roster, connID)
	delete(lc.picks, connID)
	lc.PlayerCount.Set(len(lc.roster))

	if lc.Phase.Get() == PhaseMatchEnd || lc.Phase.Get() == PhaseWaiting {
		return
	}
	if len(lc.roster) < lc.Rules.MinPlayers {
		log.Printf("match: player count fell to %d, resetting to waiting", len(lc.roster))
		lc.host.DespawnAll()
		lc.host.SetInputPaused(true)
		lc.setPhase(PhaseWaiting)
	}
}

// HandlePick records a spawn selection. A point outside the picking
// client's own team bounds is rejected and does not count toward "all
// players chosen".
func (lc *Lifecycle) HandlePick(connID string, pt Vec3, now float64) {
	if lc.Phase.Get() != PhaseSpawnSelect {
		return
	}
	team, ok := lc.roster[connID]
	if !ok {
		return
	}
	if !lc.Layout.TeamBounds(team).Contains(pt) {
		log.Printf("match: pick outside team %d bounds from %s, ignored", team, connID)
		return
	}
	lc.picks[connID] = pt
	if lc.allPicked() {
		lc.beginRound(now)
	}
}

func (lc *Lifecycle) allPicked() bool {
	for id := range lc.roster {
		if _, ok := lc.picks[id]; !ok {
			return false
		}
	}
	return len(lc.roster) > 0
}

// Step advances phase-local timers. Called once per game tick with the
// server clock; suspension is cooperative — every wait re-checks its
// condition here, once per tick.
func (lc *Lifecycle) Step(now float64) {
	switch lc.Phase.Get() {
	case PhaseCountdown:
		lc.stepCountdown(now)
	case PhaseFlyIn:
		if now >= lc.deadline {
			// Sequence over: players leave the ship hidden, entities are
			// despawned ahead of spawn selection
			lc.host.DespawnAll()
			lc.startSpawnSelect(now)
		}
	case PhaseSpawnSelect:
		if now >= lc.deadline {
			lc.beginRound(now)
		}
	case PhasePlaying:
		lc.monitorRound(now)
	case PhaseRoundEnd:
		if now >= lc.deadline {
			lc.finishRoundEnd(now)
		}
	}
}

func (lc *Lifecycle) setPhase(p Phase) {
	lc.deadline = 0
	lc.nextCountdown = 0
	lc.nextMonitor = 0
	lc.Phase.Set(p)
	log.Printf("match: phase -> %s (round %d)", p, lc.Round.Get())
}

func (lc *Lifecycle) startCountdown(now float64) {
	lc.setPhase(PhaseCountdown)
	lc.countdownLeft = lc.Rules.CountdownSeconds
	lc.nextCountdown = now
	lc.host.SetInputPaused(false)
}

func (lc *Lifecycle) stepCountdown(now float64) {
	if now < lc.nextCountdown {
		return
	}
	if lc.countdownLeft > 0 {
		lc.host.Broadcast(Envelope{T: MsgCountdown, Data: CountdownMsg{Seconds: lc.countdownLeft}})
		lc.countdownLeft--
		lc.nextCountdown = now + 1.0
		return
	}
	// Zero-signal clears the display
	lc.host.Broadcast(Envelope{T: MsgCountdown, Data: CountdownMsg{Seconds: 0}})
	if !lc.flyInDone {
		lc.startFlyIn(now)
	} else {
		lc.startSpawnSelect(now)
	}
}

// startFlyIn plays the scripted intro once, before round 1 only: players
// are frozen and hidden while the sequence runs; the client reparents their
// visuals into it.
func (lc *Lifecycle) startFlyIn(now float64) {
	lc.setPhase(PhaseFlyIn)
	lc.flyInDone = true
	lc.deadline = now + lc.Rules.FlyInDuration
	for _, e := range lc.host.Entities() {
		e.SetFrozen(true)
		e.SetVisible(false)
	}
	lc.host.Broadcast(Envelope{T: MsgFlyIn, Data: FlyInMsg{Duration: lc.Rules.FlyInDuration}})
}

func (lc *Lifecycle) startSpawnSelect(now float64) {
	lc.setPhase(PhaseSpawnSelect)
	lc.deadline = now + lc.Rules.SpawnSelectTime
	lc.picks = make(map[string]Vec3)
	if lc.Round.Get() == 0 {
		lc.Round.Set(1)
	}
	// Each client sees only its own team's region
	for id, team := range lc.roster {
		lc.host.Unicast(id, Envelope{T: MsgSpawnSelect, Data: SpawnSelectMsg{
			Bounds:   lc.Layout.TeamBounds(team),
			Deadline: lc.Rules.SpawnSelectTime,
			Round:    lc.Round.Get(),
		}})
	}
}

// beginRound resolves spawns and moves to Playing
func (lc *Lifecycle) beginRound(now float64) {
	for id, team := range lc.roster {
		pt, ok := lc.picks[id]
		if !ok {
			// Deadline passed without a choice: random fallback inside the
			// team's region
			pt = lc.Layout.TeamBounds(team).RandomPoint()
		}
		pt = lc.terrain.SnapToGround(pt)
		yaw := yawToward(pt, lc.Layout.Reference)
		e := lc.host.SpawnEntity(id, pt, yaw, team)
		if e == nil {
			continue
		}
		e.ResetHealth()
		e.SetFrozen(false)
		e.SetVisible(true)
		// Broadcast, not unicast: peers need the id and team to start
		// tracking the remote entity
		lc.host.Broadcast(Envelope{T: MsgSpawned, Data: SpawnedMsg{ID: id, Team: team, Pos: pt, Yaw: yaw}})
	}
	lc.host.SetInputPaused(false)
	lc.setPhase(PhasePlaying)
	lc.RoundEndTime.Set(now + lc.Rules.RoundTime)
	lc.graceUntil = now + lc.Rules.GraceTime
	lc.nextMonitor = now
}

// monitorRound evaluates win conditions a few times per second
func (lc *Lifecycle) monitorRound(now float64) {
	if now < lc.graceUntil || now < lc.nextMonitor {
		return
	}
	lc.nextMonitor = now + 0.33

	aliveA, aliveB, healthA, healthB := lc.teamTotals()
	if aliveA == 0 && aliveB == 0 {
		// Neither team fielded a live entity yet; wait
		return
	}

	if aliveA == 0 && aliveB > 0 {
		lc.endRound(TeamB, true, now)
		return
	}
	if aliveB == 0 && aliveA > 0 {
		lc.endRound(TeamA, true, now)
		return
	}

	if now >= lc.RoundEndTime.Get() {
		switch {
		case healthA > healthB:
			lc.endRound(TeamA, false, now)
		case healthB > healthA:
			lc.endRound(TeamB, false, now)
		default:
			lc.endRound(TeamNone, false, now)
		}
	}
}

func (lc *Lifecycle) teamTotals() (aliveA, aliveB, healthA, healthB int) {
	for _, e := range lc.host.Entities() {
		hp := e.Health.Get()
		switch e.Team.Get() {
		case TeamA:
			healthA += hp
			if hp > 0 {
				aliveA++
			}
		case TeamB:
			healthB += hp
			if hp > 0 {
				aliveB++
			}
		}
	}
	return
}

func (lc *Lifecycle) endRound(winner int, elim bool, now float64) {
	if winner == TeamA {
		lc.WinsA.Set(lc.WinsA.Get() + 1)
	} else if winner == TeamB {
		lc.WinsB.Set(lc.WinsB.Get() + 1)
	}
	lc.pendingWinner = winner
	lc.setPhase(PhaseRoundEnd)
	lc.deadline = now + lc.Rules.RoundEndDelay
	lc.host.SetInputPaused(true)
	for _, e := range lc.host.Entities() {
		e.SetFrozen(true)
	}
	lc.host.Broadcast(Envelope{T: MsgRoundResult, Data: RoundResultMsg{
		Round:  lc.Round.Get(),
		Winner: winner,
		WinsA:  lc.WinsA.Get(),
		WinsB:  lc.WinsB.Get(),
		Elim:   elim,
	}})
}

// finishRoundEnd decides between the next round and match end
func (lc *Lifecycle) finishRoundEnd(now float64) {
	winsA, winsB := lc.WinsA.Get(), lc.WinsB.Get()

	if lc.SuddenDeath.Get() && lc.pendingWinner != TeamNone {
		lc.endMatch(lc.pendingWinner)
		return
	}
	if winsA >= lc.Rules.WinsNeeded && winsA-winsB >= lc.Rules.WinLead {
		lc.endMatch(TeamA)
		return
	}
	if winsB >= lc.Rules.WinsNeeded && winsB-winsA >= lc.Rules.WinLead {
		lc.endMatch(TeamB)
		return
	}
	if winsA >= lc.Rules.SuddenDeathWins && winsB >= lc.Rules.SuddenDeathWins && !lc.SuddenDeath.Get() {
		lc.SuddenDeath.Set(true)
	}

	lc.host.DespawnAll()
	lc.Round.Set(lc.Round.Get() + 1)
	lc.startSpawnSelect(now)
}

func (lc *Lifecycle) endMatch(winner int) {
	lc.setPhase(PhaseMatchEnd)
	score := fmt.Sprintf("%d - %d", lc.WinsA.Get(), lc.WinsB.Get())
	lc.host.Broadcast(Envelope{T: MsgMatchEnd, Data: MatchEndMsg{Winner: winner, Score: score}})
	lc.host.RecordMatchResult(winner, score)
	log.Printf("match: ended, winner team %d, score %s", winner, score)
}

// yawToward returns the yaw at from facing to
func yawToward(from, to Vec3) float64 {
	d := to.Sub(from)
	if d.Horizontal().Len() < 1e-6 {
		return 0
	}
	return NormalizeAngle(math.Atan2(d.X, d.Z))
}
