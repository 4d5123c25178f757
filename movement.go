package main

import "math"

// Movement tuning. The server hands MovementRules to owners at join time;
// the values here are the host defaults.
const (
	BaseSpeed        = 6.0  // m/s
	SprintMultiplier = 1.6
	TurnSpeed        = 10.0 // radians/s max yaw rate
	StaminaMax       = 100.0
	StaminaDrain     = 25.0 // per second while sprinting
	StaminaRegen     = 20.0 // per second once regen resumes
	StaminaRegenWait = 1.0  // seconds after sprint stops before regen
	DashDuration     = 0.35 // seconds
	DashSpeed        = 14.0 // peak added speed of the half-sine profile
	DashCooldown     = 2.5  // seconds
	DashBufferWindow = 0.2  // a dash press this close to readiness is kept
	DashMinStamina   = 20.0

	// The owner reports its state every other physics step
	moveSendEvery = 2
)

// MovementRules are the server-supplied knobs the owner simulates against
type MovementRules struct {
	Speed        float64 `json:"speed"`
	SprintMul    float64 `json:"sprintMul"`
	StaminaMax   float64 `json:"staminaMax"`
	StaminaDrain float64 `json:"staminaDrain"`
	StaminaRegen float64 `json:"staminaRegen"`
	RegenWait    float64 `json:"regenWait"`
	DashDuration float64 `json:"dashDuration"`
	DashSpeed    float64 `json:"dashSpeed"`
	DashCooldown float64 `json:"dashCooldown"`
	DashBuffer   float64 `json:"dashBuffer"`
	DashStamina  float64 `json:"dashStamina"`
}

// DefaultMovementRules returns the host defaults
func DefaultMovementRules() MovementRules {
	return MovementRules{
		Speed:        BaseSpeed,
		SprintMul:    SprintMultiplier,
		StaminaMax:   StaminaMax,
		StaminaDrain: StaminaDrain,
		StaminaRegen: StaminaRegen,
		RegenWait:    StaminaRegenWait,
		DashDuration: DashDuration,
		DashSpeed:    DashSpeed,
		DashCooldown: DashCooldown,
		DashBuffer:   DashBufferWindow,
		DashStamina:  DashMinStamina,
	}
}

// MoveInput is one physics step's captured input
type MoveInput struct {
	MoveX  float64 // right axis, [-1, 1]
	MoveZ  float64 // forward axis, [-1, 1]
	Sprint bool
	Dash   bool
}

// OwnerSim is the locally simulated entity on the client that owns it.
// It advances one fixed physics step at a time; the server never
// re-simulates what it reports (trust-the-owner).
type OwnerSim struct {
	Rules MovementRules

	Pos     Vec3
	Yaw     float64
	Vel     Vec3
	Stamina float64

	Frozen       bool
	InputEnabled bool

	dashTimer   float64 // remaining active dash time, 0 when idle
	dashCD      float64 // remaining cooldown
	dashDir     Vec3
	dashLatched bool // press arrived inside the buffer window

	terrain   *Terrain
	stepCount uint64
	regenWait float64
}

// NewOwnerSim creates an owner simulation grounded on the given terrain
func NewOwnerSim(rules MovementRules, terrain *Terrain, start Vec3) *OwnerSim {
	return &OwnerSim{
		Rules:        rules,
		Pos:          terrain.SnapToGround(start),
		Stamina:      rules.StaminaMax,
		InputEnabled: true,
		terrain:      terrain,
	}
}

// Dashing reports whether a dash is currently active
func (s *OwnerSim) Dashing() bool {
	return s.dashTimer > 0
}

// Step advances the simulation by one fixed physics step
func (s *OwnerSim) Step(in MoveInput, dt float64) {
	s.stepCount++

	if s.Frozen || !s.InputEnabled {
		// No input available: horizontal velocity is forced to zero
		s.Vel = Vec3{Y: s.Vel.Y}
		s.tickDash(MoveInput{}, dt)
		s.Pos = s.terrain.SnapToGround(s.Pos)
		return
	}

	// Clamp the move vector to unit length
	mag := math.Sqrt(in.MoveX*in.MoveX + in.MoveZ*in.MoveZ)
	mx, mz := in.MoveX, in.MoveZ
	if mag > 1 {
		mx /= mag
		mz /= mag
		mag = 1
	}

	speed := s.Rules.Speed
	sprinting := in.Sprint && mag > 0 && s.Stamina > 0
	if sprinting {
		speed *= s.Rules.SprintMul
		s.Stamina -= s.Rules.StaminaDrain * dt
		if s.Stamina < 0 {
			s.Stamina = 0
		}
		s.regenWait = s.Rules.RegenWait
	} else {
		// Regen resumes only after the post-sprint delay has elapsed
		if s.regenWait > 0 {
			s.regenWait -= dt
		} else if s.Stamina < s.Rules.StaminaMax {
			s.Stamina += s.Rules.StaminaRegen * dt
			if s.Stamina > s.Rules.StaminaMax {
				s.Stamina = s.Rules.StaminaMax
			}
		}
	}

	s.Vel = Vec3{X: mx * speed, Z: mz * speed}

	s.tickDash(in, dt)
	if s.dashTimer > 0 {
		// Half-sine speed profile: ramps up, peaks mid-dash, ramps out
		t := 1 - s.dashTimer/s.Rules.DashDuration
		boost := s.Rules.DashSpeed * math.Sin(math.Pi*t)
		s.Vel = s.Vel.Add(s.dashDir.Scale(boost))
	}

	// Face the movement heading
	if mag > 0 {
		target := math.Atan2(mx, mz)
		diff := NormalizeAngle(target - s.Yaw)
		maxTurn := TurnSpeed * dt
		if diff > maxTurn {
			diff = maxTurn
		} else if diff < -maxTurn {
			diff = -maxTurn
		}
		s.Yaw = NormalizeAngle(s.Yaw + diff)
	}

	s.Pos = s.Pos.Add(s.Vel.Scale(dt))
	s.Pos = s.terrain.SnapToGround(s.Pos)
}

// tickDash advances dash cooldown/active timers and handles triggering,
// including the input buffer: a press landing within the buffer window
// before readiness is latched instead of dropped.
func (s *OwnerSim) tickDash(in MoveInput, dt float64) {
	if s.dashTimer > 0 {
		s.dashTimer -= dt
		if s.dashTimer < 0 {
			s.dashTimer = 0
		}
	}
	if s.dashCD > 0 {
		s.dashCD -= dt
		if s.dashCD < 0 {
			s.dashCD = 0
		}
	}

	if in.Dash {
		if s.canDash() {
			s.startDash(in)
		} else if s.dashTimer == 0 && s.dashCD <= s.Rules.DashBuffer {
			s.dashLatched = true
		}
	}
	if s.dashLatched && s.canDash() {
		s.startDash(in)
	}
}

func (s *OwnerSim) canDash() bool {
	return s.dashTimer == 0 && s.dashCD == 0 && s.Stamina >= s.Rules.DashStamina
}

func (s *OwnerSim) startDash(in MoveInput) {
	dir := Vec3{X: in.MoveX, Z: in.MoveZ}
	if dir.Len() < 1e-6 {
		dir = Vec3{X: math.Sin(s.Yaw), Z: math.Cos(s.Yaw)}
	} else {
		dir = dir.Scale(1 / dir.Len())
	}
	s.dashDir = dir
	s.dashTimer = s.Rules.DashDuration
	s.dashCD = s.Rules.DashCooldown
	s.dashLatched = false
	s.Stamina -= s.Rules.DashStamina
	if s.Stamina < 0 {
		s.Stamina = 0
	}
}

// ShouldSend reports whether this step's state should be reported to the
// server (throttled cadence)
func (s *OwnerSim) ShouldSend() bool {
	return s.stepCount%moveSendEvery == 0
}

// Report builds the trusted movement update for the server
func (s *OwnerSim) Report() MoveMsg {
	return MoveMsg{Pos: s.Pos, Yaw: s.Yaw, Vel: s.Vel, Dashing: s.Dashing()}
}
