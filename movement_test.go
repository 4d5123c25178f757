package main

import (
	"math"
	"testing"
)

const testDt = 1.0 / 60.0

func newTestSim() *OwnerSim {
	return NewOwnerSim(DefaultMovementRules(), NewTerrain("test"), Vec3{})
}

func stepN(s *OwnerSim, in MoveInput, n int) {
	for i := 0; i < n; i++ {
		s.Step(in, testDt)
	}
}

func TestSprintDrainsStamina(t *testing.T) {
	s := newTestSim()
	stepN(s, MoveInput{MoveZ: 1, Sprint: true}, 60)

	want := StaminaMax - StaminaDrain
	if math.Abs(s.Stamina-want) > 0.01 {
		t.Errorf("expected stamina ~%v after 1s sprint, got %v", want, s.Stamina)
	}
	if math.Abs(s.Vel.Z-BaseSpeed*SprintMultiplier) > 1e-9 {
		t.Errorf("expected sprint speed %v, got %v", BaseSpeed*SprintMultiplier, s.Vel.Z)
	}
}

func TestSprintStopsWhenStaminaEmpty(t *testing.T) {
	s := newTestSim()
	s.Stamina = 0
	s.Step(MoveInput{MoveZ: 1, Sprint: true}, testDt)
	if math.Abs(s.Vel.Z-BaseSpeed) > 1e-9 {
		t.Errorf("expected base speed with empty stamina, got %v", s.Vel.Z)
	}
}

func TestStaminaRegenWaits(t *testing.T) {
	s := newTestSim()
	stepN(s, MoveInput{MoveZ: 1, Sprint: true}, 60) // drain to ~75

	drained := s.Stamina
	stepN(s, MoveInput{MoveZ: 1}, 30) // 0.5s, still inside the regen delay
	if math.Abs(s.Stamina-drained) > 0.01 {
		t.Errorf("stamina must not regen during the delay, got %v (was %v)", s.Stamina, drained)
	}

	stepN(s, MoveInput{MoveZ: 1}, 60) // delay ends halfway through
	want := drained + 0.5*StaminaRegen
	if math.Abs(s.Stamina-want) > 0.5 {
		t.Errorf("expected stamina ~%v after regen resumes, got %v", want, s.Stamina)
	}
}

func TestDashCostsStaminaAndPeaks(t *testing.T) {
	s := newTestSim()
	s.Step(MoveInput{MoveZ: 1, Dash: true}, testDt)

	if !s.Dashing() {
		t.Fatal("expected dash to start")
	}
	if math.Abs(s.Stamina-(StaminaMax-DashMinStamina)) > 1e-9 {
		t.Errorf("expected dash to cost %v stamina, got %v remaining", DashMinStamina, s.Stamina)
	}

	// Half-sine profile peaks mid-dash
	stepN(s, MoveInput{MoveZ: 1}, 10)
	speed := s.Vel.Horizontal().Len()
	if speed < BaseSpeed+DashSpeed*0.9 {
		t.Errorf("expected near-peak dash speed, got %v", speed)
	}

	stepN(s, MoveInput{MoveZ: 1}, 15)
	if s.Dashing() {
		t.Error("dash should have ended")
	}
}

func TestDashCooldownBlocksRetrigger(t *testing.T) {
	s := newTestSim()
	s.Step(MoveInput{MoveZ: 1, Dash: true}, testDt)
	stepN(s, MoveInput{MoveZ: 1}, 25) // dash over, cooldown running

	s.Step(MoveInput{MoveZ: 1, Dash: true}, testDt)
	if s.Dashing() {
		t.Error("dash must not retrigger during cooldown")
	}
}

func TestDashBufferLatchesLatePress(t *testing.T) {
	s := newTestSim()
	s.Step(MoveInput{MoveZ: 1, Dash: true}, testDt)

	// Run until the cooldown is inside the buffer window, then press once
	stepN(s, MoveInput{MoveZ: 1}, 139)
	if s.Dashing() {
		t.Fatal("dash should be over by now")
	}
	s.Step(MoveInput{MoveZ: 1, Dash: true}, testDt)
	if s.Dashing() {
		t.Fatal("press inside the buffer window must wait for readiness")
	}
	if !s.dashLatched {
		t.Fatal("press inside the buffer window should latch")
	}

	// No further presses: the latched dash fires when the cooldown expires
	stepN(s, MoveInput{MoveZ: 1}, 15)
	if !s.Dashing() {
		t.Error("latched dash should fire when ready")
	}
}

func TestDashRequiresStamina(t *testing.T) {
	s := newTestSim()
	s.Stamina = DashMinStamina - 1
	s.Step(MoveInput{MoveZ: 1, Dash: true}, testDt)
	if s.Dashing() {
		t.Error("dash must not start below the stamina floor")
	}
}

func TestFrozenForcesZeroVelocity(t *testing.T) {
	s := newTestSim()
	s.Frozen = true
	before := s.Pos
	stepN(s, MoveInput{MoveZ: 1, Sprint: true}, 10)
	if s.Vel.X != 0 || s.Vel.Z != 0 {
		t.Error("frozen sim must have zero horizontal velocity")
	}
	if s.Pos.X != before.X || s.Pos.Z != before.Z {
		t.Error("frozen sim must not move")
	}
}

func TestDiagonalInputClamped(t *testing.T) {
	s := newTestSim()
	s.Step(MoveInput{MoveX: 1, MoveZ: 1}, testDt)
	speed := s.Vel.Horizontal().Len()
	if math.Abs(speed-BaseSpeed) > 1e-9 {
		t.Errorf("diagonal input must clamp to base speed, got %v", speed)
	}
}

func TestYawTurnsTowardHeading(t *testing.T) {
	s := newTestSim()
	s.Yaw = 0
	s.Step(MoveInput{MoveX: 1}, testDt)
	if s.Yaw <= 0 || s.Yaw > TurnSpeed*testDt+1e-9 {
		t.Errorf("yaw should turn toward heading at most %v/step, got %v", TurnSpeed*testDt, s.Yaw)
	}
}

func TestReportCadence(t *testing.T) {
	s := newTestSim()
	s.Step(MoveInput{}, testDt)
	if s.ShouldSend() {
		t.Error("odd step should not report")
	}
	s.Step(MoveInput{}, testDt)
	if !s.ShouldSend() {
		t.Error("even step should report")
	}
}

func TestStepKeepsFootprintOnGround(t *testing.T) {
	terrain := NewTerrain("test")
	s := NewOwnerSim(DefaultMovementRules(), terrain, Vec3{X: 5, Z: 5})
	stepN(s, MoveInput{MoveZ: 1}, 30)
	want := terrain.HeightAt(s.Pos.X, s.Pos.Z)
	if math.Abs(s.Pos.Y-want) > 1e-9 {
		t.Errorf("expected y=%v on the surface, got %v", want, s.Pos.Y)
	}
}
