package main

import "testing"

func TestAdjustHealthClamps(t *testing.T) {
	e := NewEntity("e1", "e1", TeamA, Vec3{}, 0)

	e.AdjustHealth(-30)
	if e.Health.Get() != 70 {
		t.Errorf("expected health 70, got %d", e.Health.Get())
	}

	e.AdjustHealth(-200)
	if e.Health.Get() != 0 {
		t.Errorf("health must clamp at 0, got %d", e.Health.Get())
	}
	if e.Alive() {
		t.Error("entity at 0 health should not be alive")
	}

	e.AdjustHealth(500)
	if e.Health.Get() != PlayerMaxHealth {
		t.Errorf("health must clamp at %d, got %d", PlayerMaxHealth, e.Health.Get())
	}
}

func TestFrozenDropsMoveReports(t *testing.T) {
	e := NewEntity("e1", "e1", TeamA, Vec3{X: 1}, 0)
	e.SetFrozen(true)

	e.ApplyMove(MoveMsg{Pos: Vec3{X: 99}, Vel: Vec3{X: 5}})
	if e.Pos.Get().X != 1 {
		t.Error("frozen entity must ignore move reports")
	}
	if e.Vel.Get().X != 0 {
		t.Error("freezing must zero velocity")
	}

	e.SetFrozen(false)
	e.ApplyMove(MoveMsg{Pos: Vec3{X: 99}, Vel: Vec3{X: 5}})
	if e.Pos.Get().X != 99 {
		t.Error("unfrozen entity should accept move reports")
	}
}

func TestVisibilityIndependentOfFreeze(t *testing.T) {
	e := NewEntity("e1", "e1", TeamA, Vec3{}, 0)
	e.SetVisible(false)
	if e.Frozen.Get() {
		t.Error("hiding must not freeze")
	}
	e.ApplyMove(MoveMsg{Pos: Vec3{X: 5}})
	if e.Pos.Get().X != 5 {
		t.Error("hidden entity keeps simulating")
	}
}

func TestTeleportZeroesVelocity(t *testing.T) {
	e := NewEntity("e1", "e1", TeamB, Vec3{}, 0)
	e.ApplyMove(MoveMsg{Pos: Vec3{X: 1}, Vel: Vec3{X: 5}})
	e.Teleport(Vec3{X: 10, Z: 20}, 1.5)
	if e.Pos.Get().X != 10 || e.Pos.Get().Z != 20 {
		t.Error("teleport should move the entity")
	}
	if e.Vel.Get() != (Vec3{}) {
		t.Error("teleport should zero velocity")
	}
	if e.Yaw.Get() != 1.5 {
		t.Error("teleport should set yaw")
	}
}
