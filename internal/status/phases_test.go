package status

import (
	"testing"

	"github.com/jbweber/hyperkit/api/v1alpha1"
)

func TestPhaseFromServer(t *testing.T) {
	tests := []struct {
		status string
		want   v1alpha1.ContainerPhase
	}{
		{"Running", v1alpha1.PhaseRunning},
		{"Stopped", v1alpha1.PhaseStopped},
		{"Frozen", v1alpha1.PhaseFrozen},
		{"running", v1alpha1.PhaseRunning},
		{"Starting", v1alpha1.PhaseUnknown},
		{"", v1alpha1.PhaseUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := PhaseFromServer(tt.status); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestExpectedPhase(t *testing.T) {
	tests := []struct {
		action string
		want   v1alpha1.ContainerPhase
	}{
		{"start", v1alpha1.PhaseRunning},
		{"restart", v1alpha1.PhaseRunning},
		{"unfreeze", v1alpha1.PhaseRunning},
		{"stop", v1alpha1.PhaseStopped},
		{"freeze", v1alpha1.PhaseFrozen},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			got, err := ExpectedPhase(tt.action)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := ExpectedPhase("pause"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestObserve(t *testing.T) {
	c := v1alpha1.NewContainer("web1")

	Observe(c, "Running", 103, 4242)
	if c.GetPhase() != v1alpha1.PhaseRunning || c.Status.StatusCode != 103 || c.Status.Pid != 4242 {
		t.Errorf("unexpected status %+v", c.Status)
	}
	if !IsConditionTrue(c, v1alpha1.ConditionReady) {
		t.Error("expected Ready to be True while running")
	}

	Observe(c, "Frozen", 110, 4242)
	if !IsConditionFalse(c, v1alpha1.ConditionReady) {
		t.Error("expected Ready to be False while frozen")
	}
	if GetCondition(c, v1alpha1.ConditionReady).Reason != "Frozen" {
		t.Errorf("expected reason Frozen, got %s", GetCondition(c, v1alpha1.ConditionReady).Reason)
	}

	Observe(c, "Starting", 106, 0)
	if c.GetPhase() != v1alpha1.PhaseUnknown {
		t.Errorf("expected Unknown, got %s", c.GetPhase())
	}
	if GetCondition(c, v1alpha1.ConditionReady).Status != v1alpha1.ConditionUnknown {
		t.Error("expected Ready to be Unknown for an unmodelled status")
	}
}

func TestTransitionToCreating(t *testing.T) {
	tests := []struct {
		name      string
		phase     v1alpha1.ContainerPhase
		wantError bool
	}{
		{"from Pending", v1alpha1.PhasePending, false},
		{"from Running", v1alpha1.PhaseRunning, true},
		{"from Stopped", v1alpha1.PhaseStopped, true},
		{"from Failed", v1alpha1.PhaseFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := v1alpha1.NewContainer("web1")
			c.SetPhase(tt.phase)

			err := TransitionToCreating(c, "op-1")
			if tt.wantError {
				if err == nil {
					t.Error("expected error")
				}
				if c.GetPhase() != tt.phase {
					t.Errorf("phase should not change on error, got %s", c.GetPhase())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.GetPhase() != v1alpha1.PhaseCreating {
				t.Errorf("expected Creating, got %s", c.GetPhase())
			}
			if c.Status.LastOperation != "op-1" {
				t.Errorf("expected last operation op-1, got %s", c.Status.LastOperation)
			}
			if !IsConditionFalse(c, v1alpha1.ConditionCreated) {
				t.Error("expected Created to be False while creating")
			}
		})
	}
}

func TestTransitionAfterAction(t *testing.T) {
	c := v1alpha1.NewContainer("web1")
	MarkCreated(c, "op-1")

	steps := []struct {
		action string
		want   v1alpha1.ContainerPhase
		ready  v1alpha1.ConditionStatus
	}{
		{"start", v1alpha1.PhaseRunning, v1alpha1.ConditionTrue},
		{"freeze", v1alpha1.PhaseFrozen, v1alpha1.ConditionFalse},
		{"unfreeze", v1alpha1.PhaseRunning, v1alpha1.ConditionTrue},
		{"stop", v1alpha1.PhaseStopped, v1alpha1.ConditionFalse},
	}
	for i, step := range steps {
		opID := "op-" + string(rune('2'+i))
		if err := TransitionAfterAction(c, step.action, opID); err != nil {
			t.Fatalf("%s: unexpected error: %v", step.action, err)
		}
		if c.GetPhase() != step.want {
			t.Errorf("%s: expected %s, got %s", step.action, step.want, c.GetPhase())
		}
		if GetCondition(c, v1alpha1.ConditionReady).Status != step.ready {
			t.Errorf("%s: expected Ready %s", step.action, step.ready)
		}
		if c.Status.LastOperation != opID {
			t.Errorf("%s: expected last operation %s, got %s", step.action, opID, c.Status.LastOperation)
		}
	}

	pending := v1alpha1.NewContainer("web2")
	if err := TransitionAfterAction(pending, "start", "op-9"); err == nil {
		t.Error("expected error applying an action to a pending manifest")
	}
	if err := TransitionAfterAction(c, "pause", "op-9"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestPhasePredicates(t *testing.T) {
	if !IsRunning(v1alpha1.PhaseRunning) || IsRunning(v1alpha1.PhaseFrozen) {
		t.Error("IsRunning mismatch")
	}
	if !IsTransitioning(v1alpha1.PhaseCreating) || IsTransitioning(v1alpha1.PhaseStopped) {
		t.Error("IsTransitioning mismatch")
	}
	for _, p := range []v1alpha1.ContainerPhase{v1alpha1.PhaseRunning, v1alpha1.PhaseStopped, v1alpha1.PhaseFrozen} {
		if !IsSettled(p) {
			t.Errorf("expected %s to be settled", p)
		}
	}
	for _, p := range []v1alpha1.ContainerPhase{v1alpha1.PhasePending, v1alpha1.PhaseCreating, v1alpha1.PhaseFailed, v1alpha1.PhaseUnknown} {
		if IsSettled(p) {
			t.Errorf("expected %s not to be settled", p)
		}
	}
}
