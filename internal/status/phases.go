package status

import (
	"fmt"
	"strings"

	"github.com/jbweber/hyperkit/api/v1alpha1"
)

// PhaseFromServer maps a server status string ("Running", "Stopped",
// "Frozen") to a phase. Anything else, including transient server states
// like "Starting", maps to PhaseUnknown.
func PhaseFromServer(status string) v1alpha1.ContainerPhase {
	switch strings.ToLower(status) {
	case "running":
		return v1alpha1.PhaseRunning
	case "stopped":
		return v1alpha1.PhaseStopped
	case "frozen":
		return v1alpha1.PhaseFrozen
	default:
		return v1alpha1.PhaseUnknown
	}
}

// ExpectedPhase returns the phase a container should be in once a state
// action has completed successfully.
func ExpectedPhase(action string) (v1alpha1.ContainerPhase, error) {
	switch action {
	case "start", "restart", "unfreeze":
		return v1alpha1.PhaseRunning, nil
	case "stop":
		return v1alpha1.PhaseStopped, nil
	case "freeze":
		return v1alpha1.PhaseFrozen, nil
	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

// Observe copies the server-reported state into the container status and
// keeps the Ready condition in step with it.
func Observe(c *v1alpha1.Container, status string, statusCode int, pid int64) {
	phase := PhaseFromServer(status)
	c.SetPhase(phase)
	c.Status.StatusCode = statusCode
	c.Status.Pid = pid

	switch phase {
	case v1alpha1.PhaseRunning:
		SetCondition(c, v1alpha1.ConditionReady, v1alpha1.ConditionTrue, "Running", "container is running")
	case v1alpha1.PhaseUnknown:
		SetCondition(c, v1alpha1.ConditionReady, v1alpha1.ConditionUnknown, "UnknownStatus", fmt.Sprintf("server reported status %q", status))
	default:
		SetCondition(c, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, string(phase), fmt.Sprintf("container is %s", strings.ToLower(string(phase))))
	}
}

// TransitionToCreating moves a manifest from Pending to Creating once its
// create operation has been submitted.
func TransitionToCreating(c *v1alpha1.Container, operationID string) error {
	if c.GetPhase() != v1alpha1.PhasePending {
		return fmt.Errorf("cannot transition to Creating from phase %s", c.GetPhase())
	}

	c.SetPhase(v1alpha1.PhaseCreating)
	c.Status.LastOperation = operationID
	SetCondition(c, v1alpha1.ConditionCreated, v1alpha1.ConditionFalse, "Creating", "create operation "+operationID+" is running")
	return nil
}

// TransitionAfterAction records the outcome of a state action that
// completed successfully.
func TransitionAfterAction(c *v1alpha1.Container, action, operationID string) error {
	phase, err := ExpectedPhase(action)
	if err != nil {
		return err
	}
	if c.GetPhase() == v1alpha1.PhasePending || c.GetPhase() == v1alpha1.PhaseCreating {
		return fmt.Errorf("cannot apply %s to a container in phase %s", action, c.GetPhase())
	}

	c.Status.LastOperation = operationID
	c.SetPhase(phase)
	if phase == v1alpha1.PhaseRunning {
		SetCondition(c, v1alpha1.ConditionReady, v1alpha1.ConditionTrue, "Running", "container is running")
	} else {
		SetCondition(c, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, string(phase), action+" completed")
	}
	c.UpdateObservedGeneration()
	return nil
}

// IsRunning reports whether the phase is Running.
func IsRunning(phase v1alpha1.ContainerPhase) bool {
	return phase == v1alpha1.PhaseRunning
}

// IsTransitioning reports whether an operation is known to be in flight.
func IsTransitioning(phase v1alpha1.ContainerPhase) bool {
	return phase == v1alpha1.PhaseCreating
}

// IsSettled reports whether the phase is one the server reports for an
// existing container at rest.
func IsSettled(phase v1alpha1.ContainerPhase) bool {
	switch phase {
	case v1alpha1.PhaseRunning, v1alpha1.PhaseStopped, v1alpha1.PhaseFrozen:
		return true
	}
	return false
}
