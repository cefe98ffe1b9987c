// Package status manages the status block of Container manifests: the
// phase derived from the server's state and the conditions hyperkit records
// as operations complete.
package status

import (
	"errors"

	"github.com/samber/lo"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/errdefs"
)

// SetCondition adds or updates a condition in the container status.
// LastTransitionTime only moves when the condition's status changes.
func SetCondition(c *v1alpha1.Container, condType string, status v1alpha1.ConditionStatus, reason, message string) {
	now := v1alpha1.Now()

	if existing := GetCondition(c, condType); existing != nil {
		if existing.Status != status {
			existing.LastTransitionTime = now
		}
		existing.Status = status
		existing.Reason = reason
		existing.Message = message
		existing.ObservedGeneration = c.Generation
		return
	}

	c.Status.Conditions = append(c.Status.Conditions, v1alpha1.Condition{
		Type:               condType,
		Status:             status,
		ObservedGeneration: c.Generation,
		LastTransitionTime: now,
		Reason:             reason,
		Message:            message,
	})
}

// GetCondition returns a condition by type, or nil if not found.
func GetCondition(c *v1alpha1.Container, condType string) *v1alpha1.Condition {
	for i := range c.Status.Conditions {
		if c.Status.Conditions[i].Type == condType {
			return &c.Status.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue returns true if the condition exists and has status True.
func IsConditionTrue(c *v1alpha1.Container, condType string) bool {
	cond := GetCondition(c, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionTrue
}

// IsConditionFalse returns true if the condition exists and has status False.
func IsConditionFalse(c *v1alpha1.Container, condType string) bool {
	cond := GetCondition(c, condType)
	return cond != nil && cond.Status == v1alpha1.ConditionFalse
}

// RemoveCondition removes a condition by type.
func RemoveCondition(c *v1alpha1.Container, condType string) {
	c.Status.Conditions = lo.Reject(c.Status.Conditions, func(cond v1alpha1.Condition, _ int) bool {
		return cond.Type == condType
	})
}

// MarkCreated records a successful create operation. The server creates
// containers stopped.
func MarkCreated(c *v1alpha1.Container, operationID string) {
	c.Status.LastOperation = operationID
	SetCondition(c, v1alpha1.ConditionCreated, v1alpha1.ConditionTrue, "Created", "create operation "+operationID+" succeeded")
	SetCondition(c, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, "Stopped", "container is stopped")
	c.SetPhase(v1alpha1.PhaseStopped)
	c.UpdateObservedGeneration()
}

// MarkCloudInitConfigured records that user-data was written to the
// container's config.
func MarkCloudInitConfigured(c *v1alpha1.Container) {
	SetCondition(c, v1alpha1.ConditionCloudInitConfigured, v1alpha1.ConditionTrue, "UserDataWritten", "cloud-init user-data stored in container config")
}

// MarkFailed sets Ready to False and the phase to Failed. The reason is
// derived from the error class and the message is the server's text when
// the error came from an operation.
func MarkFailed(c *v1alpha1.Container, err error) {
	reason, message := FailureReason(err)

	var opErr *errdefs.OperationError
	if errors.As(err, &opErr) && opErr.OperationID != "" {
		c.Status.LastOperation = opErr.OperationID
	}

	SetCondition(c, v1alpha1.ConditionReady, v1alpha1.ConditionFalse, reason, message)
	c.SetPhase(v1alpha1.PhaseFailed)
}

// FailureReason maps an error to a CamelCase condition reason and a message.
func FailureReason(err error) (reason, message string) {
	if err == nil {
		return "Unknown", ""
	}
	message = err.Error()

	var opErr *errdefs.OperationError
	if errors.As(err, &opErr) && opErr.Message != "" {
		message = opErr.Message
	}

	switch {
	case errdefs.IsValidation(err):
		return "InvalidRequest", message
	case errors.Is(err, errdefs.ErrTimeout):
		return "Timeout", message
	case errors.Is(err, errdefs.ErrCancelled):
		return "Cancelled", message
	case errors.Is(err, errdefs.ErrNotFound):
		return "NotFound", message
	case errors.Is(err, errdefs.ErrForbidden):
		return "Forbidden", message
	case errors.Is(err, errdefs.ErrBadRequest):
		return "OperationFailed", message
	case errors.Is(err, errdefs.ErrServer):
		return "ServerError", message
	default:
		return "Error", message
	}
}
