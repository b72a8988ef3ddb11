package service

import (
	"slices"

	"github.com/spec-kit/field-service/internal/domain"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// CallAction names a workflow event on a service call.
type CallAction string

const (
	ActionConfirm             CallAction = "confirm"
	ActionAssign              CallAction = "assign"
	ActionStart               CallAction = "start"
	ActionMarkPendingSpares   CallAction = "mark_pending_spares"
	ActionMarkPendingCustomer CallAction = "mark_pending_customer"
	ActionResolve             CallAction = "resolve"
	ActionClose               CallAction = "close"
	ActionCancel              CallAction = "cancel"
	ActionReopen              CallAction = "reopen"
)

type transitionRule struct {
	from         []domain.CallState
	to           domain.CallState
	notification domain.NotificationType
}

var callTransitions = map[CallAction]transitionRule{
	ActionConfirm: {
		from:         []domain.CallState{domain.CallStateDraft},
		to:           domain.CallStateConfirmed,
		notification: domain.NotificationCallCreated,
	},
	ActionAssign: {
		from:         []domain.CallState{domain.CallStateDraft, domain.CallStateConfirmed},
		to:           domain.CallStateAssigned,
		notification: domain.NotificationCallAssigned,
	},
	ActionStart: {
		from:         []domain.CallState{domain.CallStateAssigned},
		to:           domain.CallStateInProgress,
		notification: domain.NotificationCallStarted,
	},
	ActionMarkPendingSpares: {
		from:         domain.NonTerminalCallStates(),
		to:           domain.CallStatePendingSpares,
		notification: domain.NotificationStatusChanged,
	},
	ActionMarkPendingCustomer: {
		from:         domain.NonTerminalCallStates(),
		to:           domain.CallStatePendingCustomer,
		notification: domain.NotificationStatusChanged,
	},
	ActionResolve: {
		from:         []domain.CallState{domain.CallStateInProgress, domain.CallStatePendingSpares, domain.CallStatePendingCustomer},
		to:           domain.CallStateResolved,
		notification: domain.NotificationOTPGenerated,
	},
	ActionClose: {
		from:         []domain.CallState{domain.CallStateResolved},
		to:           domain.CallStateClosed,
		notification: domain.NotificationCallClosed,
	},
	ActionCancel: {
		from:         statesExcept(domain.CallStateClosed),
		to:           domain.CallStateCancelled,
		notification: domain.NotificationCallCancelled,
	},
	ActionReopen: {
		from:         []domain.CallState{domain.CallStateClosed, domain.CallStateCancelled},
		to:           domain.CallStateConfirmed,
		notification: domain.NotificationStatusChanged,
	},
}

func statesExcept(excluded domain.CallState) []domain.CallState {
	states := make([]domain.CallState, 0, len(domain.CallStates))
	for _, state := range domain.CallStates {
		if state != excluded {
			states = append(states, state)
		}
	}
	return states
}

// checkTransition returns the rule for action if the call's current state allows it.
func checkTransition(action CallAction, current domain.CallState) (transitionRule, error) {
	rule, ok := callTransitions[action]
	if !ok {
		return transitionRule{}, apperrors.NewValidationError("unknown action", map[string]any{"action": string(action)})
	}
	if !slices.Contains(rule.from, current) {
		required := make([]string, len(rule.from))
		for i, state := range rule.from {
			required[i] = string(state)
		}
		return transitionRule{}, apperrors.NewInvalidTransition(string(action), string(current), required)
	}
	return rule, nil
}

// AllowedActions lists the actions available from a state, in workflow order.
func AllowedActions(state domain.CallState) []CallAction {
	order := []CallAction{
		ActionConfirm, ActionAssign, ActionStart, ActionMarkPendingSpares, ActionMarkPendingCustomer,
		ActionResolve, ActionClose, ActionCancel, ActionReopen,
	}
	var allowed []CallAction
	for _, action := range order {
		if slices.Contains(callTransitions[action].from, state) {
			allowed = append(allowed, action)
		}
	}
	return allowed
}
