package service

import (
	"slices"

	"github.com/spec-kit/field-service/internal/domain"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// ClaimAction names a review or payment step on a claim.
type ClaimAction string

const (
	ClaimActionCalculate ClaimAction = "calculate"
	ClaimActionSubmit    ClaimAction = "submit"
	ClaimActionVerify    ClaimAction = "verify"
	ClaimActionApprove   ClaimAction = "approve"
	ClaimActionPay       ClaimAction = "pay"
	ClaimActionReject    ClaimAction = "reject"
	ClaimActionCancel    ClaimAction = "cancel"
)

type claimRule struct {
	from []domain.ClaimState
	to   domain.ClaimState
	note string
}

var claimTransitions = map[ClaimAction]claimRule{
	ClaimActionCalculate: {
		from: []domain.ClaimState{domain.ClaimDraft, domain.ClaimCalculated},
		to:   domain.ClaimCalculated,
		note: "Claim calculated based on TAT categories.",
	},
	ClaimActionSubmit: {
		from: []domain.ClaimState{domain.ClaimDraft, domain.ClaimCalculated},
		to:   domain.ClaimSubmitted,
		note: "Claim submitted for verification.",
	},
	ClaimActionVerify: {
		from: []domain.ClaimState{domain.ClaimSubmitted},
		to:   domain.ClaimVerified,
		note: "Claim verified successfully.",
	},
	ClaimActionApprove: {
		from: []domain.ClaimState{domain.ClaimVerified},
		to:   domain.ClaimApproved,
		note: "Claim approved for payment.",
	},
	ClaimActionPay: {
		from: []domain.ClaimState{domain.ClaimApproved},
		to:   domain.ClaimPaid,
		note: "Claim paid.",
	},
	ClaimActionReject: {
		from: claimStatesExcept(domain.ClaimPaid, domain.ClaimCancelled),
		to:   domain.ClaimRejected,
		note: "Claim rejected.",
	},
	ClaimActionCancel: {
		from: claimStatesExcept(domain.ClaimPaid),
		to:   domain.ClaimCancelled,
		note: "Claim cancelled.",
	},
}

func claimStatesExcept(excluded ...domain.ClaimState) []domain.ClaimState {
	states := make([]domain.ClaimState, 0, len(domain.ClaimStates))
	for _, state := range domain.ClaimStates {
		if !slices.Contains(excluded, state) {
			states = append(states, state)
		}
	}
	return states
}

func checkClaimTransition(action ClaimAction, current domain.ClaimState) (claimRule, error) {
	rule, ok := claimTransitions[action]
	if !ok {
		return claimRule{}, apperrors.NewValidationError("unknown action", map[string]any{"action": string(action)})
	}
	if !slices.Contains(rule.from, current) {
		required := make([]string, len(rule.from))
		for i, state := range rule.from {
			required[i] = string(state)
		}
		return claimRule{}, apperrors.NewInvalidTransition(string(action), string(current), required)
	}
	return rule, nil
}

// AllowedClaimActions lists the actions available from a claim state, in workflow order.
func AllowedClaimActions(state domain.ClaimState) []ClaimAction {
	order := []ClaimAction{
		ClaimActionCalculate, ClaimActionSubmit, ClaimActionVerify, ClaimActionApprove,
		ClaimActionPay, ClaimActionReject, ClaimActionCancel,
	}
	var allowed []ClaimAction
	for _, action := range order {
		if slices.Contains(claimTransitions[action].from, state) {
			allowed = append(allowed, action)
		}
	}
	return allowed
}
