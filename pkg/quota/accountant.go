// Package quota implements token accounting for sessions: pure
// per-session bookkeeping plus the plan-limit decision rule. The monthly
// usage figure itself comes from the Entitlements collaborator.
package quota

import (
	"context"
	"fmt"

	"fillsession/pkg/models"
)

// Entitlements is the billing/entitlement collaborator contract.
type Entitlements interface {
	// MonthlyUsage returns the owner's token total across all sessions for
	// the current month.
	MonthlyUsage(ctx context.Context, ownerID string) (int64, error)
	// PlanLimit returns the owner's monthly token allowance. A limit <= 0
	// means unlimited.
	PlanLimit(ctx context.Context, ownerID string) (int64, error)
}

// Decision is the outcome of a quota check. Remaining is -1 for
// unlimited plans.
type Decision struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
}

type Accountant struct {
	ents Entitlements
	// estimate is the assumed cost of the next provider call; the check is
	// usage + estimate <= limit so a call that would cross the line is
	// rejected before the provider meters it.
	estimate int64
}

func NewAccountant(ents Entitlements, estimatedCallCost int64) *Accountant {
	if estimatedCallCost < 0 {
		estimatedCallCost = 0
	}
	return &Accountant{ents: ents, estimate: estimatedCallCost}
}

// Record adds provider-reported tokens to the session counter. Pure
// bookkeeping; the monthly ledger is written by the session store after
// the operation succeeds. Negative deltas are ignored so the counter
// never decreases.
func (a *Accountant) Record(s *models.Session, tokens int64) {
	if tokens <= 0 {
		return
	}
	s.TokensUsed += tokens
}

// CheckQuota applies the decision rule against the owner's plan. Callers
// must invoke it before the provider call so a rejected request is never
// charged.
func (a *Accountant) CheckQuota(ctx context.Context, ownerID string) (Decision, error) {
	limit, err := a.ents.PlanLimit(ctx, ownerID)
	if err != nil {
		return Decision{}, fmt.Errorf("plan limit lookup for %s: %w", ownerID, err)
	}
	if limit <= 0 {
		return Decision{Allowed: true, Remaining: -1}, nil
	}
	usage, err := a.ents.MonthlyUsage(ctx, ownerID)
	if err != nil {
		return Decision{}, fmt.Errorf("monthly usage lookup for %s: %w", ownerID, err)
	}
	remaining := limit - usage
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   usage+a.estimate <= limit,
		Remaining: remaining,
	}, nil
}
