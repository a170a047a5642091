package quota

import (
	"context"
	"time"
)

// UsageFunc reads an owner's token total for a month ("2006-01" key).
// The store's monthly ledger satisfies this directly.
type UsageFunc func(ownerID, month string) (int64, error)

// PlanEntitlements resolves limits from a config-declared plan table and
// usage from the store ledger. Owners without an explicit plan fall back
// to the default plan.
type PlanEntitlements struct {
	limits       map[string]int64  // plan name -> monthly token limit
	owners       map[string]string // owner id -> plan name
	defaultPlan  string
	usage        UsageFunc
	monthForTest string // overrides the current month in tests
}

func NewPlanEntitlements(limits map[string]int64, owners map[string]string, defaultPlan string, usage UsageFunc) *PlanEntitlements {
	return &PlanEntitlements{
		limits:      limits,
		owners:      owners,
		defaultPlan: defaultPlan,
		usage:       usage,
	}
}

func (p *PlanEntitlements) month() string {
	if p.monthForTest != "" {
		return p.monthForTest
	}
	return time.Now().UTC().Format("2006-01")
}

func (p *PlanEntitlements) MonthlyUsage(ctx context.Context, ownerID string) (int64, error) {
	if p.usage == nil {
		return 0, nil
	}
	return p.usage(ownerID, p.month())
}

func (p *PlanEntitlements) PlanLimit(ctx context.Context, ownerID string) (int64, error) {
	plan := p.owners[ownerID]
	if plan == "" {
		plan = p.defaultPlan
	}
	return p.limits[plan], nil
}
