package quota

import (
	"context"
	"errors"
	"testing"

	"fillsession/pkg/models"
)

type stubEnts struct {
	usage    int64
	limit    int64
	usageErr error
	limitErr error
}

func (s *stubEnts) MonthlyUsage(ctx context.Context, owner string) (int64, error) {
	return s.usage, s.usageErr
}

func (s *stubEnts) PlanLimit(ctx context.Context, owner string) (int64, error) {
	return s.limit, s.limitErr
}

func TestCheckQuota_DecisionRule(t *testing.T) {
	cases := []struct {
		name      string
		usage     int64
		limit     int64
		estimate  int64
		allowed   bool
		remaining int64
	}{
		{"well under", 1000, 100000, 2000, true, 99000},
		{"exactly at the line", 98000, 100000, 2000, true, 2000},
		{"one over", 98001, 100000, 2000, false, 1999},
		{"already over", 150000, 100000, 2000, false, 0},
		{"unlimited plan", 999999, 0, 2000, true, -1},
		{"negative limit is unlimited", 10, -5, 2000, true, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := NewAccountant(&stubEnts{usage: tc.usage, limit: tc.limit}, tc.estimate)
			dec, err := a.CheckQuota(context.Background(), "owner-1")
			if err != nil {
				t.Fatalf("CheckQuota failed: %v", err)
			}
			if dec.Allowed != tc.allowed {
				t.Fatalf("allowed = %v, want %v", dec.Allowed, tc.allowed)
			}
			if dec.Remaining != tc.remaining {
				t.Fatalf("remaining = %d, want %d", dec.Remaining, tc.remaining)
			}
		})
	}
}

func TestCheckQuota_LookupErrors(t *testing.T) {
	limitErr := errors.New("entitlements down")
	a := NewAccountant(&stubEnts{limitErr: limitErr}, 100)
	if _, err := a.CheckQuota(context.Background(), "owner-1"); !errors.Is(err, limitErr) {
		t.Fatalf("expected wrapped limit error, got %v", err)
	}

	usageErr := errors.New("ledger down")
	a = NewAccountant(&stubEnts{limit: 1000, usageErr: usageErr}, 100)
	if _, err := a.CheckQuota(context.Background(), "owner-1"); !errors.Is(err, usageErr) {
		t.Fatalf("expected wrapped usage error, got %v", err)
	}
}

func TestRecord_IgnoresNonPositive(t *testing.T) {
	a := NewAccountant(&stubEnts{}, 0)
	s := &models.Session{}
	a.Record(s, 10)
	a.Record(s, 0)
	a.Record(s, -5)
	a.Record(s, 7)
	if s.TokensUsed != 17 {
		t.Fatalf("expected 17, got %d", s.TokensUsed)
	}
}

func TestPlanEntitlements_PlanResolution(t *testing.T) {
	usage := map[string]int64{"owner-pro": 500}
	p := NewPlanEntitlements(
		map[string]int64{"free": 1000, "pro": 100000},
		map[string]string{"owner-pro": "pro"},
		"free",
		func(owner, month string) (int64, error) { return usage[owner], nil },
	)
	ctx := context.Background()

	limit, err := p.PlanLimit(ctx, "owner-pro")
	if err != nil || limit != 100000 {
		t.Fatalf("pro limit = %d err=%v", limit, err)
	}
	limit, err = p.PlanLimit(ctx, "owner-unknown")
	if err != nil || limit != 1000 {
		t.Fatalf("default plan limit = %d err=%v", limit, err)
	}
	used, err := p.MonthlyUsage(ctx, "owner-pro")
	if err != nil || used != 500 {
		t.Fatalf("usage = %d err=%v", used, err)
	}
}
