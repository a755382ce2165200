package pricing

import (
	"errors"
	"fmt"
)

// Currency is the only settlement currency the payment channel supports.
const Currency = "XTR"

var ErrPlanUnknown = errors.New("plan_unknown")

type PlanKind string

const (
	PlanKindPersonal PlanKind = "personal"
	PlanKindGroup    PlanKind = "group"
	PlanKindAddon    PlanKind = "addon"
)

// Plan is one row of the closed price table. Amounts are never taken from
// caller input; the table is the single authority.
type Plan struct {
	ID       string
	Name     string
	Kind     PlanKind
	Amount   int64
	Resolves int  // personal plans only
	Days     *int // group/addon plans; nil means lifetime
}

func (p Plan) Lifetime() bool {
	return p.Kind != PlanKindPersonal && p.Days == nil
}

func days(n int) *int { return &n }

var plans = map[string]Plan{
	"p1":  {ID: "p1", Name: "1 Resolve", Kind: PlanKindPersonal, Amount: 5, Resolves: 1},
	"p5":  {ID: "p5", Name: "5 Resolves", Kind: PlanKindPersonal, Amount: 20, Resolves: 5},
	"p15": {ID: "p15", Name: "15 Resolves", Kind: PlanKindPersonal, Amount: 50, Resolves: 15},

	"personal_monthly":  {ID: "personal_monthly", Name: "Monthly", Kind: PlanKindPersonal, Amount: 50, Resolves: 1},
	"personal_yearly":   {ID: "personal_yearly", Name: "Yearly", Kind: PlanKindPersonal, Amount: 450, Resolves: 5},
	"personal_lifetime": {ID: "personal_lifetime", Name: "Lifetime", Kind: PlanKindPersonal, Amount: 1000, Resolves: 15},

	"group_monthly": {ID: "group_monthly", Name: "Group Monthly", Kind: PlanKindGroup, Amount: 150, Days: days(30)},
	"group_yearly":  {ID: "group_yearly", Name: "Group Yearly", Kind: PlanKindGroup, Amount: 1500, Days: days(365)},
	"group_charter": {ID: "group_charter", Name: "Group Charter", Kind: PlanKindGroup, Amount: 4000},

	"rag_monthly": {ID: "rag_monthly", Name: "RAG Monthly Add-On", Kind: PlanKindAddon, Amount: 50, Days: days(30)},
}

// Lookup resolves a plan id against the table. A miss denies whatever
// operation asked, never falls back to caller-supplied values.
func Lookup(planID string) (Plan, error) {
	p, ok := plans[planID]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanUnknown, planID)
	}
	return p, nil
}

// All returns the table for rendering by collaborators.
func All() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	return out
}

// Validate checks table consistency at startup.
func Validate() error {
	for id, p := range plans {
		if id != p.ID {
			return fmt.Errorf("pricing: plan key %q does not match id %q", id, p.ID)
		}
		if p.Amount <= 0 {
			return fmt.Errorf("pricing: plan %q has non-positive amount", id)
		}
		switch p.Kind {
		case PlanKindPersonal:
			if p.Resolves <= 0 {
				return fmt.Errorf("pricing: personal plan %q grants no resolves", id)
			}
		case PlanKindGroup, PlanKindAddon:
			if p.Days != nil && *p.Days <= 0 {
				return fmt.Errorf("pricing: plan %q has non-positive duration", id)
			}
		default:
			return fmt.Errorf("pricing: plan %q has unknown kind %q", id, p.Kind)
		}
	}
	return nil
}
