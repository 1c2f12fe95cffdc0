package service

// Subscription plans offered to users. Prices are display strings in DZD;
// payment is settled off-platform and verified by an admin.
type Plan struct {
	Key   string
	Name  string
	Price string
	Days  int
}

var plans = []Plan{
	{Key: "monthly", Name: "Monthly", Price: "1500 DZD", Days: 30},
	{Key: "quarterly", Name: "Quarterly", Price: "4000 DZD", Days: 90},
	{Key: "semi_annual", Name: "Semi-annual", Price: "7500 DZD", Days: 180},
	{Key: "annual", Name: "Annual", Price: "14000 DZD", Days: 365},
}

const defaultPlanDays = 30

// Plans returns the plan catalogue in display order.
func Plans() []Plan {
	return plans
}

// PlanByKey looks up a plan by its key, or nil for unknown keys.
func PlanByKey(key string) *Plan {
	for i := range plans {
		if plans[i].Key == key {
			return &plans[i]
		}
	}
	return nil
}

// PlanDays maps a plan key or name to its entitlement window in days.
// Unknown plans fall back to the monthly window; claims recorded before a
// catalogue change must still resolve.
func PlanDays(plan string) int {
	for i := range plans {
		if plans[i].Key == plan || plans[i].Name == plan {
			return plans[i].Days
		}
	}
	return defaultPlanDays
}
