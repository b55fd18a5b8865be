package scorer

import (
	"fmt"
	"time"

	"github.com/scoutline/curator/internal/config"
	"github.com/scoutline/curator/internal/model"
)

// scoreFunding applies funding-opportunity rules. Returns component points
// and, when a hard disqualifier trips, its reason.
func scoreFunding(c model.NormalizedCandidate, rules config.FundingRules, now time.Time) (map[string]int, string) {
	attrs, _ := c.Attrs.(model.FundingAttributes)

	// A deadline too close to be actionable disqualifies outright. A missing
	// deadline (rolling applications) does not.
	if !attrs.Deadline.IsZero() && rules.MinDeadlineDays > 0 {
		daysLeft := int(attrs.Deadline.Sub(now).Hours() / 24)
		if daysLeft < rules.MinDeadlineDays {
			return nil, fmt.Sprintf("deadline in %d days, minimum %d", daysLeft, rules.MinDeadlineDays)
		}
	}

	components := map[string]int{
		"amount":   scoreFundingAmount(attrs.Amount),
		"deadline": scoreFundingDeadline(attrs.Deadline, now),
	}
	if attrs.NoEquity {
		components["no_equity"] = 15
	}
	if attrs.OpenEligibility {
		components["open_eligibility"] = 10
	}
	switch attrs.Mechanism {
	case "grant":
		components["mechanism"] = 8
	case "prize":
		components["mechanism"] = 5
	}
	return components, ""
}

// scoreFundingAmount rewards larger pools. Unknown amounts are neutral.
func scoreFundingAmount(amount int64) int {
	switch {
	case amount >= 100000:
		return 12
	case amount >= 25000:
		return 8
	case amount > 0:
		return 4
	default:
		return 5
	}
}

// scoreFundingDeadline rewards an actionable urgency window: close enough
// to prioritize, far enough to apply. Rolling deadlines are mildly positive.
func scoreFundingDeadline(deadline time.Time, now time.Time) int {
	if deadline.IsZero() {
		return 6
	}
	daysLeft := int(deadline.Sub(now).Hours() / 24)
	switch {
	case daysLeft <= 30:
		return 12
	case daysLeft <= 90:
		return 8
	default:
		return 4
	}
}
