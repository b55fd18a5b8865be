package scorer

import (
	"fmt"

	"github.com/scoutline/curator/internal/config"
	"github.com/scoutline/curator/internal/model"
)

// scoreProject applies project-category rules. Returns component points and,
// when a hard disqualifier trips, its reason.
func scoreProject(c model.NormalizedCandidate, rules config.ProjectRules) (map[string]int, string) {
	attrs, _ := c.Attrs.(model.ProjectAttributes)

	// Hard disqualifiers. Missing attributes (zero values) never trip one.
	if rules.MaxTeamSize > 0 && attrs.TeamSize > rules.MaxTeamSize {
		return nil, fmt.Sprintf("team size %d exceeds max %d", attrs.TeamSize, rules.MaxTeamSize)
	}
	if rules.MaxFundingRaised > 0 && attrs.FundingRaised > rules.MaxFundingRaised {
		return nil, fmt.Sprintf("funding raised %d exceeds max %d", attrs.FundingRaised, rules.MaxFundingRaised)
	}
	if rules.MinLaunchYear > 0 && !attrs.LaunchedAt.IsZero() && attrs.LaunchedAt.Year() < rules.MinLaunchYear {
		return nil, fmt.Sprintf("launched %d, before cutoff %d", attrs.LaunchedAt.Year(), rules.MinLaunchYear)
	}

	components := map[string]int{
		"stage":     scoreProjectStage(attrs.Stage),
		"team_size": scoreProjectTeamSize(attrs.TeamSize, rules.MaxTeamSize),
		"traction":  scoreProjectTraction(attrs),
	}
	if attrs.AcceleratorBacked {
		components["accelerator"] = 10
	}
	return components, ""
}

// scoreProjectStage rewards projects far enough along to evaluate but still
// early.
func scoreProjectStage(stage string) int {
	switch stage {
	case "launched":
		return 15
	case "beta":
		return 12
	case "prototype":
		return 8
	case "idea":
		return 4
	default:
		return 6 // neutral when unreported
	}
}

// scoreProjectTeamSize rewards small teams. Unknown size is neutral.
func scoreProjectTeamSize(teamSize, maxTeamSize int) int {
	if teamSize <= 0 {
		return 5
	}
	switch {
	case teamSize <= 3:
		return 10
	case maxTeamSize <= 0 || teamSize <= maxTeamSize/2:
		return 7
	default:
		return 3
	}
}

// scoreProjectTraction rewards explicit "needs" flags, which signal a
// project actively looking for what the review queue can offer.
func scoreProjectTraction(attrs model.ProjectAttributes) int {
	pts := 0
	if attrs.NeedsFunding {
		pts += 8
	}
	if attrs.NeedsUsers {
		pts += 8
	}
	return pts
}
