package scorer

import (
	"fmt"

	"github.com/scoutline/curator/internal/config"
	"github.com/scoutline/curator/internal/model"
)

// scoreResource applies resource-category rules with a free-first price
// ranking. Returns component points and, when a hard disqualifier trips,
// its reason.
func scoreResource(c model.NormalizedCandidate, rules config.ResourceRules) (map[string]int, string) {
	attrs, _ := c.Attrs.(model.ResourceAttributes)

	if rules.MaxPrice > 0 && attrs.Price > rules.MaxPrice {
		return nil, fmt.Sprintf("price %.2f exceeds max %.2f", attrs.Price, rules.MaxPrice)
	}

	components := map[string]int{
		"price":  scoreResourcePrice(attrs, rules.MaxPrice),
		"format": scoreResourceFormat(attrs.Format),
	}
	return components, ""
}

// scoreResourcePrice ranks free first, then cheap, then anything under the
// ceiling.
func scoreResourcePrice(attrs model.ResourceAttributes, maxPrice float64) int {
	if attrs.Price == 0 && (attrs.PriceType == "" || attrs.PriceType == "free") {
		return 20
	}
	switch {
	case attrs.PriceType == "freemium":
		return 14
	case maxPrice > 0 && attrs.Price <= maxPrice/2:
		return 10
	default:
		return 5
	}
}

// scoreResourceFormat gives interactive formats a slight edge over
// reading material.
func scoreResourceFormat(format string) int {
	switch format {
	case "tool":
		return 10
	case "course":
		return 8
	case "dataset":
		return 7
	case "article":
		return 5
	default:
		return 4
	}
}
