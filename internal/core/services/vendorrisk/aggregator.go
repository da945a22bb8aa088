package vendorrisk

import (
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
)

// PenaltyConfig holds the per-finding penalty weights. These are policy
// constants, injected from configuration.
type PenaltyConfig struct {
	// CVE penalties by CVSS base score.
	CVECritical int // cvss > 9
	CVEHigh     int // cvss > 7
	CVEMedium   int // cvss > 4

	// Breach penalties by internal breach risk score.
	BreachSevere   int // risk > 80
	BreachModerate int // risk > 50
	BreachBase     int // every other breach
}

// DefaultPenaltyConfig returns the documented default weights.
func DefaultPenaltyConfig() PenaltyConfig {
	return PenaltyConfig{
		CVECritical:    10,
		CVEHigh:        5,
		CVEMedium:      2,
		BreachSevere:   15,
		BreachModerate: 8,
		BreachBase:     4,
	}
}

// Aggregator combines CVE and breach findings into a single bounded risk
// score per vendor scan. The score starts at 100 and only ever decreases as
// findings are added, floored at 0.
type Aggregator struct {
	cfg PenaltyConfig
}

func NewAggregator(cfg PenaltyConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Score computes the final 0-100 risk score for one scan's findings.
func (a *Aggregator) Score(cves []domain.VendorCVEMatch, breaches []domain.VendorBreach) int {
	score := 100

	for _, m := range cves {
		score -= a.CVEPenalty(m.CVSSScore)
	}
	for _, b := range breaches {
		score -= a.BreachPenalty(b.RiskScore)
	}

	if score < 0 {
		score = 0
	}
	return score
}

// CVEPenalty returns the deduction for one matched CVE.
func (a *Aggregator) CVEPenalty(cvss float64) int {
	switch {
	case cvss > 9:
		return a.cfg.CVECritical
	case cvss > 7:
		return a.cfg.CVEHigh
	case cvss > 4:
		return a.cfg.CVEMedium
	default:
		return 0
	}
}

// BreachPenalty returns the deduction for one matched breach.
func (a *Aggregator) BreachPenalty(risk int) int {
	switch {
	case risk > 80:
		return a.cfg.BreachSevere
	case risk > 50:
		return a.cfg.BreachModerate
	default:
		return a.cfg.BreachBase
	}
}
