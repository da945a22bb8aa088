package matching

import (
	"strings"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
)

// descriptionKeywordLimit caps how many free-text tokens the description can
// contribute, keeping feed queries focused on vendor/product terms.
const descriptionKeywordLimit = 5

// stopWords are short or generic words excluded from description-derived
// keywords.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "this": {},
	"that": {}, "are": {}, "was": {}, "has": {}, "have": {}, "its": {},
	"our": {}, "all": {}, "any": {}, "can": {}, "used": {}, "uses": {},
	"using": {}, "via": {}, "into": {}, "over": {}, "under": {},
	"production": {}, "internal": {}, "external": {}, "application": {},
	"system": {}, "service": {}, "server": {}, "software": {},
}

// ExtractKeywordsFromAsset derives a deduplicated, lowercase,
// order-preserving keyword set from an asset's descriptive fields. Priority:
// vendor, product, asset name, significant description words, technologies.
// Absent fields contribute nothing.
func ExtractKeywordsFromAsset(asset domain.Asset) []string {
	var keywords []string
	seen := make(map[string]struct{})

	add := func(token string) {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			return
		}
		if _, ok := seen[token]; ok {
			return
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}

	add(asset.Vendor)
	add(asset.ProductName)
	add(asset.Name)

	taken := 0
	for _, word := range strings.Fields(asset.Description) {
		if taken >= descriptionKeywordLimit {
			break
		}
		word = strings.ToLower(strings.Trim(word, ".,;:()[]\"'"))
		if len(word) < 4 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		add(word)
		taken++
	}

	for _, tech := range asset.Technologies {
		add(tech)
	}

	return keywords
}
