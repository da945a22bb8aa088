package matching

import (
	"fmt"
	"strings"
)

// GenerateCPEString builds a CPE 2.3 "application" identifier from a
// vendor/product/version triple. Returns "" when vendor or product is
// missing. Special CPE characters are not escaped; vendor and product names
// containing them produce identifiers that will simply never match feed
// criteria, which is acceptable for a bonus signal.
func GenerateCPEString(vendor, product, version string) string {
	vendor = normalizeCPEPart(vendor)
	product = normalizeCPEPart(product)
	if vendor == "" || product == "" {
		return ""
	}

	if version = strings.TrimSpace(version); version == "" {
		version = "*"
	}

	return fmt.Sprintf("cpe:2.3:a:%s:%s:%s:*:*:*:*:*:*:*", vendor, product, version)
}

// normalizeCPEPart lowercases and collapses internal whitespace runs to a
// single underscore.
func normalizeCPEPart(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, "_")
}
