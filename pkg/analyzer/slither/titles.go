package slither

import "strings"

// titleOverrides maps well-known detector ids to polished human phrasing.
// Detectors outside this table fall back to the generic slug transform.
var titleOverrides = map[string]string{
	"reentrancy-eth":    "Reentrancy via external call",
	"reentrancy-no-eth": "Reentrancy risk",
	"low-level-calls":   "Low-level call usage",
	"solc-version":      "Solidity version warning",
}

// TitleFromDetector derives a human-readable title from a detector id.
// Known ids return their curated override; all others are transformed by
// replacing hyphens and underscores with spaces and capitalizing each word.
// An empty id yields "Unknown".
func TitleFromDetector(detector string) string {
	d := strings.TrimSpace(detector)
	if d == "" {
		return "Unknown"
	}
	if title, ok := titleOverrides[d]; ok {
		return title
	}
	return slugToTitle(d)
}

// slugToTitle converts a detector slug to title-cased text.
// Example: "arbitrary-send_erc20" -> "Arbitrary Send Erc20"
func slugToTitle(slug string) string {
	s := strings.ReplaceAll(slug, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
