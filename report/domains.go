package report

import "regexp"

// urlPattern grabs the host of anything that looks like a URL. An optional
// "www." prefix is folded away; the host itself is kept as written
// (case-preserved).
var urlPattern = regexp.MustCompile(`https?://(?:www\.)?([^\s\]/)]+)`)

// extractDomains returns every linked domain found in the text, in order of
// appearance, with duplicates retained so callers can count frequency.
func extractDomains(text string) []string {
	var domains []string
	for _, m := range urlPattern.FindAllStringSubmatch(text, -1) {
		domains = append(domains, m[1])
	}
	return domains
}
