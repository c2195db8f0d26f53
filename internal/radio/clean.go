package radio

import (
	"regexp"
	"strings"
)

// Store metadata often carries retail noise ("(Explicit)", "[Clean]",
// "- Single") that reads badly in a chat message. These rules strip the
// common suffix decorations from artist and track names.
var cleanupRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[(\[](?:explicit|clean)(?:\s+version)?[)\]]`),
	regexp.MustCompile(`(?i)\s*[(\[](?:album|single|radio)\s+(?:version|edit|mix)[)\]]`),
	regexp.MustCompile(`(?i)\s*[(\[](?:remastered|re-?master)[^)\]]*[)\]]`),
	regexp.MustCompile(`(?i)\s*-\s*(?:single|ep)\s*$`),
	regexp.MustCompile(`(?i)\s*\[(?:feat\.?|ft\.?)[^\]]*\]`),
}

// CleanField normalizes one metadata field (artist or track name).
func CleanField(value string) string {
	s := value
	for _, re := range cleanupRules {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}
