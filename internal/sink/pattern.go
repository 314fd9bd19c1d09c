package sink

import (
	"strings"
	"time"
)

// strftime-style directives supported in file name patterns.
var patternRepl = strings.NewReplacer(
	"%Y", "2006",
	"%y", "06",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
)

// HasDateTokens reports whether the pattern contains any date/time directive.
// Patterns without tokens produce a single fixed file name, so per-period
// retention cannot be inferred for them.
func HasDateTokens(pattern string) bool {
	for _, tok := range []string{"%Y", "%y", "%m", "%d", "%H", "%M", "%S"} {
		if strings.Contains(pattern, tok) {
			return true
		}
	}
	return false
}

// ResolveName expands the pattern's date directives for the given time.
func ResolveName(pattern string, now time.Time) string {
	return now.Format(patternRepl.Replace(pattern))
}

// ParseNameTime parses a file name back into its period time using the same
// pattern. Returns false for names that do not match.
func ParseNameTime(pattern, name string) (time.Time, bool) {
	ts, err := time.Parse(patternRepl.Replace(pattern), name)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
