package analyzer

import (
	"manifestscan/internal/evidence"
	"strings"
)

// PersonName reduces the "Name <email> (url)" shorthand used by several
// manifest formats to just the name. A bare email or URL yields "".
func PersonName(s string) string {
	if i := strings.IndexAny(s, "<("); i >= 0 {
		s = s[:i]
	}
	s = evidence.Normalize(s)
	if strings.Contains(s, "@") || strings.Contains(s, "://") {
		return ""
	}
	return s
}
