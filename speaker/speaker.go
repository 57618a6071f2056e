// Package speaker attributes finalized group replies to the participant who
// spoke them. Resolution is a pure function over the reply text and the
// session roster; the bracketed name prefix is a display-layer concern and
// is never stripped from stored content.
package speaker

import (
	"regexp"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

// namePattern matches a leading "[Name]:" tag. The captured name must then
// exactly equal a participant display name; fuzzy matching would invite
// misattribution.
var namePattern = regexp.MustCompile(`^\s*\[([^\[\]]+)\]:`)

// Resolve returns the ID of the participant whose display name exactly
// matches the reply's leading "[Name]:" tag. When names are not unique, the
// first roster entry wins. No tag, or a tag naming nobody on the roster,
// leaves the reply unattributed.
func Resolve(content string, participants []core.Participant) (string, bool) {
	m := namePattern.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	name := m[1]
	for _, p := range participants {
		if p.Name == name {
			return p.ID, true
		}
	}
	return "", false
}
