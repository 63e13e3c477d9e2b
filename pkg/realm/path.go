package realm

import "strings"

const realmsSegment = "/realms/"

// ParseRealmName extracts the realm name from a request path of the form
// "<anything>/realms/<name>[/<anything>]". When the marker occurs more than
// once the last occurrence followed by a non-empty segment wins.
func ParseRealmName(path string) (string, bool) {
	end := len(path)
	for {
		i := strings.LastIndex(path[:end], realmsSegment)
		if i < 0 {
			return "", false
		}
		seg := path[i+len(realmsSegment):]
		if j := strings.IndexByte(seg, '/'); j >= 0 {
			seg = seg[:j]
		}
		if seg != "" {
			return seg, true
		}
		// occurrences may share the leading slash
		end = i + len(realmsSegment) - 1
	}
}
