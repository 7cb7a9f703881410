package ed2k

// Server-side truncation limits applied when copying catalog rows into
// search results. Stored values are kept as shared; only the outgoing
// copy is clamped.
const (
	MaxFileNameLen = 255
	MaxFileExtLen  = 32
	MaxCodecLen    = MaxFileExtLen
)

// Truncate clamps s to at most max bytes.
func Truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
