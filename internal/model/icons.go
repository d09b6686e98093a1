package model

// Centralized icons for the UI components
const (
	IconDirectory  = "📁"
	IconFile       = "📃"
	IconScript     = "⚙"
	IconCredential = "🔑"
	IconClickable  = "▶"
	IconRunning    = "…"
	IconDone       = "✓"
)

// IconFor picks the listing icon of an entry.
func IconFor(e Entry) string {
	if e.IsDir() {
		return IconDirectory
	}
	switch DocumentOf(e.Name) {
	case DocumentScript:
		return IconScript
	case DocumentCredential:
		return IconCredential
	}
	return IconFile
}
