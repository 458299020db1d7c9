package domain

// Style selects which transformation persona is applied to a participant's
// nicknames and messages.
type Style string

const (
	StyleUwu       Style = "uwu"
	StyleVictorian Style = "victorian"
	StyleCaveman   Style = "caveman"
)

// Styles lists every known style, in presentation order.
func Styles() []Style {
	return []Style{StyleUwu, StyleVictorian, StyleCaveman}
}

// ParseStyle resolves a raw style identifier, falling back to the provided
// default when the id is unknown or empty.
func ParseStyle(raw string, fallback Style) Style {
	s := Style(raw)
	for _, known := range Styles() {
		if s == known {
			return s
		}
	}
	return fallback
}
