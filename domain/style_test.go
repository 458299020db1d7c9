package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseStyle(t *testing.T) {
	req := require.New(t)

	req.Equal(StyleVictorian, ParseStyle("victorian", StyleUwu))
	req.Equal(StyleCaveman, ParseStyle("caveman", StyleUwu))

	// Unknown and empty identifiers fall back to the default
	req.Equal(StyleUwu, ParseStyle("pirate", StyleUwu))
	req.Equal(StyleCaveman, ParseStyle("", StyleCaveman))
}

func TestNewMessageID(t *testing.T) {
	req := require.New(t)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := NewMessageID(at, "conn-1")
	req.Equal("1748779200000-conn-1", id)
}
