package orders

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// fallbackInitials is used when no initials can be derived from the user name.
const fallbackInitials = "CL"

// GenerateOrderNumber produces a human-readable order identifier shaped as
// <initials><yy><mm>-<nnn><hex2>, e.g. AD2508-1237F. Uniqueness is only
// probabilistic; callers persist behind a unique constraint and regenerate on
// collision.
func GenerateOrderNumber(userName string, now time.Time) string {
	return formatOrderNumber(userName, now, 100+rand.IntN(900), byte(rand.IntN(256)))
}

func formatOrderNumber(userName string, now time.Time, n int, suffix byte) string {
	return fmt.Sprintf("%s%02d%02d-%03d%02X",
		initials(userName), now.Year()%100, int(now.Month()), n, suffix)
}

// initials derives up to two uppercase A-Z letters from the whitespace-split
// tokens of name. A single token contributes its first two letters. Letters
// outside A-Z after uppercasing become 'X'; a name yielding nothing gets the
// fixed placeholder.
func initials(name string) string {
	fields := strings.Fields(name)
	var letters []rune
	switch {
	case len(fields) >= 2:
		letters = append(letters, firstRune(fields[0]), firstRune(fields[1]))
	case len(fields) == 1:
		for _, r := range fields[0] {
			letters = append(letters, r)
			if len(letters) == 2 {
				break
			}
		}
	}
	if len(letters) == 0 {
		return fallbackInitials
	}

	out := make([]rune, 0, 2)
	for _, r := range strings.ToUpper(string(letters)) {
		if r < 'A' || r > 'Z' {
			r = 'X'
		}
		out = append(out, r)
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 1 {
		out = append(out, 'X')
	}
	return string(out)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 'X'
}
