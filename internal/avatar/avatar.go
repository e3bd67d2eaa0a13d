// Package avatar derives deterministic display badges from usernames. The
// derivation must stay identical on every surface that renders a badge, so a
// collaborator's color never differs between clients.
package avatar

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Curated palette with acceptable contrast against white or black text.
var palette = []string{
	"#3B82F6", // blue
	"#10B981", // green
	"#F59E0B", // amber
	"#EF4444", // red
	"#8B5CF6", // purple
	"#EC4899", // pink
	"#06B6D4", // cyan
	"#84CC16", // lime
	"#F97316", // orange
	"#6366F1", // indigo
	"#14B8A6", // teal
	"#A855F7", // violet
	"#22C55E", // emerald
	"#EAB308", // yellow
	"#F43F5E", // rose
	"#0EA5E9", // sky
}

const fallbackColor = "#9CA3AF"

var (
	whitespaceSplit = regexp.MustCompile(`\s+`)
	separatorSplit  = regexp.MustCompile(`[._-]+`)
	camelCaseStart  = regexp.MustCompile(`^([a-z])([A-Z])`)
)

// Badge is the deterministic avatar rendered next to a user's presence.
type Badge struct {
	Initials    string `json:"initials"`
	ColorHex    string `json:"colorHex"`
	DisplayName string `json:"displayName"`
	TextColor   string `json:"textColor"`
}

// hashString mirrors the 32-bit string hash used by every client: it walks
// UTF-16 code units so multi-byte usernames hash the same everywhere.
func hashString(value string) int32 {
	var hash int32
	for _, unit := range utf16.Encode([]rune(value)) {
		hash = (hash << 5) - hash + int32(unit)
	}
	if hash < 0 {
		return -hash
	}
	return hash
}

// Initials extracts one or two uppercase initials from a username.
func Initials(username string) string {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return "?"
	}

	if parts := whitespaceSplit.Split(trimmed, -1); len(parts) >= 2 {
		return firstLetters(parts[0], parts[len(parts)-1])
	}
	if parts := separatorSplit.Split(trimmed, -1); len(parts) >= 2 && parts[0] != "" && parts[len(parts)-1] != "" {
		return firstLetters(parts[0], parts[len(parts)-1])
	}
	if match := camelCaseStart.FindStringSubmatch(trimmed); match != nil {
		return strings.ToUpper(match[1] + match[2])
	}

	runes := []rune(trimmed)
	if len(runes) <= 2 {
		return strings.ToUpper(trimmed)
	}
	return strings.ToUpper(string(runes[0]))
}

func firstLetters(first, last string) string {
	initials := string([]rune(first)[0]) + string([]rune(last)[0])
	return strings.ToUpper(initials)
}

// Color picks a deterministic palette entry for the username.
func Color(username string) string {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return fallbackColor
	}
	index := int(hashString(strings.ToLower(trimmed))) % len(palette)
	return palette[index]
}

// Contrasttext returns "black" or "white" depending on the luminance of the
// provided hex background color.
func ContrastText(backgroundHex string) string {
	hex := strings.TrimPrefix(backgroundHex, "#")
	if len(hex) != 6 {
		return "black"
	}
	r, errR := strconv.ParseInt(hex[0:2], 16, 32)
	g, errG := strconv.ParseInt(hex[2:4], 16, 32)
	b, errB := strconv.ParseInt(hex[4:6], 16, 32)
	if errR != nil || errG != nil || errB != nil {
		return "black"
	}
	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return "black"
	}
	return "white"
}

// ForUser derives the full badge. When the username is empty the local part of
// the email is used for display.
func ForUser(username, email string) Badge {
	displayName := strings.TrimSpace(username)
	if displayName == "" {
		if at := strings.Index(email, "@"); at > 0 {
			displayName = email[:at]
		} else {
			displayName = "User"
		}
	}
	colorHex := Color(displayName)
	return Badge{
		Initials:    Initials(displayName),
		ColorHex:    colorHex,
		DisplayName: displayName,
		TextColor:   ContrastText(colorHex),
	}
}
