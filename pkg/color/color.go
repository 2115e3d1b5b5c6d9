package color

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// ANSI color codes understood by termenv.Profile.Color
const (
	Green     = "2"
	Yellow    = "3"
	Blue      = "4"
	Magenta   = "5"
	Cyan      = "6"
	Gray      = "8"
	BrightRed = "9"
)

var profile = termenv.EnvColorProfile()

// EnableColor switches styling on (using the environment's profile) or off
func EnableColor(enable bool) {
	if enable {
		profile = termenv.EnvColorProfile()
		return
	}
	profile = termenv.Ascii
}

func Colorize(color, text string) string {
	return profile.String(text).Foreground(profile.Color(color)).String()
}

func BrightRedText(text string) string {
	return Colorize(BrightRed, text)
}

func GreenText(text string) string {
	return Colorize(Green, text)
}

func YellowText(text string) string {
	return Colorize(Yellow, text)
}

func BlueText(text string) string {
	return Colorize(Blue, text)
}

func MagentaText(text string) string {
	return Colorize(Magenta, text)
}

func CyanText(text string) string {
	return Colorize(Cyan, text)
}

func GrayText(text string) string {
	return Colorize(Gray, text)
}

// BoldColorText applies a color and bold weight in a single escape sequence
func BoldColorText(color, text string) string {
	return profile.String(text).Foreground(profile.Color(color)).Bold().String()
}

func Position(pos string) string {
	return CyanText(pos)
}

// Indent prefixes every line of text with n spaces
func Indent(text string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

func Header(title string) string {
	return GreenText(fmt.Sprintf("=== %s ===", title))
}
