package ui

// Color is an ANSI truecolor escape sequence.
type Color string

const (
	ColorDefault Color = "\033[0m"
	ColorGray    Color = "\033[38;2;150;150;150m"
	ColorWhite   Color = "\033[38;2;255;255;255m"

	ColorRed      Color = "\033[38;2;255;0;0m"
	ColorLightRed Color = "\033[38;2;255;150;150m"

	ColorGreen      Color = "\033[38;2;0;255;0m"
	ColorLightGreen Color = "\033[38;2;150;255;150m"

	ColorYellow      Color = "\033[38;2;255;255;0m"
	ColorLightYellow Color = "\033[38;2;255;255;150m"

	ColorLightBlue Color = "\033[38;2;150;150;255m"
	ColorBrown     Color = "\033[38;2;165;42;42m"

	ColorLightPurple Color = "\033[38;2;200;150;255m"
	ColorOrange      Color = "\033[38;2;255;165;0m"
	ColorLightOrange Color = "\033[38;2;255;200;150m"
)

// markupColors maps the {{name}} tags accepted by PrintMarkup.
var markupColors = map[string]Color{
	"{{default}}": ColorDefault,
	"{{gray}}":    ColorGray,
	"{{yellow}}":  ColorYellow,
	"{{orange}}":  ColorOrange,
	"{{brown}}":   ColorBrown,
	"{{green}}":   ColorGreen,
	"{{red}}":     ColorRed,
	"{{purple}}":  ColorLightPurple,
}
