package colors

import "fmt"

// ColorFunc colorizes any value into a string. Loggers switch their color context when one is passed as an argument.
type ColorFunc = func(s any) string

// Reset returns the input unchanged and resets the color context.
func Reset(s any) string {
	return fmt.Sprintf("%v", s)
}

func bold(s string) string {
	return Colorize(s, BOLD)
}

// Red colors s red.
func Red(s any) string { return Colorize(s, RED) }

// RedBold colors s bold red.
func RedBold(s any) string { return bold(Red(s)) }

// Green colors s green.
func Green(s any) string { return Colorize(s, GREEN) }

// GreenBold colors s bold green.
func GreenBold(s any) string { return bold(Green(s)) }

// Yellow colors s yellow.
func Yellow(s any) string { return Colorize(s, YELLOW) }

// YellowBold colors s bold yellow.
func YellowBold(s any) string { return bold(Yellow(s)) }

// Blue colors s blue.
func Blue(s any) string { return Colorize(s, BLUE) }

// BlueBold colors s bold blue.
func BlueBold(s any) string { return bold(Blue(s)) }

// Magenta colors s magenta.
func Magenta(s any) string { return Colorize(s, MAGENTA) }

// Cyan colors s cyan.
func Cyan(s any) string { return Colorize(s, CYAN) }

// CyanBold colors s bold cyan.
func CyanBold(s any) string { return bold(Cyan(s)) }

// Bold renders s in bold.
func Bold(s any) string { return Colorize(s, BOLD) }

// DarkGray colors s dark gray. Reports use it for raw hex payloads.
func DarkGray(s any) string { return Colorize(s, DARK_GRAY) }
