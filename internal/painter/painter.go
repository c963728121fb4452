// Package painter renders coloured and styled text for the shell prompt. It
// supports named colours with optional bold formatting and a few pre-defined
// themes.
package painter

import (
	"strings"

	"github.com/fatih/color"

	"Jobash/internal/config"
)

var colours = map[string]color.Attribute{
	"black":         color.FgBlack,
	"red":           color.FgRed,
	"green":         color.FgGreen,
	"yellow":        color.FgYellow,
	"bright yellow": color.FgHiYellow,
	"blue":          color.FgHiBlue,
	"magenta":       color.FgMagenta,
	"bright pink":   color.FgHiMagenta,
	"cyan":          color.FgCyan,
	"white":         color.FgWhite,
}

// Painter holds styling information for the shell prompt.
type Painter struct {
	path *color.Color // nil when the path is left unstyled
}

// NewPainter creates a Painter from cfg. A theme other than "default" or
// "none" overrides the colour settings.
func NewPainter(cfg config.Prompt) Painter {
	theme := strings.ToLower(strings.TrimSpace(cfg.Theme))
	if theme == "none" {
		return Painter{}
	}

	resolveTheme(theme, &cfg)

	var attributes []color.Attribute

	if attribute, ok := colours[strings.ToLower(strings.TrimSpace(cfg.PathColour))]; ok {
		attributes = append(attributes, attribute)
	}
	if cfg.PathColourBold {
		attributes = append(attributes, color.Bold)
	}

	if len(attributes) == 0 {
		return Painter{}
	}

	return Painter{path: color.New(attributes...)}
}

// resolveTheme applies a predefined theme to cfg.
func resolveTheme(theme string, cfg *config.Prompt) {
	switch theme {
	case "jobash":
		cfg.PathColour = "yellow"
		cfg.PathColourBold = false
	case "wildberries":
		cfg.PathColour = "bright pink"
		cfg.PathColourBold = true
	case "monokai":
		cfg.PathColour = "magenta"
		cfg.PathColourBold = true
	case "ohmybash":
		cfg.PathColour = "green"
		cfg.PathColourBold = false
	}
}

// Path paints the working directory shown in the prompt.
func (p Painter) Path(text string) string {
	if p.path == nil {
		return text
	}
	return p.path.Sprint(text)
}
