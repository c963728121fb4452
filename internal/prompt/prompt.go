// Package prompt builds the interactive shell prompt: the current working
// directory, with the user's home directory abbreviated as "~", followed by
// the configured prompt symbol.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"Jobash/internal/painter"
)

// DefaultSymbol is used when no symbol is configured.
const DefaultSymbol = ">> "

// Update returns the prompt for the current working directory. Paths deeper
// than three levels are shortened to ~/.../parent/child. If the working
// directory cannot be determined only the symbol is returned.
func Update(p painter.Painter, symbol string) string {
	if symbol == "" {
		symbol = DefaultSymbol
	}

	currPath, err := os.Getwd()
	if err != nil {
		return symbol
	}

	return fmt.Sprintf("%s %s", p.Path(abbreviate(currPath)), symbol)
}

// abbreviate replaces the home directory with "~" and shortens deep paths.
func abbreviate(path string) string {
	home, err := os.UserHomeDir()
	if err == nil && home != "" && (path == home || strings.HasPrefix(path, home+"/")) {
		path = "~" + strings.TrimPrefix(path, home)
	}

	parts := strings.Split(path, "/")
	if len(parts) > 4 {
		prefix := "~"
		if parts[0] != "~" {
			prefix = ""
		}
		path = fmt.Sprintf("%s/.../%s/%s", prefix, parts[len(parts)-2], parts[len(parts)-1])
	}

	return path
}
