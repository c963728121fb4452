// Package parser turns a command line into a Command. It splits the line
// into arguments (honouring shell quoting) and detects the background (&),
// output redirection (>, >>) and pipe (|) markers. Unquoted markers are
// recognised anywhere on the line, with or without surrounding spaces.
package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	shlex "github.com/anmitsu/go-shlex"
)

const (
	backgroundMarker = "&"
	redirectMarker   = ">"
	appendMarker     = ">>"
	pipeMarker       = "|"
)

var (
	// ErrMissingTarget is returned when a redirection marker is not followed
	// by a file name.
	ErrMissingTarget = errors.New("missing redirection target")

	// ErrTooManyRedirections is returned when output is redirected more than
	// once.
	ErrTooManyRedirections = errors.New("output can only be redirected once")

	// ErrTooManyPipes is returned when a line has more than one pipe marker.
	ErrTooManyPipes = errors.New("only a single pipe is supported")
)

// Command is a parsed command line.
type Command struct {
	Args       []string // arguments, without &, > and the target; | is kept
	Background bool     // run in the background
	Redirect   bool     // stdout goes to Target
	Append     bool     // Target is appended to rather than truncated
	Pipe       bool     // Args holds two commands separated by |
	Target     string   // redirection target
}

// Parse splits line into a Command. An empty or blank line yields a Command
// with no Args. Quoted or escaped markers are plain text.
func Parse(line string) (*Command, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return nil, err
	}

	cmd := &Command{}

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		if !token.marker {
			cmd.Args = append(cmd.Args, token.text)
			continue
		}

		switch token.text {
		case backgroundMarker:
			cmd.Background = true

		case redirectMarker, appendMarker:
			if cmd.Redirect {
				return nil, ErrTooManyRedirections
			}
			if i+1 >= len(tokens) || tokens[i+1].marker {
				return nil, ErrMissingTarget
			}

			cmd.Redirect = true
			cmd.Append = token.text == appendMarker
			cmd.Target = tokens[i+1].text
			i++

		case pipeMarker:
			if cmd.Pipe {
				return nil, ErrTooManyPipes
			}

			cmd.Pipe = true
			cmd.Args = append(cmd.Args, token.text)
		}
	}

	return cmd, nil
}

// OpenTarget opens the redirection target for writing, creating it with user
// read/write permissions if needed. It is truncated unless the command asked
// to append.
func (c *Command) OpenTarget() (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if c.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	file, err := os.OpenFile(c.Target, flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("redirect: %w", err)
	}

	return file, nil
}

// token is one word of a command line. Only unquoted markers have marker set.
type token struct {
	text   string
	marker bool
}

// tokenize cuts line at its markers and splits the text between them into
// words with shell quoting rules.
func tokenize(line string) ([]token, error) {
	var tokens []token

	for _, seg := range segments(line) {
		if seg.marker {
			tokens = append(tokens, seg)
			continue
		}

		words, err := shlex.Split(seg.text, true)
		if err != nil {
			return nil, fmt.Errorf("syntax error: %w", err)
		}

		for _, word := range words {
			tokens = append(tokens, token{text: word})
		}
	}

	return tokens, nil
}

// segments splits line around every marker that is neither quoted nor
// escaped. Text segments keep their quotes for shlex.
func segments(line string) []token {
	var (
		segs    []token
		text    strings.Builder
		quote   rune
		escaped bool
	)

	flush := func() {
		if text.Len() > 0 {
			segs = append(segs, token{text: text.String()})
			text.Reset()
		}
	}

	runes := []rune(line)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '&' || r == '|' || r == '>':
			flush()

			marker := string(r)
			if r == '>' && i+1 < len(runes) && runes[i+1] == '>' {
				marker = appendMarker
				i++
			}

			segs = append(segs, token{text: marker, marker: true})

			continue
		}

		text.WriteRune(r)
	}

	flush()

	return segs
}
