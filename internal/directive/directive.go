// Package directive extracts widget directives (@code, @shell, @chart) from
// free-form chat text.
package directive

import (
	"strings"

	"github.com/zjrosen/devdeck/internal/payload"
)

// Token is a literal, case-sensitive directive marker.
type Token string

const (
	TokenCode  Token = "@code"
	TokenShell Token = "@shell"
	TokenChart Token = "@chart"
)

// tokens is checked in order at every '@'. None is a prefix of another.
var tokens = []Token{TokenCode, TokenShell, TokenChart}

// Target returns the widget a token routes to.
func (t Token) Target() payload.Target {
	switch t {
	case TokenCode:
		return payload.TargetEditor
	case TokenShell:
		return payload.TargetShell
	default:
		return payload.TargetVisualization
	}
}

// Directive is one routed instruction extracted from chat text.
type Directive struct {
	Target payload.Target
	// Text is the trimmed raw text that followed the token.
	Text string
	// Payload is the typed decoding of Text. Nil when Err is set.
	Payload payload.Payload
	// Err is set only for an @chart payload that could not be decoded.
	Err error
}

// Result is the output of Parse.
type Result struct {
	Directives []Directive
	// Remainder is the conversational text. Without directives it is the
	// whole input; otherwise it is the trimmed text before the first token.
	Remainder string
}

// HasDirectives reports whether any token was found.
func (r Result) HasDirectives() bool {
	return len(r.Directives) > 0
}

type match struct {
	token Token
	start int
}

// Parse scans text for directive tokens and returns them in left-to-right
// order. Each payload runs to the next token or the end of text. Parse never
// fails; a malformed chart payload is reported on its Directive.
func Parse(text string) Result {
	matches := scan(text)
	if len(matches) == 0 {
		return Result{Remainder: text}
	}

	result := Result{
		Directives: make([]Directive, 0, len(matches)),
		Remainder:  strings.TrimSpace(text[:matches[0].start]),
	}
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1].start
		}
		raw := strings.TrimSpace(text[m.start+len(m.token) : end])
		result.Directives = append(result.Directives, decode(m.token, raw))
	}
	return result
}

func scan(text string) []match {
	var matches []match
	for i := 0; i < len(text); i++ {
		if text[i] != '@' {
			continue
		}
		for _, tok := range tokens {
			if strings.HasPrefix(text[i:], string(tok)) {
				matches = append(matches, match{token: tok, start: i})
				i += len(tok) - 1
				break
			}
		}
	}
	return matches
}

func decode(tok Token, raw string) Directive {
	d := Directive{Target: tok.Target(), Text: raw}
	switch tok {
	case TokenCode:
		d.Payload = payload.Editor{Content: raw, Language: DetectLanguage(raw)}
	case TokenShell:
		d.Payload = payload.Shell{Command: raw}
	case TokenChart:
		chart, err := ParseChart(raw)
		if err != nil {
			d.Err = err
			return d
		}
		d.Payload = chart
	}
	return d
}
