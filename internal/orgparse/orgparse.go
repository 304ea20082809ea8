// Package orgparse extracts the subset of org-mode syntax this filesystem
// round-trips: a flat sequence of level-1 headlines, each optionally
// carrying a TODO keyword, a planning line (DEADLINE/CLOSED), a
// :PROPERTIES: drawer, and a body.
//
// Grounded on _examples/original_source/src/org.rs, which uses the Rust
// `orgize` crate to extract the same shape (and treats COMMENT headlines
// as excluded from the live forest, matching orgize's own COMMENT
// handling) — there is no Go org-mode parser in the example pack, so this
// hand-rolls the narrow subset the renderer in internal/render emits,
// documented in DESIGN.md as the one place a real parser dependency could
// not be wired (no pack repo imports one).
package orgparse

import "strings"

// Headline is one parsed entry: calendar events and tasks both round-trip
// through this single shape (a "* " line, optional planning, optional
// property drawer, optional body).
type Headline struct {
	Todo       bool
	Comment    bool
	Title      string
	Deadline   string // raw "<...>" text, empty if absent
	Closed     string // raw "[...]" text, empty if absent
	Properties map[string]string
	Body       string
	Raw        string // trimmed raw text of the whole block, for diff "changed" comparisons
}

// ID returns the :id: property, or "" if the headline has none (true of
// every pending insert rendered into a conflict block).
func (h *Headline) ID() string {
	return h.Properties["id"]
}

// Parse extracts the flat, document-ordered sequence of live headlines
// from text. COMMENT headlines (the read-only remote side of a rendered
// conflict block) are parsed but excluded from the returned slice.
func Parse(text string) []*Headline {
	lines := strings.Split(text, "\n")
	var out []*Headline

	i := 0
	for i < len(lines) {
		rest, ok := headlineRest(lines[i])
		if !ok {
			i++
			continue
		}
		h := &Headline{Properties: map[string]string{}}
		var rawLines []string
		rawLines = append(rawLines, lines[i])

		rest = strings.TrimSpace(rest)
		if _, remainder, matched := takeKeyword(rest, "COMMENT"); matched {
			h.Comment = true
			rest = remainder
		}
		if _, remainder, matched := takeKeyword(rest, "TODO"); matched {
			h.Todo = true
			rest = remainder
		}
		h.Title = strings.TrimSpace(rest)
		i++

		if i < len(lines) && isPlanningLine(lines[i]) {
			parsePlanning(h, lines[i])
			rawLines = append(rawLines, lines[i])
			i++
		}

		// A calendar event's "<start>--<end>" range line (render.go's
		// eventHeadline) sits where a task's planning line would, right
		// before the properties drawer. It isn't planning syntax, so it
		// has to be recognized and stepped over here or the :PROPERTIES:
		// check below never fires; it's carried into the body as its
		// first line so render.EventFromHeadline can still pick it back
		// out (splitRangeLine assumes exactly that position).
		var rangeLine string
		if i < len(lines) && isRangeLine(lines[i]) {
			rangeLine = strings.TrimSpace(lines[i])
			rawLines = append(rawLines, lines[i])
			i++
		}

		if i < len(lines) && strings.TrimSpace(lines[i]) == ":PROPERTIES:" {
			rawLines = append(rawLines, lines[i])
			i++
			for i < len(lines) && strings.TrimSpace(lines[i]) != ":END:" {
				if k, v, ok := parseProperty(lines[i]); ok {
					h.Properties[k] = v
				}
				rawLines = append(rawLines, lines[i])
				i++
			}
			if i < len(lines) {
				rawLines = append(rawLines, lines[i]) // ":END:"
				i++
			}
		}

		var bodyLines []string
		if rangeLine != "" {
			bodyLines = append(bodyLines, rangeLine)
		}
		for i < len(lines) {
			if _, ok := headlineRest(lines[i]); ok {
				break
			}
			bodyLines = append(bodyLines, lines[i])
			i++
		}
		h.Body = strings.Trim(strings.Join(bodyLines, "\n"), "\n")
		rawLines = append(rawLines, bodyLines...)
		h.Raw = strings.TrimSpace(strings.Join(rawLines, "\n"))

		if h.Comment {
			continue
		}
		out = append(out, h)
	}
	return out
}

// headlineRest reports whether line opens a level-1 headline ("* ..."),
// returning the text after the star and the following space.
func headlineRest(line string) (string, bool) {
	if !strings.HasPrefix(line, "* ") {
		if line == "*" {
			return "", true
		}
		return "", false
	}
	return line[2:], true
}

// takeKeyword reports whether rest begins with keyword followed by a space
// or end of string, returning the remainder with the keyword stripped.
func takeKeyword(rest, keyword string) (string, string, bool) {
	if rest == keyword {
		return keyword, "", true
	}
	prefix := keyword + " "
	if strings.HasPrefix(rest, prefix) {
		return keyword, rest[len(prefix):], true
	}
	return "", rest, false
}

func isPlanningLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "DEADLINE:") || strings.HasPrefix(t, "CLOSED:")
}

// isRangeLine reports whether line is a calendar event's "<start>--<end>"
// range (render.go's eventHeadline), two bracketed timestamps joined by
// "--". Tasks never emit this, only the planning keywords above.
func isRangeLine(line string) bool {
	t := strings.TrimSpace(line)
	parts := strings.SplitN(t, "--", 2)
	if len(parts) != 2 {
		return false
	}
	return isBracketedTimestamp(parts[0]) && isBracketedTimestamp(parts[1])
}

func isBracketedTimestamp(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	switch s[0] {
	case '<':
		return s[len(s)-1] == '>'
	case '[':
		return s[len(s)-1] == ']'
	default:
		return false
	}
}

func parsePlanning(h *Headline, line string) {
	t := strings.TrimSpace(line)
	if idx := strings.Index(t, "DEADLINE:"); idx >= 0 {
		h.Deadline = extractBracketed(t[idx+len("DEADLINE:"):])
	}
	if idx := strings.Index(t, "CLOSED:"); idx >= 0 {
		h.Closed = extractBracketed(t[idx+len("CLOSED:"):])
	}
}

func extractBracketed(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return ""
	}
	var closer byte
	switch s[0] {
	case '<':
		closer = '>'
	case '[':
		closer = ']'
	default:
		return ""
	}
	end := strings.IndexByte(s, closer)
	if end < 0 {
		return ""
	}
	return s[:end+1]
}

func parseProperty(line string) (string, string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, ":") {
		return "", "", false
	}
	t = t[1:]
	idx := strings.Index(t, ":")
	if idx < 0 {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(t[:idx]))
	val := strings.TrimSpace(t[idx+1:])
	return key, val, true
}

// StripConflicts keeps only the local side of every rendered conflict
// block, per spec §4.4 ("Before diffing a user-edited buffer, the reader
// strips conflict blocks and keeps only the local side"). Grounded on
// _examples/original_source/src/org/conflict.rs's read_conflict_local.
func StripConflicts(text string) string {
	const (
		start  = "<<<<<<< remote (read only)"
		middle = "======="
		end    = ">>>>>>> local"
	)
	lines := strings.Split(text, "\n")
	var kept []string
	i := 0
	for i < len(lines) {
		if lines[i] == start {
			i++
			for i < len(lines) && lines[i] != middle {
				i++
			}
			i++ // skip the "=======" line itself
			for i < len(lines) && lines[i] != end {
				kept = append(kept, lines[i])
				i++
			}
			i++ // skip the ">>>>>>> local" line itself
			continue
		}
		kept = append(kept, lines[i])
		i++
	}
	return strings.Join(kept, "\n")
}
