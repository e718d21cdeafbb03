package rules

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxSnippetRunes = 120

// Match locates the first hit of a matcher. Line is 1-based; Text is the
// trimmed source line, capped for display.
type Match struct {
	Line int
	Text string
}

// Matcher finds the first occurrence of a pattern in a full source string.
type Matcher interface {
	Find(code string) (Match, bool)
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(code string) (Match, bool)

func (f MatcherFunc) Find(code string) (Match, bool) { return f(code) }

type regexMatcher struct {
	re *regexp.Regexp
}

// Regex compiles pattern into a Matcher.
func Regex(pattern string) (Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return regexMatcher{re: re}, nil
}

// MustRegex is Regex for built-in patterns.
func MustRegex(pattern string) Matcher {
	return regexMatcher{re: regexp.MustCompile(pattern)}
}

func (m regexMatcher) Find(code string) (Match, bool) {
	loc := m.re.FindStringIndex(code)
	if loc == nil {
		return Match{}, false
	}
	return matchAt(code, loc[0]), true
}

func (m regexMatcher) String() string { return m.re.String() }

// matchAt builds a Match for the line containing byte offset off.
func matchAt(code string, off int) Match {
	start := strings.LastIndexByte(code[:off], '\n') + 1
	end := strings.IndexByte(code[off:], '\n')
	if end < 0 {
		end = len(code)
	} else {
		end += off
	}
	return Match{
		Line: strings.Count(code[:start], "\n") + 1,
		Text: snippet(code[start:end]),
	}
}

func lineMatch(lines []string, idx int) Match {
	return Match{Line: idx + 1, Text: snippet(lines[idx])}
}

func snippet(line string) string {
	line = strings.TrimSpace(line)
	if !utf8.ValidString(line) {
		line = strings.ToValidUTF8(line, "?")
	}
	if utf8.RuneCountInString(line) <= maxSnippetRunes {
		return line
	}
	r := []rune(line)
	return string(r[:maxSnippetRunes]) + "..."
}

// lineRegex matches per line and rejects lines that also match veto.
// It stands in for the negative lookahead RE2 lacks.
func lineRegex(pattern, veto string) Matcher {
	re := regexp.MustCompile(pattern)
	no := regexp.MustCompile(veto)
	return MatcherFunc(func(code string) (Match, bool) {
		lines := strings.Split(code, "\n")
		for i, line := range lines {
			if re.MatchString(line) && !no.MatchString(line) {
				return lineMatch(lines, i), true
			}
		}
		return Match{}, false
	})
}

// longMethod reports the first method body longer than maxLines, using
// visibility keywords and a lone closing brace as boundaries.
func longMethod(maxLines int) Matcher {
	return MatcherFunc(func(code string) (Match, bool) {
		lines := strings.Split(code, "\n")
		inMethod, count, start := false, 0, 0
		for i, line := range lines {
			t := strings.TrimSpace(line)
			if strings.HasPrefix(t, "public ") || strings.HasPrefix(t, "private ") ||
				strings.HasPrefix(t, "protected ") || strings.HasPrefix(t, "func ") {
				if strings.Contains(t, "(") && strings.Contains(t, ")") {
					inMethod, count, start = true, 0, i
				}
			}
			if !inMethod {
				continue
			}
			count++
			if t == "}" {
				if count > maxLines {
					return lineMatch(lines, start), true
				}
				inMethod = false
			}
		}
		return Match{}, false
	})
}

// duplicateBlock reports the first window of n consecutive lines that
// reappears later without overlapping itself.
func duplicateBlock(n, minChars int) Matcher {
	return MatcherFunc(func(code string) (Match, bool) {
		lines := strings.Split(code, "\n")
		first := make(map[string]int)
		for i := 0; i+n <= len(lines); i++ {
			block := strings.Join(lines[i:i+n], "")
			if len(strings.TrimSpace(block)) <= minChars {
				continue
			}
			j, ok := first[block]
			if !ok {
				first[block] = i
				continue
			}
			if i-j >= n {
				return lineMatch(lines, i), true
			}
		}
		return Match{}, false
	})
}

// missingAbstraction fires when a class is declared and the source has no
// interface or abstract type at all.
func missingAbstraction() Matcher {
	return MatcherFunc(func(code string) (Match, bool) {
		idx := strings.Index(code, "class ")
		if idx < 0 || strings.Contains(code, "interface ") || strings.Contains(code, "abstract ") {
			return Match{}, false
		}
		return matchAt(code, idx), true
	})
}

var shortIdentifier = regexp.MustCompile(`\b[a-z]{1,2}\b|\b[a-z]\d+\b`)

// commonShortWords are keywords and conventional names that are not poor naming.
var commonShortWords = map[string]bool{
	"if": true, "do": true, "in": true, "is": true, "or": true, "as": true,
	"go": true, "to": true, "of": true, "on": true, "at": true, "by": true,
	"id": true, "ok": true, "fn": true, "db": true, "io": true, "os": true,
	"no": true, "up": true, "js": true, "ts": true, "py": true, "rs": true,
	"s": true, "t": true,
}

// poorNaming looks for one or two letter identifiers, skipping keywords.
func poorNaming() Matcher {
	return MatcherFunc(func(code string) (Match, bool) {
		for _, loc := range shortIdentifier.FindAllStringIndex(code, -1) {
			if commonShortWords[code[loc[0]:loc[1]]] {
				continue
			}
			return matchAt(code, loc[0]), true
		}
		return Match{}, false
	})
}
