package narrative

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"codesage/internal/types"
)

var (
	separatorRe = regexp.MustCompile(`(?m)^[ \t]*-{3,}[ \t]*$`)
	fenceRe     = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Extractor is immutable and safe for concurrent use.
type Extractor struct {
	marker *regexp.Regexp
	label  *regexp.Regexp
	fields map[string]Field
	fenced map[Field]bool
}

// New compiles a vocabulary.
func New(vocab Vocabulary) (*Extractor, error) {
	if len(vocab.Markers) == 0 {
		return nil, errors.New("narrative: vocabulary has no markers")
	}
	alts := make([]string, 0, len(vocab.Markers))
	for _, m := range vocab.Markers {
		re, err := regexp.Compile(m)
		if err != nil {
			return nil, fmt.Errorf("narrative: bad marker %q: %w", m, err)
		}
		if re.MatchString("") {
			return nil, fmt.Errorf("narrative: marker %q matches empty text", m)
		}
		alts = append(alts, "(?:"+m+")")
	}

	e := &Extractor{
		marker: regexp.MustCompile(strings.Join(alts, "|")),
		fields: make(map[string]Field),
		fenced: make(map[Field]bool),
	}
	var labels []string
	for f, names := range vocab.Labels {
		for _, n := range names {
			key := labelKey(n)
			if key == "" {
				continue
			}
			if prev, ok := e.fields[key]; ok && prev != f {
				return nil, fmt.Errorf("narrative: label %q used by %s and %s", n, prev, f)
			}
			e.fields[key] = f
			labels = append(labels, key)
		}
	}
	if len(labels) == 0 {
		return nil, errors.New("narrative: vocabulary has no labels")
	}
	// Longest first so a label never shadows a longer one sharing its prefix.
	sort.Slice(labels, func(i, j int) bool {
		if len(labels[i]) != len(labels[j]) {
			return len(labels[i]) > len(labels[j])
		}
		return labels[i] < labels[j]
	})
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(l), " ", `[ \t]+`)
	}
	e.label = regexp.MustCompile(`(?im)^[^\p{L}\p{N}\n]*(` + strings.Join(quoted, "|") +
		`)[ \t]*(?:\*\*|__)?[ \t]*:[ \t]*(?:\*\*|__)?[ \t]*(.*)$`)

	for _, f := range vocab.Fenced {
		e.fenced[f] = true
	}
	return e, nil
}

// MustNew is New for vocabularies known to be valid.
func MustNew(vocab Vocabulary) *Extractor {
	e, err := New(vocab)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns one issue per marker block, in reply order. A reply with no
// markers yields an empty slice. Extract never panics.
func (e *Extractor) Extract(reply string) (out []types.Issue) {
	out = []types.Issue{}
	// On a panic, keep whatever was parsed before it.
	defer func() { _ = recover() }()
	for _, block := range e.Blocks(reply) {
		out = append(out, e.parse(block))
	}
	return out
}

// Blocks splits reply at markers. Each block starts after its marker and runs
// to the next marker or the end of the reply.
func (e *Extractor) Blocks(reply string) []string {
	reply = strings.ReplaceAll(reply, "\r\n", "\n")
	locs := e.marker.FindAllStringIndex(reply, -1)
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(reply)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, reply[loc[1]:end])
	}
	return blocks
}

func (e *Extractor) parse(block string) types.Issue {
	// Labels and separators inside fenced code belong to the code sample.
	fences := fenceRe.FindAllStringIndex(block, -1)
	inFence := func(pos int) bool {
		for _, f := range fences {
			if pos > f[0] && pos < f[1] {
				return true
			}
		}
		return false
	}
	for _, loc := range separatorRe.FindAllStringIndex(block, -1) {
		if !inFence(loc[0]) {
			block = block[:loc[0]]
			break
		}
	}

	var matches [][]int
	for _, m := range e.label.FindAllStringSubmatchIndex(block, -1) {
		if !inFence(m[0]) {
			matches = append(matches, m)
		}
	}
	vals := make(map[Field]string)
	for i, m := range matches {
		f, ok := e.fields[labelKey(block[m[2]:m[3]])]
		if !ok {
			continue
		}
		if _, seen := vals[f]; seen {
			continue
		}
		end := len(block)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		inline := strings.TrimSpace(block[m[4]:m[5]])
		vals[f] = e.value(f, inline, block[m[1]:end])
	}

	return types.Issue{
		Type:             vals[FieldType],
		Severity:         types.NormalizeSeverity(vals[FieldSeverity]),
		Category:         types.NormalizeCategory(vals[FieldCategory]),
		Location:         vals[FieldLocation],
		Description:      vals[FieldDescription],
		Recommendation:   vals[FieldRecommendation],
		Explanation:      vals[FieldExplanation],
		LearningResource: vals[FieldLearningResource],
		Source:           "narrative",
	}.Filled()
}

func (e *Extractor) value(f Field, inline, region string) string {
	if e.fenced[f] {
		if m := fenceRe.FindStringSubmatch(inline + "\n" + region); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	if multiline[f] {
		return strings.TrimSpace(inline + "\n" + region)
	}
	if inline != "" {
		return inline
	}
	for _, line := range strings.Split(region, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func labelKey(s string) string {
	return strings.ToLower(spaceRe.ReplaceAllString(strings.TrimSpace(s), " "))
}
