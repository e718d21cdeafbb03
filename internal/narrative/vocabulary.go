// Package narrative recovers typed issues from the free-text reply of the
// generation service. The reply is split into blocks at banner markers and
// each block is searched for labelled fields.
package narrative

// Field identifies an Issue attribute that can be read from a block.
type Field string

const (
	FieldType             Field = "type"
	FieldSeverity         Field = "severity"
	FieldCategory         Field = "category"
	FieldLocation         Field = "location"
	FieldDescription      Field = "description"
	FieldRecommendation   Field = "recommendation"
	FieldExplanation      Field = "explanation"
	FieldLearningResource Field = "learningResource"
)

// multiline fields take the whole region up to the next label; the rest take
// the text on the label's own line.
var multiline = map[Field]bool{
	FieldDescription:      true,
	FieldRecommendation:   true,
	FieldExplanation:      true,
	FieldLearningResource: true,
}

// Vocabulary is the marker and label configuration of an Extractor.
type Vocabulary struct {
	// Markers are regular expressions; each match opens a new block.
	Markers []string
	// Labels lists the accepted spellings per field, matched case-insensitively.
	Labels map[Field][]string
	// Fenced lists fields whose value prefers the body of a ``` fence.
	Fenced []Field
}

// DefaultVocabulary recognises the vulnerability banner and the mentoring
// observation banner.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Markers: []string{
			`🚨[ \t]*(?:SECURITY[ \t]+)?VULNERABILITY[ \t]+DETECTED`,
			`💡[^\n]*OBSERVATION`,
		},
		Labels: map[Field][]string{
			FieldType:             {"Type"},
			FieldSeverity:         {"Severity"},
			FieldCategory:         {"Category"},
			FieldLocation:         {"Location"},
			FieldDescription:      {"ATTACK SCENARIO", "Description", "Issue"},
			FieldRecommendation:   {"SECURE FIX", "Recommendation", "ACTIONABLE IMPROVEMENTS"},
			FieldExplanation:      {"REAL-WORLD IMPACT", "Explanation"},
			FieldLearningResource: {"LEARN MORE", "LEARNING RESOURCES"},
		},
		Fenced: []Field{FieldRecommendation},
	}
}
