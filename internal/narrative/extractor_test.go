package narrative

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesage/internal/types"
)

const twoBlocks = "Nice use of constants.\n\n" +
	"🚨 SECURITY VULNERABILITY DETECTED\n\n" +
	"**Type:** SQL Injection\n" +
	"**Severity:** CRITICAL\n" +
	"**Location:** `query = \"SELECT * FROM users WHERE id=\" + id`\n" +
	"**Category:** Security\n\n" +
	"**ATTACK SCENARIO:**\n" +
	"An attacker sends id=1 OR 1=1 and dumps the table.\n\n" +
	"**SECURE FIX:**\n" +
	"```java\n" +
	"PreparedStatement ps = conn.prepareStatement(\"SELECT * FROM users WHERE id = ?\");\n" +
	"```\n\n" +
	"**LEARN MORE:**\n" +
	"- https://owasp.org/www-community/attacks/SQL_Injection\n\n" +
	"---\n\n" +
	"🚨 SECURITY VULNERABILITY DETECTED\n\n" +
	"**Type:** Hardcoded Credentials\n" +
	"**Severity:** HIGH\n" +
	"**Location:** line 12\n" +
	"**Category:** Security\n\n" +
	"**ATTACK SCENARIO:**\n" +
	"Anyone with repository access can read the password.\n\n" +
	"**SECURE FIX:**\n" +
	"Read the password from the environment.\n\n" +
	"---\n\n" +
	"✅ Otherwise the code looks solid.\n"

func TestExtract_TwoBlocks(t *testing.T) {
	e := MustNew(DefaultVocabulary())
	got := e.Extract(twoBlocks)
	want := []types.Issue{
		{
			Type:             "SQL Injection",
			Severity:         types.SeverityCritical,
			Category:         types.CategorySecurity,
			Location:         "`query = \"SELECT * FROM users WHERE id=\" + id`",
			Description:      "An attacker sends id=1 OR 1=1 and dumps the table.",
			Recommendation:   `PreparedStatement ps = conn.prepareStatement("SELECT * FROM users WHERE id = ?");`,
			LearningResource: "- https://owasp.org/www-community/attacks/SQL_Injection",
			Source:           "narrative",
		},
		{
			Type:           "Hardcoded Credentials",
			Severity:       types.SeverityHigh,
			Category:       types.CategorySecurity,
			Location:       "line 12",
			Description:    "Anyone with repository access can read the password.",
			Recommendation: "Read the password from the environment.",
			Source:         "narrative",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_NoBlocks(t *testing.T) {
	e := MustNew(DefaultVocabulary())
	for _, reply := range []string{
		"",
		"✅ NO SECURITY VULNERABILITIES DETECTED\n\n**SECURITY STRENGTHS OBSERVED:**\n- Parameterized queries",
		"Type: looks like a field but there is no banner",
	} {
		got := e.Extract(reply)
		require.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestExtract_MissingFieldsAreNotSpecified(t *testing.T) {
	e := MustNew(DefaultVocabulary())
	got := e.Extract("🚨 VULNERABILITY DETECTED\n**Type:** XSS\n")
	require.Len(t, got, 1)
	is := got[0]
	assert.Equal(t, "XSS", is.Type)
	assert.Equal(t, types.Severity(types.NotSpecified), is.Severity)
	assert.Equal(t, types.Category(types.NotSpecified), is.Category)
	assert.Equal(t, types.NotSpecified, is.Location)
	assert.Equal(t, types.NotSpecified, is.Description)
	assert.Equal(t, types.NotSpecified, is.Recommendation)
}

func TestExtract_ObservationFormat(t *testing.T) {
	reply := "🌟 STRENGTHS OBSERVED\nClear names.\n\n" +
		"💡 [PERFORMANCE] OBSERVATION\n" +
		"Issue: Queries run inside a loop\n" +
		"Severity: Moderate\n" +
		"Category: Performance\n\n" +
		"📚 REAL-WORLD IMPACT:\n" +
		"Page loads slow down as data grows.\n\n" +
		"🛠️ ACTIONABLE IMPROVEMENTS:\n" +
		"1. Batch the lookups\n" +
		"2. Add an index\n\n" +
		"🌱 LEARNING RESOURCES:\n" +
		"https://use-the-index-luke.com\n"

	got := MustNew(DefaultVocabulary()).Extract(reply)
	require.Len(t, got, 1)
	is := got[0]
	assert.Equal(t, "Queries run inside a loop", is.Description)
	assert.Equal(t, types.SeverityMedium, is.Severity)
	assert.Equal(t, types.CategoryPerformance, is.Category)
	assert.Equal(t, "Page loads slow down as data grows.", is.Explanation)
	assert.Equal(t, "1. Batch the lookups\n2. Add an index", is.Recommendation)
	assert.Equal(t, "https://use-the-index-luke.com", is.LearningResource)
}

func TestExtract_LabelValueOnNextLine(t *testing.T) {
	got := MustNew(DefaultVocabulary()).Extract("🚨 VULNERABILITY DETECTED\n**Type:**\n  Path Traversal  \n**Severity:** low\n")
	require.Len(t, got, 1)
	assert.Equal(t, "Path Traversal", got[0].Type)
	assert.Equal(t, types.SeverityLow, got[0].Severity)
}

func TestExtract_FencedFixKeepsLabelLikeLines(t *testing.T) {
	reply := "🚨 SECURITY VULNERABILITY DETECTED\n" +
		"**Type:** Hardcoded Credentials\n" +
		"**Severity:** HIGH\n" +
		"**SECURE FIX:**\n" +
		"```go\n" +
		"cfg := Config{\n" +
		"\tType: \"db\",\n" +
		"\tPassword: os.Getenv(\"DB_PASSWORD\"),\n" +
		"}\n" +
		"---\n" +
		"Severity: ignored\n" +
		"```\n" +
		"**LEARN MORE:** https://owasp.org\n" +
		"---\n" +
		"**Location:** after the separator\n"

	got := MustNew(DefaultVocabulary()).Extract(reply)
	require.Len(t, got, 1)
	assert.Equal(t, "Hardcoded Credentials", got[0].Type)
	assert.Equal(t, types.SeverityHigh, got[0].Severity)
	assert.Equal(t, "cfg := Config{\n\tType: \"db\",\n\tPassword: os.Getenv(\"DB_PASSWORD\"),\n}\n---\nSeverity: ignored", got[0].Recommendation)
	assert.Equal(t, "https://owasp.org", got[0].LearningResource)
	assert.Equal(t, types.NotSpecified, got[0].Location)
}

func TestExtract_CustomVocabulary(t *testing.T) {
	e, err := New(Vocabulary{
		Markers: []string{`(?m)^## Finding`},
		Labels: map[Field][]string{
			FieldType:     {"Kind"},
			FieldSeverity: {"Level"},
		},
	})
	require.NoError(t, err)

	got := e.Extract("## Finding\nKind: Race\nLevel: high\n## Finding\nKind: Leak\n")
	require.Len(t, got, 2)
	assert.Equal(t, "Race", got[0].Type)
	assert.Equal(t, types.SeverityHigh, got[0].Severity)
	assert.Equal(t, "Leak", got[1].Type)
}

func TestNew_RejectsBadVocabulary(t *testing.T) {
	_, err := New(Vocabulary{})
	assert.Error(t, err)

	_, err = New(Vocabulary{Markers: []string{"("}, Labels: DefaultVocabulary().Labels})
	assert.Error(t, err)

	_, err = New(Vocabulary{Markers: []string{"x*"}, Labels: DefaultVocabulary().Labels})
	assert.ErrorContains(t, err, "empty")

	_, err = New(Vocabulary{Markers: []string{"x"}})
	assert.ErrorContains(t, err, "labels")

	_, err = New(Vocabulary{Markers: []string{"x"}, Labels: map[Field][]string{
		FieldType: {"Name"}, FieldLocation: {"name"},
	}})
	assert.Error(t, err)
}

func TestExtract_NeverPanics(t *testing.T) {
	e := MustNew(DefaultVocabulary())
	inputs := []string{
		"🚨",
		"🚨 VULNERABILITY DETECTED",
		"🚨 VULNERABILITY DETECTED\n**SECURE FIX:**\n```go\nunterminated",
		"\xff\xfe🚨 VULNERABILITY DETECTED\xff**Type:**\xff",
		strings.Repeat("🚨 VULNERABILITY DETECTED\n", 500),
	}
	for _, in := range inputs {
		_ = e.Extract(in)
	}
	assert.Len(t, e.Extract(inputs[4]), 500)
}
