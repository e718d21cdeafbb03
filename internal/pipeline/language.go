package pipeline

import (
	"path/filepath"
	"slices"
	"strings"
)

// DefaultLanguages is the built-in supported set.
var DefaultLanguages = []string{"java", "javascript", "python", "typescript", "go", "cpp", "c", "csharp"}

var extLanguages = map[string]string{
	".java": "java",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".py":   "python",
	".ts":   "typescript",
	".tsx":  "typescript",
	".go":   "go",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".h":    "cpp",
	".c":    "c",
	".cs":   "csharp",
}

var languageAliases = map[string]string{
	"js":         "javascript",
	"node":       "javascript",
	"ts":         "typescript",
	"py":         "python",
	"python3":    "python",
	"golang":     "go",
	"c++":        "cpp",
	"cxx":        "cpp",
	"c#":         "csharp",
	"cs":         "csharp",
	"dotnet":     "csharp",
	"javascript": "javascript",
}

// NormalizeLanguage lower-cases a language name and folds common aliases.
func NormalizeLanguage(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if a, ok := languageAliases[l]; ok {
		return a
	}
	return l
}

// DetectLanguage maps a file name's extension to a language.
func DetectLanguage(fileName string) (string, bool) {
	lang, ok := extLanguages[strings.ToLower(filepath.Ext(fileName))]
	return lang, ok
}

// SourceExtensions lists the extensions DetectLanguage understands.
func SourceExtensions() []string {
	out := make([]string, 0, len(extLanguages))
	for ext := range extLanguages {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// resolveLanguage picks the explicit language, then the file extension, then
// the default, and checks the result against the supported set.
func (a *Analyzer) resolveLanguage(language, fileName string) (string, error) {
	lang := NormalizeLanguage(language)
	if lang == "" {
		if detected, ok := DetectLanguage(fileName); ok {
			lang = detected
		} else {
			lang = a.opts.DefaultLanguage
		}
	}
	if len(a.opts.SupportedLanguages) > 0 && !slices.Contains(a.opts.SupportedLanguages, lang) {
		return "", &ValidationError{
			Field:  "language",
			Reason: "unsupported language " + lang + " (supported: " + strings.Join(a.opts.SupportedLanguages, ", ") + ")",
		}
	}
	return lang, nil
}
