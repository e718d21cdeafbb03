// Package contextscan reports the safe idioms present in a code sample so the
// generation prompt can steer away from flagging them.
package contextscan

import (
	"strings"

	"go.uber.org/zap"

	"codesage/internal/rules"
)

// Classifier is stateless and safe for concurrent use.
type Classifier struct {
	reg *rules.Registry
	log *zap.Logger
}

func New(reg *rules.Registry, logger *zap.Logger) *Classifier {
	if reg == nil {
		reg = rules.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{reg: reg, log: logger.Named("contextscan")}
}

// Classify returns one line per safe pattern that matched at least once, in
// registration order. When nothing matched the result is the single
// rules.NoContext sentinel.
func (c *Classifier) Classify(code string) []string {
	var found []string
	for _, sp := range c.reg.SafePatterns() {
		if c.matches(sp, code) {
			found = append(found, sp.Context)
		}
	}
	if len(found) == 0 {
		c.log.Debug("no safe patterns detected")
		return []string{rules.NoContext}
	}
	c.log.Debug("safe patterns detected", zap.Int("count", len(found)))
	return found
}

// Describe renders Classify as the bulleted block used in prompts.
func (c *Classifier) Describe(code string) string {
	return Render(c.Classify(code))
}

// Render formats classifier lines as a "- " list. The sentinel is returned bare.
func Render(lines []string) string {
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == rules.NoContext) {
		return rules.NoContext
	}
	return "- " + strings.Join(lines, "\n- ")
}

func (c *Classifier) matches(sp rules.SafePattern, code string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("safe pattern panicked", zap.String("pattern", sp.Name), zap.Any("panic", r))
			ok = false
		}
	}()
	_, ok = sp.Matcher.Find(code)
	return ok
}
