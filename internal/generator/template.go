package generator

import (
	"fmt"
	"regexp"

	"github.com/aidanmoss/forgeflow/internal/config"
	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
)

// maxExpansionPasses bounds the safe-missing-key expansion loop (§4.2):
// nested placeholders such as {BUILD_DIR} yielding build{PREVIEW} need a
// few passes to settle, but a config that never reaches a fixed point
// within this budget is treated as unresolved.
const maxExpansionPasses = 5

// placeholderPattern matches an uppercase-led template token: an opening
// brace, an uppercase letter, then alphanumerics, '_', ':', ',', '.', '&',
// and a closing brace. Lowercase-led braces (shell/awk variables) never
// match and survive expansion untouched.
var placeholderPattern = regexp.MustCompile(`\{[A-Z][A-Za-z0-9_:,.&]*\}`)

// ExpandTemplate resolves placeholders in template against ctx using a
// safe-missing-key pass iterated to a fixed point, then validates that no
// uppercase-led placeholder remains. Returns a ConfigError naming the
// step, the token, and the original template on failure.
func ExpandTemplate(stepName, template string, ctx *config.Params) (string, error) {
	original := template
	current := template

	for i := 0; i < maxExpansionPasses; i++ {
		next := expandOnce(current, ctx)
		if next == current {
			break
		}
		current = next
	}

	if loc := placeholderPattern.FindStringIndex(current); loc != nil {
		token := current[loc[0]:loc[1]]
		return "", workflowerrors.NewConfigError(stepName, fmt.Sprintf("unresolved placeholder %s in template %q", token, original), nil)
	}

	return current, nil
}

// expandOnce performs a single safe-missing-key substitution pass: known
// keys are replaced by their stringified value; unknown placeholders are
// left in place verbatim.
func expandOnce(template string, ctx *config.Params) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		key := token[1 : len(token)-1]
		value, ok := ctx.Get(key)
		if !ok {
			return token
		}
		return stringify(value)
	})
}

// stringify renders a context value for inline template substitution.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
