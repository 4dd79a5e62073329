package generator

import "strings"

// shellQuote applies POSIX single-quote shell quoting: wraps s in single
// quotes, escaping any embedded single quote as '\''. No library in the
// corpus performs quoting (google/shlex only tokenizes), so this is a
// small hand-written helper on the standard library alone, a justified
// stdlib carve-out — see DESIGN.md.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
