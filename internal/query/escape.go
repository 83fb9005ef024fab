package query

import (
	"strings"
)

// booleanWords maps spelled-out operators to their query-string symbols.
var booleanWords = strings.NewReplacer(" AND ", " && ", " OR ", " || ", " NOT ", " !")

// reserved lists the query-string metacharacters in escape order. The
// backslash comes first so later escapes are not escaped again.
var reserved = []string{`\`, "+", "-", "&&", "||", "!", "(", ")", "{", "}", "[", "]", "^", `"`, "~", "*", "?", ":", "/"}

// Escape turns free text into a literal query-string query. The words AND,
// OR and NOT (space separated, upper case) become their symbols, every
// metacharacter is backslash-escaped and '<' and '>', which cannot be
// escaped, are removed.
func Escape(text string) string {
	out := booleanWords.Replace(text)
	for _, r := range reserved {
		out = strings.ReplaceAll(out, r, `\`+r)
	}
	return strings.NewReplacer("<", "", ">", "").Replace(out)
}

// IsID reports whether text looks like a product id: digits, optionally
// grouped with hyphens. Signs, decimals and exponents are not ids.
func IsID(text string) bool {
	digits := strings.ReplaceAll(text, "-", "")
	if digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}
