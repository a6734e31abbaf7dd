package report

import (
	"strings"
	"unicode"
)

// DefaultDeniedKeywords returns the words that make an ad-hoc query
// ineligible. INTO and COPY close the SELECT ... INTO and COPY escape
// hatches.
func DefaultDeniedKeywords() []string {
	return []string{
		"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "INSERT", "UPDATE",
		"EXEC", "EXECUTE", "EXECUTE IMMEDIATE", "EXECUTE STATEMENT",
		"GRANT", "REVOKE", "COMMIT", "ROLLBACK", "SAVEPOINT", "BEGIN", "END",
		"TRANSACTION", "LOCK", "UNLOCK", "INTO", "COPY",
	}
}

// QueryGuard is a static, heuristic read-only check for custom report SQL.
// It is not a parser: custom queries additionally run in a READ ONLY
// transaction, which is what PostgreSQL actually enforces.
type QueryGuard struct {
	words   map[string]struct{}
	phrases [][]string
}

// NewQueryGuard builds an immutable guard from keyword lists. Multi-word
// entries match as consecutive words.
func NewQueryGuard(lists ...[]string) *QueryGuard {
	g := &QueryGuard{words: map[string]struct{}{}}
	for _, list := range lists {
		for _, kw := range list {
			parts := strings.Fields(strings.ToUpper(kw))
			switch len(parts) {
			case 0:
			case 1:
				g.words[parts[0]] = struct{}{}
			default:
				g.phrases = append(g.phrases, parts)
			}
		}
	}
	return g
}

// Allowed reports whether query is a single SELECT statement free of any
// denied keyword. Keywords match whole words only, so a column named
// update_count is fine.
func (g *QueryGuard) Allowed(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return false
	}

	// At most one ';', and only as the final character.
	if n := strings.Count(q, ";"); n > 1 || (n == 1 && !strings.HasSuffix(q, ";")) {
		return false
	}

	tokens := words(q)
	if len(tokens) == 0 || tokens[0] != "SELECT" {
		return false
	}
	for i, tok := range tokens {
		if _, denied := g.words[tok]; denied {
			return false
		}
		for _, p := range g.phrases {
			if matchAt(tokens, i, p) {
				return false
			}
		}
	}
	return true
}

func matchAt(tokens []string, i int, phrase []string) bool {
	if i+len(phrase) > len(tokens) {
		return false
	}
	for j, w := range phrase {
		if tokens[i+j] != w {
			return false
		}
	}
	return true
}

// words splits on anything that cannot be part of a SQL identifier.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}
