package service

import (
	"strings"

	"github.com/n3utron0/telecom-call-data-analyzer/model"
)

// SafetyGate is the sole barrier between model-generated SQL and the
// warehouse. It admits exactly one SELECT statement and nothing else, and it
// fails closed: anything it cannot scan to the end is refused as unparsable
// rather than waved through.
type SafetyGate struct {
	deny map[string]struct{}
}

// Statement-level keywords that modify data or schema. Matched as whole
// tokens, so a column named update_count does not trip the gate.
var denyKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE",
	"MERGE", "REPLACE", "GRANT", "REVOKE", "CALL", "EXEC", "EXECUTE",
	"LOAD", "COPY", "UPSERT",
}

func NewSafetyGate(extraDenyKeywords []string) *SafetyGate {
	deny := make(map[string]struct{}, len(denyKeywords)+len(extraDenyKeywords))
	for _, kw := range denyKeywords {
		deny[kw] = struct{}{}
	}
	for _, kw := range extraDenyKeywords {
		deny[strings.ToUpper(strings.TrimSpace(kw))] = struct{}{}
	}
	return &SafetyGate{deny: deny}
}

// Check returns nil when the statement may execute. Otherwise it returns
// *model.UnparsableSQLError (could not be established as a single SELECT)
// or *model.RejectedSQLError (parsed, but breaks a read-only rule). Every
// input reaches one of the three verdicts.
func (g *SafetyGate) Check(sqlText string) error {
	tokens, terminated, err := scanStatement(sqlText)
	if err != nil {
		return err
	}

	if len(tokens) == 0 {
		return &model.UnparsableSQLError{Reason: "empty statement"}
	}
	if terminated {
		return &model.RejectedSQLError{Reason: "multiple statements are not allowed"}
	}
	for _, tok := range tokens {
		if _, banned := g.deny[tok]; banned {
			return &model.RejectedSQLError{Reason: "statement keyword " + tok + " is not allowed; only read-only SELECT queries may run"}
		}
	}
	if tokens[0] != "SELECT" && !(tokens[0] == "WITH" && containsToken(tokens, "SELECT")) {
		return &model.UnparsableSQLError{Reason: "statement does not parse as a SELECT"}
	}

	return nil
}

func containsToken(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

// scanStatement tokenizes one SQL statement: word tokens are returned
// uppercased, string literals and comments are skipped, and a statement
// separator is only legal as a trailing terminator. terminated reports that
// content followed a separator. Any construct the scanner cannot close
// (unterminated literal or block comment) is an unparsable-SQL error.
func scanStatement(sqlText string) (tokens []string, terminated bool, err error) {
	runes := []rune(sqlText)
	n := len(runes)
	sawSeparator := false

	i := 0
	for i < n {
		c := runes[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '-' && i+1 < n && runes[i+1] == '-':
			for i < n && runes[i] != '\n' {
				i++
			}

		case c == '/' && i+1 < n && runes[i+1] == '*':
			end := strings.Index(string(runes[i+2:]), "*/")
			if end == -1 {
				return nil, false, &model.UnparsableSQLError{Reason: "unterminated block comment"}
			}
			i += 2 + end + 2

		case c == '\'' || c == '"' || c == '`':
			closed := false
			quote := c
			i++
			for i < n {
				if runes[i] == quote {
					// Doubled quote is an escaped quote inside the literal.
					if i+1 < n && runes[i+1] == quote {
						i += 2
						continue
					}
					closed = true
					i++
					break
				}
				i++
			}
			if !closed {
				return nil, false, &model.UnparsableSQLError{Reason: "unterminated string literal"}
			}
			if sawSeparator {
				terminated = true
			}

		case c == ';':
			sawSeparator = true
			i++

		case isWordRune(c):
			start := i
			for i < n && isWordRune(runes[i]) {
				i++
			}
			if sawSeparator {
				terminated = true
			}
			tokens = append(tokens, strings.ToUpper(string(runes[start:i])))

		default:
			if sawSeparator {
				terminated = true
			}
			i++
		}
	}

	return tokens, terminated, nil
}

func isWordRune(c rune) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
