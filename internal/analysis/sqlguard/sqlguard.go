// Package sqlguard repairs and vets LLM-generated SQL before execution.
// The model is instructed to emit a single read-only SELECT, but it still
// occasionally produces bind placeholders, filters on items nobody asked
// about, or forgets the pending-order condition; these helpers patch the
// statement with string surgery rather than rejecting it outright.
package sqlguard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var allowedPrefixes = []string{"SELECT", "WITH"}

var forbiddenKeywords = []string{
	"DROP ", "DELETE ", "INSERT ", "UPDATE ", "ALTER ", "TRUNCATE ",
	"EXEC ", "CREATE ", "GRANT ", "REVOKE ",
}

// ErrEmptySQL is returned when the model produced nothing usable.
var ErrEmptySQL = errors.New("empty SQL")

// Sanitize enforces the read-only contract. It returns the trimmed statement
// or an error describing why it was rejected.
func Sanitize(sql string) (string, error) {
	cleaned := strings.TrimLeft(strings.TrimSpace(sql), ";")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", ErrEmptySQL
	}

	first := strings.ToUpper(strings.Fields(cleaned)[0])
	allowed := false
	for _, prefix := range allowedPrefixes {
		if first == prefix {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("first keyword must be SELECT/WITH, got %q", first)
	}

	up := strings.ToUpper(cleaned)
	for _, bad := range forbiddenKeywords {
		if strings.Contains(up, bad) {
			return "", fmt.Errorf("forbidden keyword detected: %s", strings.TrimSpace(bad))
		}
	}

	return cleaned, nil
}

var pendingKeywords = []string{
	"pending", "backlog", "back log", "due", "overdue", "past due", "outstanding",
	"unshipped", "balance", "balance qty", "balance quantity",
}

// ImpliesPending reports whether the question is about unfulfilled orders.
func ImpliesPending(question string) bool {
	q := strings.ToLower(question)
	for _, k := range pendingKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}

var balanceFilter = regexp.MustCompile(`(?i)balance_qty\s*>\s*0`)

// HasBalanceFilter reports whether the statement already filters on balance.
func HasBalanceFilter(sql string) bool {
	return balanceFilter.MatchString(sql)
}

var whereKeyword = regexp.MustCompile(`(?i)\bWHERE\b`)

var suffixClause = regexp.MustCompile(`(?i)\b(GROUP BY|ORDER BY|LIMIT)\b`)

// AddPendingFilter injects "balance_qty > 0" into the statement. When a WHERE
// clause exists the condition is prepended to it; otherwise a WHERE clause is
// inserted before any GROUP BY/ORDER BY/LIMIT suffix.
func AddPendingFilter(sql string) string {
	cleaned := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(sql), ";"))

	if loc := whereKeyword.FindStringIndex(cleaned); loc != nil {
		return cleaned[:loc[1]] + " balance_qty > 0 AND " + cleaned[loc[1]:]
	}

	if loc := suffixClause.FindStringIndex(cleaned); loc != nil {
		return fmt.Sprintf("%s WHERE balance_qty > 0 %s", strings.TrimSpace(cleaned[:loc[0]]), cleaned[loc[0]:])
	}

	return cleaned + " WHERE balance_qty > 0"
}

var (
	namedParam      = regexp.MustCompile(`:\w+`)
	positionalParam = regexp.MustCompile(`\$\d+`)
	atParam         = regexp.MustCompile(`@\w+`)
)

// StripBindParams replaces bind placeholders with empty string literals so
// the statement is executable as-is.
func StripBindParams(sql string) string {
	cleaned := namedParam.ReplaceAllString(sql, "''")
	cleaned = positionalParam.ReplaceAllString(cleaned, "''")
	return atParam.ReplaceAllString(cleaned, "''")
}

var ensureLimitPattern = regexp.MustCompile(`(?i)\blimit\b`)

// EnsureLimit appends a LIMIT clause when the statement lacks one.
func EnsureLimit(sql string, rowLimit int) string {
	if ensureLimitPattern.MatchString(sql) {
		return sql
	}
	return fmt.Sprintf("%s LIMIT %d;", strings.TrimRight(strings.TrimSpace(sql), ";"), rowLimit)
}

var itemFilterTokens = regexp.MustCompile(`(?i)(item_no|description)\s+ILIKE\s+'%?([^'%]+)%?'`)

var (
	andItemOrDesc = regexp.MustCompile(`(?i)\bAND\s*\(\s*item_no\s+ILIKE\s+'[^']+'(?:\s*OR\s*description\s+ILIKE\s+'[^']+')?\s*\)`)
	andItem       = regexp.MustCompile(`(?i)\bAND\s*item_no\s+ILIKE\s+'[^']+'`)
	andDesc       = regexp.MustCompile(`(?i)\bAND\s*description\s+ILIKE\s+'[^']+'`)
	whereItem     = regexp.MustCompile(`(?i)\bWHERE\s*item_no\s+ILIKE\s+'[^']+'`)
)

// StripForeignItemFilters removes item/description ILIKE clauses that do not
// match any allowed item. The model tends to invent item filters from
// few-shot examples; when no item context exists every such clause goes.
func StripForeignItemFilters(sql string, allowedItems []string) string {
	if sql == "" {
		return sql
	}

	if len(allowedItems) == 0 {
		s := andItemOrDesc.ReplaceAllString(sql, "")
		s = andItem.ReplaceAllString(s, "")
		s = andDesc.ReplaceAllString(s, "")
		return whereItem.ReplaceAllString(s, "WHERE 1=1")
	}

	shouldStay := func(token string) bool {
		tok := strings.ToUpper(token)
		for _, ai := range allowedItems {
			allowed := strings.ToUpper(ai)
			if strings.Contains(tok, allowed) || strings.Contains(allowed, tok) {
				return true
			}
		}
		return false
	}

	s := sql
	for _, match := range itemFilterTokens.FindAllStringSubmatch(sql, -1) {
		token := match[2]
		if shouldStay(token) {
			continue
		}

		escaped := regexp.QuoteMeta(token)
		combined := regexp.MustCompile(`(?i)\bAND\s*\(\s*item_no\s+ILIKE\s+'%?` + escaped + `%?'\s*(?:\s*OR\s*description\s+ILIKE\s+'%?` + escaped + `%?')?\s*\)`)
		single := regexp.MustCompile(`(?i)\bAND\s*item_no\s+ILIKE\s+'%?` + escaped + `%?'`)
		desc := regexp.MustCompile(`(?i)\bAND\s*description\s+ILIKE\s+'%?` + escaped + `%?'`)

		s = combined.ReplaceAllString(s, "")
		s = single.ReplaceAllString(s, "")
		s = desc.ReplaceAllString(s, "")
	}

	return s
}
