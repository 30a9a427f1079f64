// Package intent classifies user input so the smart router can answer
// greetings instantly, keep conversation context only when the question
// actually refers to it, and decide between the SQL and chat pipelines.
package intent

import (
	"regexp"
	"strings"
)

const (
	greetingReply  = "Hello! I am your ERP assistant. You can ask me about open orders, items, customers, or pending shipments."
	gratitudeReply = "You're very welcome! Happy to help."
	ackReply       = "You're welcome! Let me know if you need anything else."
	closingReply   = "Goodbye! Have a great day."
)

var greetings = []string{"hi", "hello", "hey", "greetings", "good morning", "good afternoon", "good evening"}

var gratitude = []string{"thank", "thanks", "thx", "appreciated"}

var closings = []string{"bye", "goodbye", "see you", "cya"}

// StaticReply returns a canned answer for greetings, gratitude and goodbyes,
// or "" when the input deserves a real pipeline run.
func StaticReply(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))

	for _, g := range greetings {
		if t == g || strings.HasPrefix(t, g+" ") {
			return greetingReply
		}
	}

	// Bare acknowledgements only; "ok show me orders" must fall through.
	switch t {
	case "ok", "okay", "cool", "great":
		return ackReply
	}

	for _, g := range gratitude {
		if strings.Contains(t, g) {
			return gratitudeReply
		}
	}

	for _, c := range closings {
		if strings.HasPrefix(t, c) {
			return closingReply
		}
	}

	return ""
}

var contextPronouns = regexp.MustCompile(`\b(this|that|these|those|it|its|they|them|same|previous|above|last|earlier)\b`)

// NeedsContext reports whether the question refers back to earlier turns.
// Very short follow-ups are treated as referential even without a pronoun.
func NeedsContext(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))

	if contextPronouns.MatchString(t) {
		return true
	}

	return len(strings.Fields(t)) <= 3
}

var businessKeywords = []string{"order", "customer", "item", "pending", "balance", "qty", "sales", "invoice"}

// IsBusinessQuery decides whether the message should hit the SQL pipeline.
func IsBusinessQuery(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))

	// Vague meta-questions go to the chat model even if they brush a keyword.
	if t == "help" || t == "what can you do" {
		return false
	}

	for _, k := range businessKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

var itemToken = regexp.MustCompile(`\b([A-Z0-9]{2,12}(?:[-_][A-Z0-9]{1,12})+)\b`)

var itemBlacklist = map[string]struct{}{
	"THE": {}, "AND": {}, "COMPANY": {}, "LIMITED": {}, "LTD": {}, "INC": {}, "LLC": {},
}

// ExtractItemNo pulls an item number token out of free text, e.g. "AB-1020"
// from "what is the balance for AB-1020".
func ExtractItemNo(text string) string {
	if text == "" {
		return ""
	}

	up := strings.ToUpper(text)
	for _, token := range itemToken.FindAllString(up, -1) {
		if len(token) < 4 {
			continue
		}
		if _, banned := itemBlacklist[token]; banned {
			continue
		}
		if strings.ContainsAny(token, "0123456789") || strings.Contains(token, "-") {
			return token
		}
	}
	return ""
}

var sqlItemLiteral = regexp.MustCompile(`(?i)item_no\s*(?:=|ILIKE)\s*'([^']+)'`)

// ExtractItemFromSQL recovers the item_no literal a generated statement
// filters on, with ILIKE wildcards stripped.
func ExtractItemFromSQL(sql string) string {
	if sql == "" {
		return ""
	}

	m := sqlItemLiteral.FindStringSubmatch(sql)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.ToUpper(strings.ReplaceAll(m[1], "%", "")))
}
