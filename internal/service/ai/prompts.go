package ai

import (
	"fmt"
	"strings"
)

// columnGuide documents the semantics of the open-order view for the SQL model.
const columnGuide = `
Table: slspurcinv.v_open_order
Customer fields: customer_no, name, city, customer_po_no, customer_type
Order fields: order_no, line_no, order_date, due_date, order_qty, balance_qty, balance_amount, pick_and_pack_qty, pegging, pick_list, ship_from, ship_via
Item fields: item_no, description, item_type, item_category, item_sub_category, unit_price
Sales fields: sales_rep_no, sales_rep_name
Other: internal_notes
Purchase order: po_no
`

const sqlSystemPrompt = `
You are a senior data analyst writing a SINGLE, safe PostgreSQL query.

CRITICAL RULES:
- NEVER generate SQL placeholders (e.g., :param, $1). ALWAYS inline literal values.
- ALWAYS produce fully executable SQL.
- Generate EXACTLY ONE statement starting with SELECT or WITH.
- NEVER modify data.
- Use the table slspurcinv.v_open_order.
- Use explicit column names.
- Use ISO dates 'YYYY-MM-DD'.
- Use ILIKE for text searches.
- Return ONLY the SQL statement. No markdown, no backticks.
`

var sqlFewShots = [][2]string{
	{
		"Top 5 customers by total order amount",
		"SELECT customer_no, name, SUM(line_total_amount) AS total_amount FROM slspurcinv.v_open_order GROUP BY customer_no, name ORDER BY total_amount DESC LIMIT 5;",
	},
	{
		"Show orders pending for Bangalore",
		"SELECT order_no, name, city, due_date FROM slspurcinv.v_open_order WHERE city ILIKE '%Bangalore%' AND balance_qty > 0 ORDER BY due_date ASC LIMIT 50;",
	},
}

// buildSQLUserPrompt renders the few-shot examples plus the live request.
func buildSQLUserPrompt(question, schemaText, history, lastItem string, rowLimit int) string {
	var b strings.Builder

	for i, shot := range sqlFewShots {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", shot[0], shot[1])
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Database table: %s\n", schemaText)
	fmt.Fprintf(&b, "Column semantics: %s\n", columnGuide)
	fmt.Fprintf(&b, "Conversation context: %s\n", history)
	fmt.Fprintf(&b, "User question: %s\n\n", strings.TrimSpace(question))
	b.WriteString("Constraints:\n")
	b.WriteString("- Use previous chat turns to resolve references.\n")
	fmt.Fprintf(&b, "- Add LIMIT %d.\n\n", rowLimit)
	b.WriteString("Return ONLY the executable SQL statement:")

	if lastItem != "" {
		fmt.Fprintf(&b, "\n\nContext: User previously referenced item '%s'. ", lastItem)
		fmt.Fprintf(&b, "If vague (e.g., 'this item'), filter for item_no ILIKE '%%%s%%'.", lastItem)
	}

	return b.String()
}

const insightSystemPrompt = `
You answer the user's question using ONLY the data found in the SQL result rows.
**Direct Answer Rule:** Detect if the question seeks a single winner (e.g., "Which customer...?"). In these cases, ignore the list format and provide the answer as a single, standalone sentence.

Formatting Rules:
- If the result has multiple rows (e.g., list of customers, orders, items), YOU MUST format them as a vertical list.
- INSERT A NEWLINE between every item. Do not list them on the same line.
- Start each item with a bullet point (-) or number.
- Format example:
  - Customer A: 5 orders
  - Customer B: 3 orders
- If the result is a single fact, provide one clear sentence.
- Do NOT mention "SQL", "query", or "database".
`

func buildInsightUserPrompt(question, sql, rowsJSON string) string {
	return fmt.Sprintf("Question: %s\nSQL: %s\nRows: %s\nInsight:", question, sql, rowsJSON)
}

const rewriteSystemPrompt = "Rewrite the user question into a clear, database-friendly question. Resolve vague references using history."

func buildRewriteUserPrompt(question, history, lastItem string) string {
	extra := ""
	if lastItem != "" {
		extra = fmt.Sprintf("\nKnown entity: last_item = '%s'", lastItem)
	}
	return fmt.Sprintf("History:\n%s\n\nQuestion:\n%s\n%s\n\nRewrite:", history, question, extra)
}

const chatSystemPrompt = "You are a helpful assistant. Use chat history. Avoid SQL unless asked."
