package nl2sql

import (
	"fmt"
	"strings"
)

var promptRules = []string{
	"Generate standard SQL (compatible with PostgreSQL/MySQL)",
	"Use appropriate JOINs when multiple tables are needed",
	"Include clear column aliases for better readability",
	"Add comments for complex queries",
	"Return ONLY the SQL query, no explanations or markdown",
	"If the query is ambiguous, make reasonable assumptions",
	"Use best practices (prefer specific columns over SELECT *, use proper WHERE clauses)",
	"For date-based queries, use appropriate date functions",
	"Format the SQL with proper indentation for readability",
}

// BuildSystemPrompt embeds schemaContext between the role statement and the
// numbered rules.
func BuildSystemPrompt(schemaContext string) string {
	var b strings.Builder
	b.WriteString("You are a SQL expert. Convert natural language queries into SQL statements.\n\n")
	b.WriteString("Database Schema:\n")
	b.WriteString(schemaContext)
	b.WriteString("\n\nRules:\n")
	for i, rule := range promptRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	b.WriteString("\nOutput format: Return only valid SQL code without any markdown formatting or code blocks.")
	return b.String()
}
