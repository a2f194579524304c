package service

import (
	"fmt"
	"strings"
)

// extractionPrompt instructs the model to transcribe one telecom support call
// and classify it into the closed value sets the validator enforces.
const extractionPrompt = `You are an AI assistant analyzing a telecom customer support call recording.

Your task:
1. Generate a complete transcript of the conversation.
2. Extract the following structured information:

**Required Fields:**
- **phone_number**: The customer's 10-digit phone number from the conversation (string). If not mentioned, return "Not Found".
- **complaint_type**: Classify the complaint into ONE of these categories:
  - "Recharge Issue"
  - "Payment Issue"
  - "Network Issue"
  - "Others" (if it doesn't fit the above or unclear)
- **customer_sentiment**: The customer's overall sentiment, one of:
  - "positive"
  - "neutral"
  - "negative"
- **resolution_status**: How the call ended, one of:
  - "resolved" (issue fixed, customer satisfied)
  - "unresolved" (customer still has concerns)
  - "escalated" (handed to a supervisor or follow-up team)

**Output Format:**
Return ONLY a valid JSON object with this exact structure (no extra text):

{
  "transcript": "full conversation transcript here",
  "phone_number": "1234567890",
  "complaint_type": "Network Issue",
  "customer_sentiment": "negative",
  "resolution_status": "unresolved"
}

**Important:**
- Be precise with the phone number (must be exactly 10 digits).
- Base your classification on the actual content of the call.
- If information is unclear, use your best judgment.`

// sqlSystemInstruction frames SQL generation for the analytics chatbot.
// The gate downstream enforces read-only; the model is only asked, never
// trusted.
const sqlSystemInstruction = `You are a SQL analyst for a telecom call analytics warehouse.
Generate exactly one standard SQL SELECT statement that answers the user's question.
Return ONLY the SQL statement, no explanation, no markdown fences.
Never generate anything other than a single SELECT statement.`

// buildSQLPrompt describes the table so the model can target real columns.
func buildSQLPrompt(table, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", table)
	b.WriteString(`Columns:
  customer_id STRING, source_reference STRING, phone_number STRING,
  transcript STRING, complaint_type STRING, customer_sentiment STRING,
  resolution_status STRING, origin STRING, created_at TIMESTAMP

complaint_type is one of 'Recharge Issue', 'Payment Issue', 'Network Issue', 'Others'.
customer_sentiment is one of 'positive', 'neutral', 'negative'.
resolution_status is one of 'resolved', 'unresolved', 'escalated'.

Question: `)
	b.WriteString(question)
	return b.String()
}

// buildSummaryPrompt asks the model to phrase query results as an answer.
func buildSummaryPrompt(question, rowsJSON string) string {
	return fmt.Sprintf(`A user asked: %q

The analytics query returned these rows as JSON:
%s

Answer the user's question in one or two plain sentences based only on these rows.
If the result set is empty, say that no matching calls were found.`, question, rowsJSON)
}
