package model

import (
	"math/rand/v2"
	"time"
)

// RawExtraction is the structured shape the language model is prompted to
// return for one call recording. It is untrusted until it has passed the
// validator.
type RawExtraction struct {
	Transcript       *string        `json:"transcript"`
	PhoneNumber      string         `json:"phone_number,omitempty"`
	ComplaintType    string         `json:"complaint_type"`
	Sentiment        string         `json:"customer_sentiment"`
	ResolutionStatus string         `json:"resolution_status"`
	Metadata         map[string]any `json:"call_metadata,omitempty"`
}

// ValidationState of a CallRecord
type ValidationState string

const (
	StatePending   ValidationState = "pending"
	StateConfirmed ValidationState = "confirmed"
	StateRejected  ValidationState = "rejected"
)

// Origin of a CallRecord
type Origin string

const (
	OriginSingle Origin = "single"
	OriginBatch  Origin = "batch"
)

// Closed value sets for the classified fields. The validator canonicalizes
// case-insensitive input onto these exact strings.
const (
	CategoryRecharge = "Recharge Issue"
	CategoryPayment  = "Payment Issue"
	CategoryNetwork  = "Network Issue"
	CategoryOthers   = "Others"

	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"

	StatusResolved   = "resolved"
	StatusUnresolved = "unresolved"
	StatusEscalated  = "escalated"
)

// CallRecord is the canonical structured unit written to the warehouse.
// Once committed it is append-only and never mutated.
type CallRecord struct {
	CustomerID       string          `json:"customer_id"`
	SourceReference  string          `json:"source_reference"`
	PhoneNumber      string          `json:"phone_number,omitempty"`
	Transcript       string          `json:"transcript"`
	ComplaintType    string          `json:"complaint_type"`
	Sentiment        string          `json:"customer_sentiment"`
	ResolutionStatus string          `json:"resolution_status"`
	Metadata         map[string]any  `json:"call_metadata,omitempty"`
	ValidationState  ValidationState `json:"validation_state"`
	Origin           Origin          `json:"origin"`
	ProcessingSec    float64         `json:"processing_time_sec,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

const customerIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCustomerID creates an ID like CUST-XXXXX.
func NewCustomerID() string {
	b := make([]byte, 5)
	for i := range b {
		b[i] = customerIDAlphabet[rand.IntN(len(customerIDAlphabet))]
	}
	return "CUST-" + string(b)
}

// SafetyVerdict of a generated SQL statement
type SafetyVerdict string

const (
	VerdictAllowed  SafetyVerdict = "allowed"
	VerdictRejected SafetyVerdict = "rejected"
)

// AnalyticsQuery captures one chatbot turn: the question, the SQL the model
// produced for it and the safety gate's verdict. It is never persisted.
type AnalyticsQuery struct {
	Question        string        `json:"question"`
	GeneratedSQL    string        `json:"generated_sql"`
	SafetyVerdict   SafetyVerdict `json:"safety_verdict"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
}
