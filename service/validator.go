package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/n3utron0/telecom-call-data-analyzer/model"
)

// The validator is the trust boundary: extraction output is adversarial
// input (the model may hallucinate shapes or categories) and nothing
// downstream may assume well-formedness without passing through here.
// Validation is pure and all-or-nothing.

var canonicalCategories = map[string]string{
	"recharge issue": model.CategoryRecharge,
	"payment issue":  model.CategoryPayment,
	"network issue":  model.CategoryNetwork,
	"others":         model.CategoryOthers,
}

var canonicalSentiments = map[string]string{
	"positive": model.SentimentPositive,
	"neutral":  model.SentimentNeutral,
	"negative": model.SentimentNegative,
}

var canonicalStatuses = map[string]string{
	"resolved":   model.StatusResolved,
	"unresolved": model.StatusUnresolved,
	"escalated":  model.StatusEscalated,
}

// ValidateExtraction checks a raw extraction against the record contract and
// builds a pending CallRecord from it. Input casing is tolerated; the
// returned record carries canonical values only.
func ValidateExtraction(raw *model.RawExtraction, sourceRef string, origin model.Origin) (*model.CallRecord, error) {
	if raw.Transcript == nil {
		return nil, &model.ValidationError{
			Field:  "transcript",
			Code:   model.MissingField,
			Reason: "transcript is missing; an empty string is required when nothing was said",
		}
	}

	category, err := canonicalize("complaint_type", raw.ComplaintType, canonicalCategories, model.InvalidCategory)
	if err != nil {
		return nil, err
	}
	sentiment, err := canonicalize("customer_sentiment", raw.Sentiment, canonicalSentiments, model.InvalidSentiment)
	if err != nil {
		return nil, err
	}
	status, err := canonicalize("resolution_status", raw.ResolutionStatus, canonicalStatuses, model.InvalidStatus)
	if err != nil {
		return nil, err
	}

	if err := validateMetadata(raw.Metadata); err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(raw.PhoneNumber)
	if strings.EqualFold(phone, "not found") {
		phone = ""
	}

	return &model.CallRecord{
		CustomerID:       model.NewCustomerID(),
		SourceReference:  sourceRef,
		PhoneNumber:      phone,
		Transcript:       *raw.Transcript,
		ComplaintType:    category,
		Sentiment:        sentiment,
		ResolutionStatus: status,
		Metadata:         raw.Metadata,
		ValidationState:  model.StatePending,
		Origin:           origin,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// ValidateRecord re-checks an already-built record, used when a human
// reviewer edits fields before confirming. Edits are not trusted either.
// Returns a copy with canonical values; the input is not mutated. A record
// that passed once and is unchanged passes again.
func ValidateRecord(rec *model.CallRecord) (*model.CallRecord, error) {
	category, err := canonicalize("complaint_type", rec.ComplaintType, canonicalCategories, model.InvalidCategory)
	if err != nil {
		return nil, err
	}
	sentiment, err := canonicalize("customer_sentiment", rec.Sentiment, canonicalSentiments, model.InvalidSentiment)
	if err != nil {
		return nil, err
	}
	status, err := canonicalize("resolution_status", rec.ResolutionStatus, canonicalStatuses, model.InvalidStatus)
	if err != nil {
		return nil, err
	}
	if err := validateMetadata(rec.Metadata); err != nil {
		return nil, err
	}

	out := *rec
	out.ComplaintType = category
	out.Sentiment = sentiment
	out.ResolutionStatus = status
	return &out, nil
}

func canonicalize(field, value string, allowed map[string]string, code model.ValidationCode) (string, error) {
	canonical, ok := allowed[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return "", &model.ValidationError{
			Field:  field,
			Code:   code,
			Reason: "value " + strconv.Quote(value) + " is not in the allowed set",
		}
	}
	return canonical, nil
}

// validateMetadata allows scalar values only. JSON-decoded numbers arrive as
// float64, so the scalar set is string, bool, float64 and the integer types
// a caller may set directly.
func validateMetadata(meta map[string]any) error {
	for key, value := range meta {
		switch value.(type) {
		case string, bool, float64, int, int64:
		case nil:
		default:
			return &model.ValidationError{
				Field:  "call_metadata." + key,
				Code:   model.InvalidMetadata,
				Reason: "metadata values must be scalar, nested structures are not allowed",
			}
		}
	}
	return nil
}
