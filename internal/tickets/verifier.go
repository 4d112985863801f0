package tickets

import (
	"encoding/json"
	"time"

	"github.com/farellandr/ticketgate/internal/monitoring"
)

type Reason string

const (
	ReasonMalformedPayload Reason = "malformed_payload"
	ReasonSchemaMismatch   Reason = "schema_mismatch"
	ReasonMarkedInvalid    Reason = "marked_invalid"
	ReasonUnreadableImage  Reason = "unreadable_image"
)

// Result is either Valid or Invalid.
type Result interface {
	Outcome() string
	isResult()
}

type Valid struct {
	TicketNumber  string    `json:"ticket_number"`
	EventTitle    string    `json:"event_title"`
	TransactionID string    `json:"transaction_id"`
	VerifiedAt    time.Time `json:"verified_at"`
}

func (Valid) Outcome() string { return "valid" }
func (Valid) isResult()       {}

type Invalid struct {
	Reason Reason `json:"reason"`
}

func (i Invalid) Outcome() string { return string(i.Reason) }
func (Invalid) isResult()         {}

type ImageDecoder interface {
	Decode(data []byte) (string, error)
}

// Verifier checks that a scanned payload is a well-formed ticket QR payload.
// It does not consult any ledger.
type Verifier struct {
	Now     func() time.Time
	decoder ImageDecoder
}

func NewVerifier(decoder ImageDecoder) *Verifier {
	return &Verifier{
		Now:     time.Now,
		decoder: decoder,
	}
}

func (v *Verifier) Verify(scanned string) Result {
	result := v.match(scanned)
	monitoring.RecordVerification(result.Outcome())
	return result
}

// VerifyImage decodes a QR image and verifies its content.
func (v *Verifier) VerifyImage(data []byte) Result {
	scanned, err := v.decoder.Decode(data)
	if err != nil {
		result := Invalid{Reason: ReasonUnreadableImage}
		monitoring.RecordVerification(result.Outcome())
		return result
	}
	return v.Verify(scanned)
}

func (v *Verifier) match(scanned string) Result {
	if !json.Valid([]byte(scanned)) {
		return Invalid{Reason: ReasonMalformedPayload}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(scanned), &fields); err != nil {
		return Invalid{Reason: ReasonSchemaMismatch}
	}

	ticketNumber, ok := stringField(fields, "ticketNumber")
	if !ok {
		return Invalid{Reason: ReasonSchemaMismatch}
	}
	eventTitle, ok := stringField(fields, "eventTitle")
	if !ok {
		return Invalid{Reason: ReasonSchemaMismatch}
	}
	transactionID, ok := stringField(fields, "transactionId")
	if !ok {
		return Invalid{Reason: ReasonSchemaMismatch}
	}
	valid, ok := boolField(fields, "valid")
	if !ok {
		return Invalid{Reason: ReasonSchemaMismatch}
	}
	if !valid {
		return Invalid{Reason: ReasonMarkedInvalid}
	}

	return Valid{
		TicketNumber:  ticketNumber,
		EventTitle:    eventTitle,
		TransactionID: transactionID,
		VerifiedAt:    v.Now(),
	}
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil || *s == "" {
		return "", false
	}
	return *s, true
}

func boolField(fields map[string]json.RawMessage, name string) (bool, bool) {
	raw, ok := fields[name]
	if !ok {
		return false, false
	}
	var b *bool
	if err := json.Unmarshal(raw, &b); err != nil || b == nil {
		return false, false
	}
	return *b, true
}
