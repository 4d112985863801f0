package tickets

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	StatusConfirmed = "confirmed"
	StatusRedeemed  = "redeemed"
)

// Ticket is one issued admission. Its descriptive fields are copied from the
// event and booking when it is minted and never change afterwards.
type Ticket struct {
	TicketNumber  string `json:"ticket_number"`
	EventTitle    string `json:"event_title"`
	EventDate     string `json:"event_date"`
	EventLocation string `json:"event_location"`
	TicketType    string `json:"ticket_type"`
	Quantity      int    `json:"quantity"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// TicketNumber formats the number of the seq-th ticket of a transaction.
func TicketNumber(transactionID string, seq int) string {
	return fmt.Sprintf("TK-%s-%03d", transactionID, seq)
}

// Payload is the content of a ticket's QR code. Field order is the wire order.
type Payload struct {
	TicketNumber  string `json:"ticketNumber"`
	EventTitle    string `json:"eventTitle"`
	TransactionID string `json:"transactionId"`
	Valid         bool   `json:"valid"`
}

func PayloadFor(t Ticket) Payload {
	return Payload{
		TicketNumber:  t.TicketNumber,
		EventTitle:    t.EventTitle,
		TransactionID: t.TransactionID,
		Valid:         true,
	}
}

// Canonical serialises the payload exactly as it is embedded in the QR code.
func (p Payload) Canonical() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
