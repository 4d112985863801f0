package tickets

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/farellandr/ticketgate/internal/qr"
)

var ErrInvalidTicketData = errors.New("invalid ticket data")

//go:embed ticket.html.tmpl
var documentSource string

var documentTemplate = template.Must(template.New("ticket").Parse(documentSource))

type QREncoder interface {
	Encode(ctx context.Context, payload string, size int) (qr.Image, error)
}

// Artifact is the downloadable form of a ticket.
type Artifact struct {
	Ticket   Ticket
	Payload  string
	QR       qr.Image
	Document []byte
	Filename string
}

type Builder struct {
	encoder QREncoder
	qrSize  int
}

func NewBuilder(encoder QREncoder, qrSize int) *Builder {
	if qrSize <= 0 {
		qrSize = qr.DefaultSize
	}
	return &Builder{
		encoder: encoder,
		qrSize:  qrSize,
	}
}

func (b *Builder) Build(ctx context.Context, t Ticket) (*Artifact, error) {
	if strings.TrimSpace(t.EventTitle) == "" {
		return nil, fmt.Errorf("%w: event title is empty", ErrInvalidTicketData)
	}
	if strings.TrimSpace(t.TicketNumber) == "" {
		return nil, fmt.Errorf("%w: ticket number is empty", ErrInvalidTicketData)
	}

	payload, err := PayloadFor(t).Canonical()
	if err != nil {
		return nil, fmt.Errorf("failed to serialise qr payload: %w", err)
	}

	img, err := b.encoder.Encode(ctx, payload, b.qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr for %s: %w", t.TicketNumber, err)
	}

	doc, err := b.render(t, img)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Ticket:   t,
		Payload:  payload,
		QR:       img,
		Document: doc,
		Filename: Filename(t.EventTitle, t.TicketNumber),
	}, nil
}

type documentData struct {
	Ticket
	QuantityLabel string
	StatusLabel   string
	QRCode        template.URL
	QRSize        int
	Degraded      bool
}

func (b *Builder) render(t Ticket, img qr.Image) ([]byte, error) {
	var buf bytes.Buffer
	err := documentTemplate.Execute(&buf, documentData{
		Ticket:        t,
		QuantityLabel: QuantityLabel(t.Quantity),
		StatusLabel:   StatusLabel(t.Status),
		QRCode:        template.URL(img.DataURL),
		QRSize:        b.qrSize,
		Degraded:      img.Degraded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render ticket %s: %w", t.TicketNumber, err)
	}
	return buf.Bytes(), nil
}

func QuantityLabel(n int) string {
	if n == 1 {
		return "1 Ticket"
	}
	return fmt.Sprintf("%d Tickets", n)
}

func StatusLabel(status string) string {
	switch status {
	case StatusRedeemed:
		return "Redeemed"
	case StatusConfirmed, "":
		return "Confirmed"
	default:
		return strings.ToUpper(status[:1]) + status[1:]
	}
}

// Slug lower-cases s and collapses every run of characters outside [a-z0-9]
// into a single underscore.
func Slug(s string) string {
	return collapse(strings.ToLower(s), func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
	})
}

// Filename is the suggested download name for a ticket document.
func Filename(eventTitle, ticketNumber string) string {
	slug := Slug(eventTitle)
	if slug == "" {
		slug = "ticket"
	}
	number := collapse(ticketNumber, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
	})
	return fmt.Sprintf("%s_ticket_%s.html", slug, number)
}

func collapse(s string, keep func(rune) bool) string {
	var sb strings.Builder
	pending := false
	for _, r := range s {
		if keep(r) {
			if pending && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pending = false
			sb.WriteRune(r)
			continue
		}
		pending = true
	}
	return sb.String()
}
