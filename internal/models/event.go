package models

type TicketType struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// Event is catalog reference data. Ticket issuance copies fields out of it
// and never writes back.
type Event struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Date        string       `json:"date"`
	Time        string       `json:"time"`
	Location    string       `json:"location"`
	Price       string       `json:"price"`
	Category    string       `json:"category"`
	Attendees   int          `json:"attendees"`
	Featured    bool         `json:"featured"`
	Description string       `json:"description"`
	TicketTypes []TicketType `json:"ticket_types,omitempty"`
}
