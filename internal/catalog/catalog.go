package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
)

const (
	TicketTypeGeneral = "general"
	TicketTypeVIP     = "vip"
)

// Catalog is read-only event reference data. It is built once at start and
// never mutated, so it is safe to share between requests.
type Catalog struct {
	events []models.Event
	byID   map[string]int
}

func New(events []models.Event) (*Catalog, error) {
	c := &Catalog{
		events: make([]models.Event, 0, len(events)),
		byID:   make(map[string]int, len(events)),
	}
	for _, event := range events {
		if event.ID == "" || event.Title == "" {
			return nil, fmt.Errorf("%w: id and title are required", ErrInvalidEvent)
		}
		if _, dup := c.byID[event.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidEvent, event.ID)
		}
		if _, _, err := helpers.ParsePrice(event.Price); err != nil {
			return nil, fmt.Errorf("%w: event %s: %v", ErrInvalidEvent, event.ID, err)
		}
		c.byID[event.ID] = len(c.events)
		c.events = append(c.events, event)
	}
	return c, nil
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	return New(events)
}

type Filter struct {
	Category string
	Featured *bool
}

func (c *Catalog) List(filter Filter) []models.Event {
	events := make([]models.Event, 0, len(c.events))
	for _, event := range c.events {
		if filter.Category != "" && !strings.EqualFold(event.Category, filter.Category) {
			continue
		}
		if filter.Featured != nil && event.Featured != *filter.Featured {
			continue
		}
		events = append(events, event)
	}
	return events
}

func (c *Catalog) Get(id string) (models.Event, error) {
	idx, ok := c.byID[id]
	if !ok {
		return models.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return c.events[idx], nil
}

func (c *Catalog) Len() int {
	return len(c.events)
}

// TicketTypes returns the purchasable ticket types of an event. Events that
// do not list their own get general admission at the listed price and VIP at
// twice that.
func TicketTypes(event models.Event) ([]models.TicketType, error) {
	if len(event.TicketTypes) > 0 {
		return event.TicketTypes, nil
	}

	amount, currency, err := helpers.ParsePrice(event.Price)
	if err != nil {
		return nil, err
	}

	return []models.TicketType{
		{Name: TicketTypeGeneral, Price: helpers.FormatPrice(amount, currency)},
		{Name: TicketTypeVIP, Price: helpers.FormatPrice(amount.Mul(decimalTwo), currency)},
	}, nil
}
