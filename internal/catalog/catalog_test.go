package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farellandr/ticketgate/internal/models"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 5, c.Len())

	event, err := c.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Summer Jazz Night", event.Title)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestList_Filters(t *testing.T) {
	c := Default()
	featured := true

	assert.Len(t, c.List(Filter{}), 5)
	assert.Len(t, c.List(Filter{Category: "music"}), 1)
	assert.Len(t, c.List(Filter{Featured: &featured}), 3)
	assert.Empty(t, c.List(Filter{Category: "Opera"}))
}

func TestNew_RejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name   string
		events []models.Event
	}{
		{"missing id", []models.Event{{Title: "A", Price: "$1"}}},
		{"missing title", []models.Event{{ID: "1", Price: "$1"}}},
		{"duplicate id", []models.Event{{ID: "1", Title: "A", Price: "$1"}, {ID: "1", Title: "B", Price: "$1"}}},
		{"bad price", []models.Event{{ID: "1", Title: "A", Price: "cheap"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.events)
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestTicketTypes(t *testing.T) {
	c := Default()

	jazz, _ := c.Get("1")
	types, err := TicketTypes(jazz)
	require.NoError(t, err)
	assert.Equal(t, []models.TicketType{
		{Name: TicketTypeGeneral, Price: "$50"},
		{Name: TicketTypeVIP, Price: "$100"},
	}, types)

	art, _ := c.Get("4")
	types, err = TicketTypes(art)
	require.NoError(t, err)
	assert.Equal(t, "adult", types[0].Name)
	assert.Equal(t, "student", types[1].Name)

	food, _ := c.Get("5")
	types, err = TicketTypes(food)
	require.NoError(t, err)
	assert.Equal(t, "0", types[0].Price)
	assert.Equal(t, "0", types[1].Price)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","title":"Poetry Slam","price":"IDR 75,000"}]`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	event, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Poetry Slam", event.Title)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
