package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/farellandr/ticketgate/internal/models"
)

var decimalTwo = decimal.NewFromInt(2)

func Default() *Catalog {
	c, err := New(defaultEvents)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultEvents = []models.Event{
	{
		ID:          "1",
		Title:       "Summer Jazz Night",
		Date:        "2026-07-12",
		Time:        "19:30",
		Location:    "Riverside Park Amphitheater",
		Price:       "$50",
		Category:    "Music",
		Attendees:   1200,
		Featured:    true,
		Description: "An evening of live jazz by the river with local and touring quartets.",
	},
	{
		ID:          "2",
		Title:       "Tech Founders Summit",
		Date:        "2026-09-03",
		Time:        "09:00",
		Location:    "Convention Center Hall B",
		Price:       "$120",
		Category:    "Technology",
		Attendees:   850,
		Featured:    true,
		Description: "Talks and workshops on building and scaling early-stage companies.",
	},
	{
		ID:          "3",
		Title:       "City Marathon Expo",
		Date:        "2026-10-18",
		Time:        "08:00",
		Location:    "Downtown Plaza",
		Price:       "$25",
		Category:    "Sports",
		Attendees:   3000,
		Featured:    false,
		Description: "Race kit pickup, running gear stalls and nutrition talks.",
	},
	{
		ID:          "4",
		Title:       "Modern Art Showcase",
		Date:        "2026-11-07",
		Time:        "10:00",
		Location:    "Gallery 21",
		Price:       "$15",
		Category:    "Arts",
		Attendees:   400,
		Featured:    false,
		Description: "Contemporary works from emerging regional artists.",
		TicketTypes: []models.TicketType{
			{Name: "adult", Price: "$15"},
			{Name: "student", Price: "$8"},
		},
	},
	{
		ID:          "5",
		Title:       "Street Food Festival",
		Date:        "2026-08-22",
		Time:        "12:00",
		Location:    "Harbor Front",
		Price:       "Free",
		Category:    "Food",
		Attendees:   5000,
		Featured:    true,
		Description: "Over sixty vendors, live cooking stages and a night market.",
	},
}
