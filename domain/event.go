package domain

import (
	"sort"
	"strings"
	"time"
)

// EventSource identifies which upstream an event record came from.
type EventSource string

const (
	SourceArchive EventSource = "archive"
	SourceFeed    EventSource = "feed"
)

// Event is the normalized event shape. Both the internal archive collection
// and the external feed are mapped into this structure at the adapter
// boundary, so only one date and location representation exists in memory.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate,omitempty"`
	ImageRef    string      `json:"imageRef,omitempty"`
	Venue       string      `json:"venue,omitempty"`
	Address     string      `json:"address,omitempty"`
	City        string      `json:"city,omitempty"`
	Country     string      `json:"country,omitempty"`
	Latitude    float64     `json:"latitude,omitempty"`
	Longitude   float64     `json:"longitude,omitempty"`
	Organizer   string      `json:"organizer,omitempty"`
	TicketURL   string      `json:"ticketUrl,omitempty"`
	WebsiteURL  string      `json:"websiteUrl,omitempty"`
	Keywords    []string    `json:"keywords,omitempty"`
	Source      EventSource `json:"source,omitempty"`
}

// HasContent reports whether the event carries a non-empty title and
// description. Records failing this check are excluded before merging.
func (e Event) HasContent() bool {
	return strings.TrimSpace(e.Title) != "" && strings.TrimSpace(e.Description) != ""
}

// SortEventsByStartDate orders events by start date ascending, in place.
func SortEventsByStartDate(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartDate.Before(events[j].StartDate)
	})
}
