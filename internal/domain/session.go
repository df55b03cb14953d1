package domain

import "time"

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Notice is the status line shown to the user after an interaction.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Text    string     `json:"text"`
	Details []string   `json:"details,omitempty"`
}

// Session is everything the server keeps for one browser between requests.
type Session struct {
	ID        string    `json:"id"`
	Form      FormState `json:"form"`
	Notices   []Notice  `json:"notices,omitempty"`
	Confirmed *Booking  `json:"confirmed,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Form:      DefaultFormState(now),
		UpdatedAt: now,
	}
}

// TakeNotices returns the pending notices and clears them.
func (s *Session) TakeNotices() []Notice {
	n := s.Notices
	s.Notices = nil
	return n
}

// Places are the suggestions offered for destination and pickup fields.
type Places struct {
	Destinations    []string `json:"destinations"`
	PickupLocations []string `json:"pickup_locations"`
}
