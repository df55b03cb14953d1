package domain

import (
	"fmt"
	"time"
)

// DateLayout is how pickup dates are rendered in notifications and accepted in form updates.
const DateLayout = "2006-01-02"

type Period string

const (
	PeriodAM Period = "AM"
	PeriodPM Period = "PM"
)

func (p Period) Valid() bool {
	return p == PeriodAM || p == PeriodPM
}

// PickupTime is a 12-hour clock reading picked in five minute steps.
type PickupTime struct {
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Period Period `json:"period"`
}

func (t PickupTime) String() string {
	return fmt.Sprintf("%d:%02d %s", t.Hour, t.Minute, t.Period)
}

// Luggage counts pieces of luggage per size label.
type Luggage struct {
	S  int `json:"s"`
	M  int `json:"m"`
	L  int `json:"l"`
	XL int `json:"xl"`
}

// String renders the counts as "{'S': 1, 'M': 0, 'L': 0, 'XL': 0}", the
// format operators already read in notification messages.
func (l Luggage) String() string {
	return fmt.Sprintf("{'S': %d, 'M': %d, 'L': %d, 'XL': %d}", l.S, l.M, l.L, l.XL)
}

func (l Luggage) Total() int {
	return l.S + l.M + l.L + l.XL
}

// Booking is one set of trip details as entered on the form. It is never stored.
type Booking struct {
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Destination    string     `json:"destination"`
	PickupLocation string     `json:"pickup_location"`
	Adults         int        `json:"adults"`
	Kids           int        `json:"kids"`
	Infants        int        `json:"infants"`
	PickupDate     time.Time  `json:"pickup_date"`
	PickupTime     PickupTime `json:"pickup_time"`
	Luggage        Luggage    `json:"luggage"`
	Notes          string     `json:"notes"`
}

func (b Booking) PickupDateString() string {
	return b.PickupDate.Format(DateLayout)
}

func (b Booking) Passengers() int {
	return b.Adults + b.Kids + b.Infants
}
