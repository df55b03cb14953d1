package domain

import (
	"strings"
	"time"
)

const DefaultCountryCode = "+60"

// FormState holds the current field values of one booking form session.
// Booking.Phone is kept in sync with CountryCode and LocalPhone.
type FormState struct {
	Booking     Booking   `json:"booking"`
	CountryCode string    `json:"country_code"`
	LocalPhone  string    `json:"local_phone"`
	CreatedOn   time.Time `json:"created_on"`
}

// FormUpdate carries the fields a user changed; nil fields are left as they are.
type FormUpdate struct {
	Name           *string
	CountryCode    *string
	LocalPhone     *string
	Destination    *string
	PickupLocation *string
	Adults         *int
	Kids           *int
	Infants        *int
	PickupDate     *string
	Hour           *int
	Minute         *int
	Period         *string
	LuggageS       *int
	LuggageM       *int
	LuggageL       *int
	LuggageXL      *int
	Notes          *string
}

func DefaultFormState(now time.Time) FormState {
	today := startOfDay(now)
	return FormState{
		Booking: Booking{
			PickupDate: today,
			PickupTime: PickupTime{Hour: 1, Minute: 0, Period: PeriodAM},
		},
		CountryCode: DefaultCountryCode,
		CreatedOn:   today,
	}
}

// Reset discards every entered value and starts a fresh form dated now.
func (f *FormState) Reset(now time.Time) {
	*f = DefaultFormState(now)
}

// Snapshot returns a copy of the booking that later edits cannot reach.
func (f *FormState) Snapshot() Booking {
	return f.Booking
}

// Apply sets every non-nil field of u. Either all fields are applied or,
// when one violates a field constraint, none are and a ValidationError is returned.
func (f *FormState) Apply(u FormUpdate) error {
	next := *f
	b := &next.Booking

	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Destination != nil {
		b.Destination = *u.Destination
	}
	if u.PickupLocation != nil {
		b.PickupLocation = *u.PickupLocation
	}
	if u.Notes != nil {
		b.Notes = *u.Notes
	}

	if u.CountryCode != nil {
		code := strings.TrimSpace(*u.CountryCode)
		if !validCountryCode(code) {
			return ValidationError{Field: "country_code", Msg: "Country code must look like +60."}
		}
		next.CountryCode = code
	}
	if u.LocalPhone != nil {
		if !validPhoneChars(*u.LocalPhone) {
			return ValidationError{Field: "phone", Msg: "Phone number may only contain digits and punctuation."}
		}
		next.LocalPhone = *u.LocalPhone
	}
	b.Phone = ComposePhone(next.CountryCode, next.LocalPhone)

	counts := []struct {
		field string
		src   *int
		dst   *int
	}{
		{"adults", u.Adults, &b.Adults},
		{"kids", u.Kids, &b.Kids},
		{"infants", u.Infants, &b.Infants},
		{"luggage_s", u.LuggageS, &b.Luggage.S},
		{"luggage_m", u.LuggageM, &b.Luggage.M},
		{"luggage_l", u.LuggageL, &b.Luggage.L},
		{"luggage_xl", u.LuggageXL, &b.Luggage.XL},
	}
	for _, c := range counts {
		if c.src == nil {
			continue
		}
		if *c.src < 0 {
			return ValidationError{Field: c.field, Msg: "Counts cannot be negative."}
		}
		*c.dst = *c.src
	}

	if u.PickupDate != nil {
		loc := next.CreatedOn.Location()
		date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(*u.PickupDate), loc)
		if err != nil {
			return ValidationError{Field: "pickup_date", Msg: "Pickup date must be formatted as YYYY-MM-DD."}
		}
		if date.Before(next.CreatedOn) {
			return ValidationError{Field: "pickup_date", Msg: "Pickup date cannot be in the past."}
		}
		b.PickupDate = date
	}

	if u.Hour != nil {
		if *u.Hour < 1 || *u.Hour > 12 {
			return ValidationError{Field: "hour", Msg: "Hour must be between 1 and 12."}
		}
		b.PickupTime.Hour = *u.Hour
	}
	if u.Minute != nil {
		if *u.Minute < 0 || *u.Minute > 55 || *u.Minute%5 != 0 {
			return ValidationError{Field: "minute", Msg: "Minute must be a multiple of 5 between 0 and 55."}
		}
		b.PickupTime.Minute = *u.Minute
	}
	if u.Period != nil {
		p := Period(strings.ToUpper(strings.TrimSpace(*u.Period)))
		if !p.Valid() {
			return ValidationError{Field: "period", Msg: "Period must be AM or PM."}
		}
		b.PickupTime.Period = p
	}

	*f = next
	return nil
}

// ComposePhone joins the country code and the local number. A blank local
// number yields an empty phone so that the required-field check catches it.
func ComposePhone(countryCode, local string) string {
	local = strings.TrimSpace(local)
	if local == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(countryCode) + " " + local)
}

func validCountryCode(code string) bool {
	if code == "" {
		return true
	}
	digits := strings.TrimPrefix(code, "+")
	if digits == "" || len(digits) > 4 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validPhoneChars(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case strings.ContainsRune(" +-().", r):
		default:
			return false
		}
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
