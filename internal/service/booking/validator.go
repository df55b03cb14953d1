package booking

import (
	"strings"

	"github.com/dad1755/ktransport/internal/domain"
)

const (
	MsgRequiredFields = "Please fill out all required fields."
	MsgAdultRequired  = "At least one adult is required."
)

// Validate checks a booking before anything is sent. Rules run in order and
// the first failure is returned. Destination, pickup location, notes and
// luggage are intentionally not checked.
func Validate(b domain.Booking) error {
	if strings.TrimSpace(b.Name) == "" {
		return domain.ValidationError{Field: "name", Msg: MsgRequiredFields}
	}
	if strings.TrimSpace(b.Phone) == "" {
		return domain.ValidationError{Field: "phone", Msg: MsgRequiredFields}
	}
	if b.Adults < 1 {
		return domain.ValidationError{Field: "adults", Msg: MsgAdultRequired}
	}
	return nil
}
