package api

import (
	"github.com/dad1755/ktransport/internal/domain"
	"github.com/dad1755/ktransport/internal/service/booking"
)

// formUpdateRequest is accepted both as JSON (PATCH /api/booking/form) and
// as an HTML form post. Fields left out are not changed.
type formUpdateRequest struct {
	Name           *string `json:"name" form:"name"`
	CountryCode    *string `json:"country_code" form:"country_code" binding:"omitempty,max=5"`
	Phone          *string `json:"phone" form:"phone" binding:"omitempty,max=32"`
	Destination    *string `json:"destination" form:"destination"`
	PickupLocation *string `json:"pickup_location" form:"pickup_location"`
	Adults         *int    `json:"adults" form:"adults" binding:"omitempty,min=0"`
	Kids           *int    `json:"kids" form:"kids" binding:"omitempty,min=0"`
	Infants        *int    `json:"infants" form:"infants" binding:"omitempty,min=0"`
	PickupDate     *string `json:"pickup_date" form:"pickup_date"`
	Hour           *int    `json:"hour" form:"hour" binding:"omitempty,min=1,max=12"`
	Minute         *int    `json:"minute" form:"minute" binding:"omitempty,min=0,max=55,minute5"`
	Period         *string `json:"period" form:"period"`
	LuggageS       *int    `json:"luggage_s" form:"luggage_s" binding:"omitempty,min=0"`
	LuggageM       *int    `json:"luggage_m" form:"luggage_m" binding:"omitempty,min=0"`
	LuggageL       *int    `json:"luggage_l" form:"luggage_l" binding:"omitempty,min=0"`
	LuggageXL      *int    `json:"luggage_xl" form:"luggage_xl" binding:"omitempty,min=0"`
	Notes          *string `json:"notes" form:"notes"`
}

func (r formUpdateRequest) toUpdate() domain.FormUpdate {
	return domain.FormUpdate{
		Name:           r.Name,
		CountryCode:    r.CountryCode,
		LocalPhone:     r.Phone,
		Destination:    r.Destination,
		PickupLocation: r.PickupLocation,
		Adults:         r.Adults,
		Kids:           r.Kids,
		Infants:        r.Infants,
		PickupDate:     r.PickupDate,
		Hour:           r.Hour,
		Minute:         r.Minute,
		Period:         r.Period,
		LuggageS:       r.LuggageS,
		LuggageM:       r.LuggageM,
		LuggageL:       r.LuggageL,
		LuggageXL:      r.LuggageXL,
		Notes:          r.Notes,
	}
}

type formResponse struct {
	Name           string         `json:"name"`
	CountryCode    string         `json:"country_code"`
	LocalPhone     string         `json:"local_phone"`
	Phone          string         `json:"phone"`
	Destination    string         `json:"destination"`
	PickupLocation string         `json:"pickup_location"`
	Adults         int            `json:"adults"`
	Kids           int            `json:"kids"`
	Infants        int            `json:"infants"`
	PickupDate     string         `json:"pickup_date"`
	MinPickupDate  string         `json:"min_pickup_date"`
	Hour           int            `json:"hour"`
	Minute         int            `json:"minute"`
	Period         string         `json:"period"`
	PickupTime     string         `json:"pickup_time"`
	Luggage        domain.Luggage `json:"luggage"`
	Notes          string         `json:"notes"`
}

func toFormResponse(f domain.FormState) formResponse {
	b := f.Booking
	return formResponse{
		Name:           b.Name,
		CountryCode:    f.CountryCode,
		LocalPhone:     f.LocalPhone,
		Phone:          b.Phone,
		Destination:    b.Destination,
		PickupLocation: b.PickupLocation,
		Adults:         b.Adults,
		Kids:           b.Kids,
		Infants:        b.Infants,
		PickupDate:     b.PickupDateString(),
		MinPickupDate:  f.CreatedOn.Format(domain.DateLayout),
		Hour:           b.PickupTime.Hour,
		Minute:         b.PickupTime.Minute,
		Period:         string(b.PickupTime.Period),
		PickupTime:     b.PickupTime.String(),
		Luggage:        b.Luggage,
		Notes:          b.Notes,
	}
}

type submitResponse struct {
	ID            string       `json:"id"`
	Confirmation  string       `json:"confirmation"`
	ChatDelivered bool         `json:"chat_delivered"`
	ChatError     string       `json:"chat_error,omitempty"`
	Form          formResponse `json:"form"`
}

func toSubmitResponse(o *booking.Outcome, form domain.FormState) submitResponse {
	return submitResponse{
		ID:            o.ID,
		Confirmation:  o.Confirmation,
		ChatDelivered: o.ChatDelivered,
		ChatError:     o.ChatError,
		Form:          toFormResponse(form),
	}
}

type pageView struct {
	Form      formResponse
	Places    domain.Places
	Notices   []domain.Notice
	Confirmed *domain.Booking
	Hours     []int
	Minutes   []int
	Periods   []string
}

func newPageView(s *domain.Session, places domain.Places, notices []domain.Notice, confirmed *domain.Booking) pageView {
	hours := make([]int, 0, 12)
	for h := 1; h <= 12; h++ {
		hours = append(hours, h)
	}
	minutes := make([]int, 0, 12)
	for m := 0; m < 60; m += 5 {
		minutes = append(minutes, m)
	}
	return pageView{
		Form:      toFormResponse(s.Form),
		Places:    places,
		Notices:   notices,
		Confirmed: confirmed,
		Hours:     hours,
		Minutes:   minutes,
		Periods:   []string{string(domain.PeriodAM), string(domain.PeriodPM)},
	}
}
