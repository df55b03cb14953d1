package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dad1755/ktransport/internal/cache"
	"github.com/dad1755/ktransport/internal/domain"
	"github.com/dad1755/ktransport/internal/email"
	"github.com/dad1755/ktransport/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) Submit(ctx context.Context, form *domain.FormState) (*booking.Outcome, error) {
	args := m.Called(ctx, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Outcome), args.Error(1)
}

type MockPlaceUseCase struct {
	mock.Mock
}

func (m *MockPlaceUseCase) List(ctx context.Context) (domain.Places, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Places), args.Error(1)
}

var handlerNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

const cookieName = "kt_session"

type testServer struct {
	router   *gin.Engine
	bookings *MockBookingUseCase
	places   *MockPlaceUseCase
	cookies  []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockBookings := &MockBookingUseCase{}
	mockPlaces := &MockPlaceUseCase{}
	sessions := cache.NewMemoryCache(time.Hour, time.Minute)

	handler := NewBookingHandler(mockBookings, sessions, mockPlaces, CookieConfig{Name: cookieName, MaxAge: time.Hour}, nil)
	handler.now = func() time.Time { return handlerNow }

	return &testServer{
		router:   NewRouter(handler, NewPlaceHandler(mockPlaces), nil),
		bookings: mockBookings,
		places:   mockPlaces,
	}
}

// do sends a request carrying the session cookie from earlier responses.
func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

func (s *testServer) patchForm(t *testing.T, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, "/api/booking/form", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func decodeForm(t *testing.T, w *httptest.ResponseRecorder) formResponse {
	t.Helper()
	var resp formResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var alexUpdate = map[string]interface{}{
	"name":      "Alex",
	"phone":     "123456789",
	"adults":    2,
	"luggage_s": 1,
}

func resetOnSubmit(args mock.Arguments) {
	args.Get(1).(*domain.FormState).Reset(handlerNow)
}

func TestBookingHandler_getForm_Defaults(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/booking/form", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, s.cookies)
	assert.Equal(t, cookieName, s.cookies[0].Name)

	form := decodeForm(t, w)
	assert.Equal(t, "+60", form.CountryCode)
	assert.Equal(t, "2026-10-15", form.PickupDate)
	assert.Equal(t, "2026-10-15", form.MinPickupDate)
	assert.Equal(t, "1:00 AM", form.PickupTime)
	assert.Zero(t, form.Adults)
	assert.Empty(t, form.Phone)
}

func TestBookingHandler_updateForm(t *testing.T) {
	s := newTestServer(t)

	w := s.patchForm(t, alexUpdate)
	require.Equal(t, http.StatusOK, w.Code)
	form := decodeForm(t, w)
	assert.Equal(t, "Alex", form.Name)
	assert.Equal(t, "+60 123456789", form.Phone)

	w = s.patchForm(t, map[string]interface{}{"hour": 3, "minute": 45, "period": "PM"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/booking/form", nil))
	form = decodeForm(t, w)
	assert.Equal(t, "Alex", form.Name)
	assert.Equal(t, 2, form.Adults)
	assert.Equal(t, 1, form.Luggage.S)
	assert.Equal(t, "3:45 PM", form.PickupTime)
}

func TestBookingHandler_updateForm_Invalid(t *testing.T) {
	testCases := []struct {
		name          string
		body          map[string]interface{}
		expectedField string
	}{
		{name: "Hour out of range", body: map[string]interface{}{"hour": 13}, expectedField: "hour"},
		{name: "Minute not multiple of five", body: map[string]interface{}{"minute": 7}, expectedField: "minute"},
		{name: "Unknown period", body: map[string]interface{}{"period": "XM"}, expectedField: "period"},
		{name: "Negative kids", body: map[string]interface{}{"kids": -1}, expectedField: "kids"},
		{name: "Past date", body: map[string]interface{}{"pickup_date": "2026-10-14"}, expectedField: "pickup_date"},
		{name: "Malformed date", body: map[string]interface{}{"pickup_date": "15/10/2026"}, expectedField: "pickup_date"},
		{name: "Letters in phone", body: map[string]interface{}{"phone": "12ab"}, expectedField: "phone"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			require.Equal(t, http.StatusOK, s.patchForm(t, map[string]interface{}{"name": "Alex"}).Code)

			w := s.patchForm(t, tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, "validation_error", resp.Code)
			assert.Equal(t, tc.expectedField, resp.Field)
			assert.NotEmpty(t, resp.RequestID)

			form := decodeForm(t, s.do(httptest.NewRequest(http.MethodGet, "/api/booking/form", nil)))
			assert.Equal(t, "Alex", form.Name)
			assert.Equal(t, "1:00 AM", form.PickupTime)
			assert.Equal(t, "2026-10-15", form.PickupDate)
		})
	}
}

func TestBookingHandler_updateForm_BadJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPatch, "/api/booking/form", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	w := s.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body.", decodeError(t, w).Error)
}

func TestBookingHandler_resetForm(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.patchForm(t, alexUpdate).Code)

	w := s.do(httptest.NewRequest(http.MethodDelete, "/api/booking/form", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	form := decodeForm(t, w)
	assert.Empty(t, form.Name)
	assert.Zero(t, form.Adults)
	assert.Zero(t, form.Luggage.S)
	assert.Equal(t, "+60", form.CountryCode)
}

func TestBookingHandler_submit_Success(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.patchForm(t, alexUpdate).Code)

	s.bookings.On("Submit", mock.Anything, mock.MatchedBy(func(f *domain.FormState) bool {
		return f.Booking.Name == "Alex" && f.Booking.Phone == "+60 123456789"
	})).Run(resetOnSubmit).Return(&booking.Outcome{
		ID:            "b-1",
		Confirmation:  "Booking Confirmed for Alex!",
		Booking:       domain.Booking{Name: "Alex"},
		ChatDelivered: true,
	}, nil).Once()

	w := s.do(httptest.NewRequest(http.MethodPost, "/api/booking/submit", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp submitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "b-1", resp.ID)
	assert.Equal(t, "Booking Confirmed for Alex!", resp.Confirmation)
	assert.True(t, resp.ChatDelivered)
	assert.Empty(t, resp.Form.Name)

	form := decodeForm(t, s.do(httptest.NewRequest(http.MethodGet, "/api/booking/form", nil)))
	assert.Empty(t, form.Name)
	s.bookings.AssertExpectations(t)
}

func TestBookingHandler_submit_Errors(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Validation",
			err:          domain.ValidationError{Msg: booking.MsgRequiredFields},
			expectedCode: http.StatusBadRequest,
			expectedBody: booking.MsgRequiredFields,
		},
		{
			name:         "Email failure",
			err:          domain.NotificationError{Channel: domain.ChannelEmail, Err: errors.New("535 authentication failed")},
			expectedCode: http.StatusBadGateway,
			expectedBody: "535 authentication failed",
		},
		{
			name:         "Unexpected",
			err:          errors.New("boom"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: "internal error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			require.Equal(t, http.StatusOK, s.patchForm(t, alexUpdate).Code)
			s.bookings.On("Submit", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			w := s.do(httptest.NewRequest(http.MethodPost, "/api/booking/submit", nil))

			assert.Equal(t, tc.expectedCode, w.Code)
			assert.Contains(t, decodeError(t, w).Error, tc.expectedBody)

			form := decodeForm(t, s.do(httptest.NewRequest(http.MethodGet, "/api/booking/form", nil)))
			assert.Equal(t, "Alex", form.Name)
		})
	}
}

func TestBookingHandler_page(t *testing.T) {
	s := newTestServer(t)
	s.places.On("List", mock.Anything).Return(domain.Places{
		Destinations:    []string{"Kuala Lumpur"},
		PickupLocations: []string{"KLIA"},
	}, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<option value="Kuala Lumpur">`)
	assert.Contains(t, body, `<option value="KLIA">`)
	assert.Contains(t, body, `value="&#43;60"`)
	assert.Contains(t, body, "1:00 AM")
}

func TestBookingHandler_page_PlacesErrorStillRenders(t *testing.T) {
	s := newTestServer(t)
	s.places.On("List", mock.Anything).Return(domain.Places{}, errors.New("redis down"))

	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func postPage(s *testServer, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func alexValues(action string) url.Values {
	return url.Values{
		"action":       {action},
		"name":         {"Alex"},
		"country_code": {"+60"},
		"phone":        {"123456789"},
		"adults":       {"2"},
		"kids":         {"0"},
		"infants":      {"0"},
		"pickup_date":  {"2026-10-15"},
		"hour":         {"1"},
		"minute":       {"0"},
		"period":       {"AM"},
		"luggage_s":    {"1"},
	}
}

func TestBookingHandler_postPage_SubmitShowsConfirmation(t *testing.T) {
	s := newTestServer(t)
	s.places.On("List", mock.Anything).Return(domain.Places{}, nil)
	s.bookings.On("Submit", mock.Anything, mock.Anything).Run(resetOnSubmit).Return(&booking.Outcome{
		ID:            "b-1",
		Confirmation:  "Booking Confirmed for Alex!",
		Booking:       domain.Booking{Name: "Alex", Phone: "+60 123456789", Adults: 2},
		ChatDelivered: false,
		ChatError:     "relay responded with status 500",
	}, nil).Once()

	w := postPage(s, alexValues("submit"))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	body := w.Body.String()
	assert.Contains(t, body, "Booking Confirmed for Alex!")
	assert.Contains(t, body, "Booking email sent successfully!")
	assert.Contains(t, body, "Failed to send WhatsApp message.")
	assert.Contains(t, body, "relay responded with status 500")

	// Notices are shown once.
	w = s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotContains(t, w.Body.String(), "Booking email sent successfully!")
	s.bookings.AssertExpectations(t)
}

func TestBookingHandler_postPage_SaveDoesNotSubmit(t *testing.T) {
	s := newTestServer(t)

	w := postPage(s, alexValues("save"))
	require.Equal(t, http.StatusSeeOther, w.Code)

	form := decodeForm(t, s.do(httptest.NewRequest(http.MethodGet, "/api/booking/form", nil)))
	assert.Equal(t, "Alex", form.Name)
	assert.Equal(t, 2, form.Adults)
	s.bookings.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestBookingHandler_postPage_EmailFailureKeepsValues(t *testing.T) {
	s := newTestServer(t)
	s.places.On("List", mock.Anything).Return(domain.Places{}, nil)
	s.bookings.On("Submit", mock.Anything, mock.Anything).
		Return(nil, domain.NotificationError{Channel: domain.ChannelEmail, Err: errors.New("dial tcp: timeout")}).Once()

	require.Equal(t, http.StatusSeeOther, postPage(s, alexValues("submit")).Code)

	body := s.do(httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
	assert.Contains(t, body, "Failed to send email.")
	assert.Contains(t, body, "dial tcp: timeout")
	assert.Contains(t, body, `value="Alex"`)
}

func TestBookingHandler_postPage_Reset(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.patchForm(t, alexUpdate).Code)

	w := postPage(s, url.Values{"action": {"reset"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	form := decodeForm(t, s.do(httptest.NewRequest(http.MethodGet, "/api/booking/form", nil)))
	assert.Empty(t, form.Name)
}

func TestBookingHandler_unknownCookieStartsNewSession(t *testing.T) {
	s := newTestServer(t)
	s.cookies = []*http.Cookie{{Name: cookieName, Value: "not-a-uuid"}}

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/booking/form", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, s.cookies)
	assert.NotEqual(t, "not-a-uuid", s.cookies[0].Value)
}

func TestRouter_healthz(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestBookingHandler_updateForm_LowercasePeriod(t *testing.T) {
	s := newTestServer(t)

	w := s.patchForm(t, map[string]interface{}{"hour": 7, "minute": 30, "period": "pm"})

	require.Equal(t, http.StatusOK, w.Code)
	form := decodeForm(t, w)
	assert.Equal(t, "PM", form.Period)
	assert.Equal(t, "7:30 PM", form.PickupTime)
}

// heldEmailSender blocks inside Send until release is closed.
type heldEmailSender struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (s *heldEmailSender) Send(ctx context.Context, msg email.Message) error {
	s.calls.Add(1)
	s.entered <- struct{}{}
	<-s.release
	return nil
}

type countingChatSender struct {
	calls atomic.Int32
}

func (s *countingChatSender) Send(ctx context.Context, text string) error {
	s.calls.Add(1)
	return nil
}

// newServiceServer wires the real booking service so the whole
// load, submit and save sequence runs for each request.
func newServiceServer(t *testing.T) (*testServer, *heldEmailSender, *countingChatSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sender := &heldEmailSender{entered: make(chan struct{}, 4), release: make(chan struct{})}
	chat := &countingChatSender{}
	clock := func() time.Time { return handlerNow }
	service := booking.NewBookingService(booking.NewFormatter("", true, ""), sender, chat, booking.WithClock(clock))

	handler := NewBookingHandler(service, cache.NewMemoryCache(time.Hour, time.Minute), nil, CookieConfig{Name: cookieName, MaxAge: time.Hour}, nil)
	handler.now = clock

	s := &testServer{router: NewRouter(handler, NewPlaceHandler(&MockPlaceUseCase{}), nil)}
	require.Equal(t, http.StatusOK, s.patchForm(t, alexUpdate).Code)
	return s, sender, chat
}

// serve runs one request with the session cookie without touching s.cookies,
// so it is safe to call from several goroutines.
func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestBookingHandler_submit_SameSessionRunsOnce(t *testing.T) {
	s, sender, chat := newServiceServer(t)

	codes := make(chan int, 2)
	submit := func() {
		codes <- s.serve(httptest.NewRequest(http.MethodPost, "/api/booking/submit", nil)).Code
	}

	go submit()
	<-sender.entered
	go submit()
	time.Sleep(50 * time.Millisecond)
	close(sender.release)

	got := []int{<-codes, <-codes}
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusBadRequest}, got)
	assert.EqualValues(t, 1, sender.calls.Load())
	assert.EqualValues(t, 1, chat.calls.Load())

	form := decodeForm(t, s.do(httptest.NewRequest(http.MethodGet, "/api/booking/form", nil)))
	assert.Empty(t, form.Name)
}

func TestBookingHandler_updateDuringSubmitSeesResetForm(t *testing.T) {
	s, sender, _ := newServiceServer(t)

	submitted := make(chan int, 1)
	go func() {
		submitted <- s.serve(httptest.NewRequest(http.MethodPost, "/api/booking/submit", nil)).Code
	}()
	<-sender.entered

	patched := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPatch, "/api/booking/form", strings.NewReader(`{"notes":"second trip"}`))
		req.Header.Set("Content-Type", "application/json")
		patched <- s.serve(req)
	}()
	time.Sleep(50 * time.Millisecond)
	close(sender.release)

	assert.Equal(t, http.StatusOK, <-submitted)
	w := <-patched
	require.Equal(t, http.StatusOK, w.Code)

	form := decodeForm(t, w)
	assert.Empty(t, form.Name)
	assert.Zero(t, form.Adults)
	assert.Equal(t, "second trip", form.Notes)
}
