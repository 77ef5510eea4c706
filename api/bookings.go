package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Domenick1991/seatbook/internal/domain"
	"github.com/Domenick1991/seatbook/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

// formValue keeps the raw text of a field. JSON numbers are accepted as well as strings.
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	*v = formValue(data)
	return nil
}

type createBookingRequest struct {
	PassengerID    formValue `json:"passenger_id" form:"passenger_id"`
	FlightID       formValue `json:"flight_id" form:"flight_id"`
	RoundTrip      bool      `json:"round_trip" form:"round_trip"`
	ReturnFlightID formValue `json:"return_flight_id" form:"return_flight_id"`
}

type bookingResponse struct {
	ID          int64  `json:"id"`
	PassengerID int64  `json:"passenger_id"`
	FlightID    int64  `json:"flight_id"`
	Leg         string `json:"leg,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type bookingsResponse struct {
	Bookings []bookingResponse `json:"bookings"`
}

func toBookingResponse(b domain.Booking, leg domain.Leg) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		PassengerID: b.PassengerID,
		FlightID:    b.FlightID,
		Leg:         string(leg),
		CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.DELETE("/:id", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBind(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "malformed request body", Code: domain.KindInvalidInput})
		return
	}

	input, err := booking.ParseCreateInput(string(req.PassengerID), string(req.FlightID), req.RoundTrip, string(req.ReturnFlightID))
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := bookingsResponse{Bookings: []bookingResponse{toBookingResponse(result.Outbound, domain.LegOutbound)}}
	if result.Return != nil {
		resp.Bookings = append(resp.Bookings, toBookingResponse(*result.Return, domain.LegReturn))
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, err := booking.ParseID("booking id", c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	cancelled, err := h.service.CancelBooking(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(*cancelled, ""))
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.service.ListBookings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	resp := bookingsResponse{Bookings: make([]bookingResponse, 0, len(bookings))}
	for _, b := range bookings {
		resp.Bookings = append(resp.Bookings, toBookingResponse(b, ""))
	}
	c.JSON(http.StatusOK, resp)
}
