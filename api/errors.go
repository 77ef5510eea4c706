package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/seatbook/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error    string      `json:"error"`
	Code     domain.Kind `json:"code"`
	Leg      domain.Leg  `json:"leg,omitempty"`
	FlightID int64       `json:"flight_id,omitempty"`
}

func statusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindNoSeatsAvailable:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

// writeError renders err with the status of its kind. Storage details stay in the log.
func writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	resp := errorResponse{Error: err.Error(), Code: kind}

	var noSeats *domain.NoSeatsError
	if errors.As(err, &noSeats) {
		resp.Leg = noSeats.Leg
		resp.FlightID = noSeats.FlightID
	}
	if kind == domain.KindStorageFailure {
		resp.Error = "storage temporarily unavailable, try again"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusOf(kind), resp)
}
