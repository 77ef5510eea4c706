package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/seatbook/internal/kafka"
	"github.com/sirupsen/logrus"
)

// Sender turns booking events into passenger notifications. Delivery is a log
// line until an SMTP relay is configured for the worker.
type Sender struct {
	log logrus.FieldLogger
}

func NewSender(log logrus.FieldLogger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	subject, err := Subject(event)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"event_id":     event.EventID,
		"passenger_id": event.PassengerID,
		"booking_id":   event.BookingID,
		"flight_id":    event.FlightID,
	}).Info(subject)
	return nil
}

func Subject(event kafka.BookingEvent) (string, error) {
	switch event.Type {
	case kafka.EventBookingCreated:
		if event.Leg != "" {
			return fmt.Sprintf("Booking %d confirmed: %s flight %d", event.BookingID, event.Leg, event.FlightID), nil
		}
		return fmt.Sprintf("Booking %d confirmed: flight %d", event.BookingID, event.FlightID), nil
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("Booking %d cancelled: flight %d", event.BookingID, event.FlightID), nil
	default:
		return "", fmt.Errorf("unknown booking event type %q", event.Type)
	}
}
