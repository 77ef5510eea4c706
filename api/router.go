package api

import (
	_ "embed"
	"net/http"

	"github.com/Domenick1991/seatbook/internal/service/booking"
	"github.com/Domenick1991/seatbook/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openAPIDoc []byte

type RouterConfig struct {
	Bookings    booking.BookingUseCase
	Flights     flights.FlightUseCase
	Log         logrus.FieldLogger
	DocsEnabled bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), AccessLog(cfg.Log), Recovery(cfg.Log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	NewBookingHandler(cfg.Bookings).Register(v1.Group("/bookings"))
	NewFlightHandler(cfg.Flights).Register(v1.Group("/flights"))

	if cfg.DocsEnabled {
		router.GET("/openapi.json", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json", openAPIDoc)
		})
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))
	}

	return router
}
