package transport

import (
	"net/http"

	"github.com/dalsjofors/hyrservice/config"
	"github.com/dalsjofors/hyrservice/internal/service"
	"github.com/dalsjofors/hyrservice/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

// InitRoutes builds the gin engine. Every ledger-adjacent route runs the
// inline expiry sweep first; the pure price quote is the one exemption.
func InitRoutes(cfg *config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(cfg.Server.Timeout))

	bookingHandler := NewBookingHandler(services.Ledger, services.Machine)
	paymentHandler := NewPaymentHandler(services.Payments)
	adminHandler := NewAdminHandler(services.Ledger, services.TestBookings)

	sweep := middleware.Sweep(services.Sweeper)

	api := router.Group("/api")
	{
		api.GET("/price", bookingHandler.GetPrice)
		api.GET("/availability", sweep, bookingHandler.GetAvailability)
		api.POST("/hold", sweep, bookingHandler.CreateHold)

		api.GET("/payment", sweep, paymentHandler.GetPayment)
		api.GET("/payment/status", sweep, paymentHandler.GetPaymentStatus)
		api.POST("/swish/callback", sweep, paymentHandler.SwishCallback)

		admin := api.Group("/admin", middleware.AdminAuth(cfg.Admin.Token), sweep)
		{
			admin.GET("/blocks", adminHandler.ListBlocks)
			admin.POST("/blocks", adminHandler.CreateBlock)
			admin.DELETE("/blocks/:id", adminHandler.DeleteBlock)

			admin.GET("/bookings", bookingHandler.ListBookings)
			admin.GET("/bookings/:id", bookingHandler.GetBooking)
			admin.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)

			admin.POST("/test-bookings", adminHandler.CreateTestBooking)
		}

		api.GET("/health", sweep, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})
	}

	return router
}
