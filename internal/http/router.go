package api

import (
	stdhttp "net/http"

	intconfig "bustravel/internal/config"
	"bustravel/internal/domain"
	h "bustravel/internal/http/handlers"
	"bustravel/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func NewRouter(env intconfig.Env, hs *h.Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		logrus.WithError(err).Warn("failed to set trusted proxies")
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", hs.Health)

		// Payment gateway callbacks carry a shared secret, not a user token.
		payments := api.Group("/payments")
		payments.POST("/webhook", middleware.WebhookSecret(env.PaymentWebhookSecret), hs.PaymentWebhook)

		authed := api.Group("", middleware.Auth([]byte(env.JWTSecret)))
		mountTrips(authed.Group("/trips"), hs)
		mountHolds(authed.Group("/holds"), hs)
		mountBookings(authed.Group("/bookings"), hs)

		drivers := authed.Group("/drivers", middleware.RequireRoles(domain.RoleDriver, domain.RoleOperator))
		drivers.GET("/:id/revenue/monthly", hs.DriverMonthlyRevenue)
	}

	return r
}

func mountTrips(g *gin.RouterGroup, hs *h.Handlers) {
	operator := middleware.RequireRoles(domain.RoleOperator)
	driver := middleware.RequireRoles(domain.RoleDriver)

	g.GET("", hs.SearchTrips)
	g.POST("", operator, hs.CreateTrip)
	g.GET("/:id", hs.GetTrip)
	g.GET("/:id/seats", hs.GetTripSeats)
	g.PATCH("/:id/driver", operator, hs.AssignDriver)
	g.PATCH("/:id/start", driver, hs.StartTrip)
	g.PATCH("/:id/complete", driver, hs.CompleteTrip)
	g.PATCH("/:id/cancel", operator, hs.CancelTrip)
}

func mountHolds(g *gin.RouterGroup, hs *h.Handlers) {
	g.POST("", hs.CreateHold)
	g.GET("/:id", hs.GetHold)
	g.POST("/:id/extend", hs.ExtendHold)
	g.DELETE("/:id", hs.CancelHold)
}

func mountBookings(g *gin.RouterGroup, hs *h.Handlers) {
	g.POST("/confirm", hs.ConfirmBooking)
	g.GET("/:id", hs.GetBooking)
	g.POST("/:id/cancel", hs.CancelBooking)
	g.GET("/:id/e-ticket", hs.GetETicketPDF)
	g.GET("/:id/invoice", hs.GetInvoicePDF)
}
