package routes

import (
	"github.com/callendar-yojung/pecal-sub002/handlers/billing"
	"github.com/callendar-yojung/pecal-sub002/middleware"

	"github.com/gin-gonic/gin"
)

func BillingRoutes(r *gin.Engine) {
	// Browser redirects from the payment gateway land here. The member may
	// or may not carry a token, so auth is optional.
	callbackRoutes := r.Group("/nicepay")
	callbackRoutes.Use(middleware.OptionalAuth())
	{
		callbackRoutes.POST("/billing/register", billing.RegisterBillingKeyCallback)
		callbackRoutes.POST("/approve", billing.ApproveCheckoutCallback)
	}

	r.POST("/nicepay/subscribe", middleware.JWTAuth(), billing.SubscribeWithSavedCard)

	cardRoutes := r.Group("/billing/card")
	cardRoutes.Use(middleware.JWTAuth())
	{
		cardRoutes.GET("", billing.GetActiveCard)
		cardRoutes.DELETE("", billing.RemoveCard)
	}

	r.POST("/cron/billing", middleware.CronAuth(), billing.RunBillingScheduler)
}
