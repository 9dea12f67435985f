package routes

import (
	"github.com/callendar-yojung/pecal-sub002/handlers/subscriptions"
	"github.com/callendar-yojung/pecal-sub002/middleware"

	"github.com/gin-gonic/gin"
)

func SubscriptionsRoutes(r *gin.Engine) {
	subscriptionRoutes := r.Group("/subscriptions")
	subscriptionRoutes.Use(middleware.JWTAuth())
	{
		subscriptionRoutes.GET("", subscriptions.GetSubscriptions)
		subscriptionRoutes.GET("/:subscriptionId", subscriptions.GetSubscriptionDetail)
		subscriptionRoutes.GET("/:subscriptionId/payments", subscriptions.GetSubscriptionPayments)
		subscriptionRoutes.DELETE("/:subscriptionId", subscriptions.CancelSubscription)
	}

	r.GET("/payments", middleware.JWTAuth(), subscriptions.GetOwnerPayments)
}
