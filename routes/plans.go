package routes

import (
	"github.com/callendar-yojung/pecal-sub002/handlers/plans"
	"github.com/callendar-yojung/pecal-sub002/middleware"

	"github.com/gin-gonic/gin"
)

func PlansRoutes(r *gin.Engine) {
	// Plan catalog is public, the checkout page reads it before login.
	plansPublicRoutes := r.Group("/plans")
	plansPublicRoutes.GET("", plans.GetAllPlans)
	plansPublicRoutes.GET("/:id", plans.GetPlanByID)

	// Catalog management is admin only.
	plansPrivateRoutes := r.Group("/plans")
	plansPrivateRoutes.Use(middleware.JWTAuth())
	plansPrivateRoutes.Use(middleware.AdminAuth())
	{
		plansPrivateRoutes.POST("", plans.CreatePlan)
		plansPrivateRoutes.PUT("/:id", plans.UpdatePlan)
		plansPrivateRoutes.DELETE("/:id", plans.DeletePlan)
	}
}
