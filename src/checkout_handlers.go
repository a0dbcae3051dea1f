package main

import (
	"net/http"

	"github.com/Marwan8766/travel-planner-api/src/middlewares"
	"github.com/Marwan8766/travel-planner-api/src/utils"
	"github.com/gin-gonic/gin"
)

func checkoutRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	checkout := apiv1.Group("/checkout")
	checkout.Use(middlewares.AuthMiddleware)
	checkout.POST("", func(ctx *gin.Context) {
		userId := ctx.GetUint("id")
		url, err := utils.CheckoutCart(userId)
		if err != nil {
			ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusCreated, gin.H{"url": url})
	})
	return apiv1
}
