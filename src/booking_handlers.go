package main

import (
	"net/http"

	"github.com/Marwan8766/travel-planner-api/src/middlewares"
	"github.com/Marwan8766/travel-planner-api/src/types"
	"github.com/Marwan8766/travel-planner-api/src/utils"
	"github.com/gin-gonic/gin"
)

func bookingRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	bookings := apiv1.Group("/bookings")
	bookings.Use(middlewares.AuthMiddleware)
	bookings.
		GET("", func(ctx *gin.Context) {
			var query types.PaginationQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			records, err := utils.GetOwnBookings(userId, query.Page, query.Limit)
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": records, "count": len(records), "page": query.Page})
		}).
		DELETE("/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			if err := utils.DeleteOwnBooking(userId, params.ID); err != nil {
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return apiv1
}
