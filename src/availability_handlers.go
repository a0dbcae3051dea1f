package main

import (
	"log"
	"net/http"
	"time"

	"github.com/Marwan8766/travel-planner-api/src/config"
	"github.com/Marwan8766/travel-planner-api/src/db"
	"github.com/Marwan8766/travel-planner-api/src/middlewares"
	"github.com/Marwan8766/travel-planner-api/src/types"
	"github.com/Marwan8766/travel-planner-api/src/utils"
	"github.com/gin-gonic/gin"
)

func availabilityRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.GET("/:itemType/:id/availabilities", func(ctx *gin.Context) {
		var params types.ProductURIParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var query types.AvailabilityRangeQuery
		if err := ctx.ShouldBindQuery(&query); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var start, end *time.Time
		if query.StartDate != "" {
			parsed, err := time.Parse(config.DATE_PARSE_FORMAT, query.StartDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			start = &parsed
		}
		if query.EndDate != "" {
			parsed, err := time.Parse(config.DATE_PARSE_FORMAT, query.EndDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end = &parsed
		}
		slots, err := utils.GetAvailabilities(params.ItemType, params.ID, start, end)
		if err != nil {
			ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"data": slots, "count": len(slots)})
	})

	manage := apiv1.Group("/:itemType/:id/availabilities")
	manage.Use(middlewares.AuthMiddleware)
	manage.Use(middlewares.RequireRole(types.ROLE_COMPANY, types.ROLE_ADMIN))
	manage.
		POST("", func(ctx *gin.Context) {
			var params types.ProductURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CreateAvailabilityRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !canManage(ctx, params.ItemType, params.ID) {
				return
			}
			start, err := time.Parse(config.DATE_PARSE_FORMAT, body.StartDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			end, err := time.Parse(config.DATE_PARSE_FORMAT, body.EndDate)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			slots, err := utils.CreateAvailabilitySlots(params.ItemType, params.ID, start, end, body.AvailableSeats)
			if err != nil {
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": slots, "count": len(slots)})
		}).
		PATCH("", func(ctx *gin.Context) {
			var params types.ProductURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateAvailabilityRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !canManage(ctx, params.ItemType, params.ID) {
				return
			}
			date, err := time.Parse(config.DATE_PARSE_FORMAT, body.Date)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var newDate *time.Time
			if body.NewDate != nil {
				parsed, err := time.Parse(config.DATE_PARSE_FORMAT, *body.NewDate)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				newDate = &parsed
			}
			slot, err := utils.UpdateAvailabilitySlot(params.ItemType, params.ID, date, body.AvailableSeats, newDate)
			if err != nil {
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": slot})
		}).
		DELETE("", func(ctx *gin.Context) {
			var params types.ProductURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.DeleteAvailabilityRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !canManage(ctx, params.ItemType, params.ID) {
				return
			}
			date, err := time.Parse(config.DATE_PARSE_FORMAT, body.Date)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := utils.DeleteAvailabilitySlot(params.ItemType, params.ID, date); err != nil {
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return apiv1
}

// canManage aborts the request when the caller may not change the
// product's availability.
func canManage(ctx *gin.Context, itemType types.ProductType, productId uint) bool {
	userId := ctx.GetUint("id")
	role := types.UserRole(ctx.GetString("role"))
	db := db.GetDb()
	allowed, err := utils.CanManageProduct(db, userId, role, itemType, productId)
	if err != nil {
		ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return false
	}
	if !allowed {
		log.Printf("User %d may not manage %s %d\n", userId, itemType, productId)
		ctx.Status(http.StatusForbidden)
		return false
	}
	return true
}
