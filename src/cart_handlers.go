package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/Marwan8766/travel-planner-api/src/config"
	"github.com/Marwan8766/travel-planner-api/src/db"
	"github.com/Marwan8766/travel-planner-api/src/middlewares"
	"github.com/Marwan8766/travel-planner-api/src/models"
	"github.com/Marwan8766/travel-planner-api/src/types"
	"github.com/Marwan8766/travel-planner-api/src/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func cartItemFromRequest(req *types.CartItemRequest) (*models.CartItem, error) {
	date, err := time.Parse(config.DATE_PARSE_FORMAT, req.Date)
	if err != nil {
		return nil, types.ErrValidation
	}
	item := models.CartItem{
		TourID:        req.TourID,
		TripProgramID: req.TripProgramID,
		Quantity:      req.Quantity,
		Date:          date,
	}
	if err := item.Validate(time.Now()); err != nil {
		return nil, err
	}
	return &item, nil
}

func cartRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	cart := apiv1.Group("/cart")
	cart.Use(middlewares.AuthMiddleware)
	cart.
		GET("", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var cart models.Cart
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				err := tx.
					Where(&models.Cart{UserID: userId}).
					Preload("Items").
					Preload("Items.Tour").
					Preload("Items.TripProgram").
					First(&cart).
					Error
				if err != nil {
					return err
				}
				return utils.PruneUnavailableItems(tx, &cart)
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": cart})
		}).
		POST("", func(ctx *gin.Context) {
			var body types.CreateCartRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			items := make([]models.CartItem, 0, len(body.Items))
			for _, req := range body.Items {
				item, err := cartItemFromRequest(&req)
				if err != nil {
					ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
					return
				}
				items = append(items, *item)
			}
			items = models.MergeCartItems(items)
			var cart models.Cart
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var count int64
				if err := tx.Model(&models.Cart{}).Where(&models.Cart{UserID: userId}).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return errors.New("cart already exists")
				}
				for i := range items {
					itemType := types.PRODUCT_TOUR
					var productId uint
					if items[i].TourID != nil {
						productId = *items[i].TourID
					} else {
						itemType = types.PRODUCT_TRIP_PROGRAM
						productId = *items[i].TripProgramID
					}
					if _, err := utils.LookupProduct(tx, itemType, productId); err != nil {
						return err
					}
					if err := utils.CheckSeatsAvailable(tx, itemType, productId, items[i].Date, int(items[i].Quantity)); err != nil {
						return err
					}
				}
				cart = models.Cart{UserID: userId, Items: items}
				return tx.Create(&cart).Error
			})
			if err != nil {
				status := http.StatusConflict
				switch {
				case errors.Is(err, types.ErrNotFound),
					errors.Is(err, types.ErrValidation),
					errors.Is(err, types.ErrInsufficientInventory):
					status = errorStatus(err)
				}
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": cart})
		}).
		POST("/items", func(ctx *gin.Context) {
			var body types.AddCartItemRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			item, err := cartItemFromRequest(&body.Item)
			if err != nil {
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			var cart models.Cart
			db := db.GetDb()
			err = db.Transaction(func(tx *gorm.DB) error {
				itemType := types.PRODUCT_TOUR
				var productId uint
				if item.TourID != nil {
					productId = *item.TourID
				} else {
					itemType = types.PRODUCT_TRIP_PROGRAM
					productId = *item.TripProgramID
				}
				if _, err := utils.LookupProduct(tx, itemType, productId); err != nil {
					return err
				}
				if err := utils.CheckSeatsAvailable(tx, itemType, productId, item.Date, int(item.Quantity)); err != nil {
					return err
				}
				err := tx.Where(&models.Cart{UserID: userId}).Preload("Items").First(&cart).Error
				if err != nil {
					if !errors.Is(err, gorm.ErrRecordNotFound) {
						return err
					}
					cart = models.Cart{UserID: userId, Items: []models.CartItem{*item}}
					return tx.Create(&cart).Error
				}
				for i := range cart.Items {
					if cart.Items[i].SameProductAndDate(item) {
						return tx.
							Model(&models.CartItem{}).
							Where(&models.CartItem{ID: cart.Items[i].ID}).
							Update("quantity", gorm.Expr("quantity + ?", item.Quantity)).
							Error
					}
				}
				item.CartID = cart.ID
				return tx.Create(item).Error
			})
			if err != nil {
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/items", func(ctx *gin.Context) {
			var body types.RemoveCartItemRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var cart models.Cart
				if err := tx.Where(&models.Cart{UserID: userId}).First(&cart).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return types.ErrNotFound
					}
					return err
				}
				var item models.CartItem
				if err := tx.Where(&models.CartItem{ID: body.ItemID, CartID: cart.ID}).First(&item).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return types.ErrNotFound
					}
					return err
				}
				// One unit at a time; the line disappears when it hits zero.
				if item.Quantity <= 1 {
					return tx.Delete(&item).Error
				}
				return tx.
					Model(&models.CartItem{}).
					Where(&models.CartItem{ID: item.ID}).
					Update("quantity", gorm.Expr("quantity - ?", 1)).
					Error
			})
			if err != nil {
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				var cart models.Cart
				if err := tx.Where(&models.Cart{UserID: userId}).First(&cart).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return types.ErrNotFound
					}
					return err
				}
				if err := tx.Where(&models.CartItem{CartID: cart.ID}).Delete(&models.CartItem{}).Error; err != nil {
					return err
				}
				return tx.Delete(&cart).Error
			})
			if err != nil {
				ctx.JSON(errorStatus(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return apiv1
}
