package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	subsvc "github.com/dailybrew/replenish/internal/app/service/subscription"
	"github.com/dailybrew/replenish/pkg/response"
	"github.com/dailybrew/replenish/pkg/types"
)

type createSubscriptionReq struct {
	ProductID         string             `json:"product_id" binding:"required"`
	Frequency         types.Frequency    `json:"frequency" binding:"required"`
	CustomValue       int                `json:"custom_value"`
	CustomUnit        types.IntervalUnit `json:"custom_unit"`
	Quantity          int                `json:"quantity" binding:"required"`
	FirstDeliveryDate *time.Time         `json:"first_delivery_date"`
}

// @Summary      Create subscription
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body handlers.createSubscriptionReq true "Subscription"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions [post]
func ApiCreateSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSubscriptionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		sub, err := svc.Create(c.Request.Context(), subsvc.CreateParams{
			CustomerID:        c.GetString("customer_id"),
			ProductID:         req.ProductID,
			Frequency:         req.Frequency,
			CustomValue:       req.CustomValue,
			CustomUnit:        req.CustomUnit,
			Quantity:          req.Quantity,
			FirstDeliveryDate: req.FirstDeliveryDate,
		})
		if err != nil {
			c.JSON(http.StatusOK, subscriptionErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      List own subscriptions
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions [get]
func ApiListSubscriptions(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		subs, err := svc.ListByCustomer(c.Request.Context(), c.GetString("customer_id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(subs))
	}
}

type pauseSubscriptionReq struct {
	PauseUntil time.Time `json:"pause_until" binding:"required"`
}

// @Summary      Pause subscription
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body handlers.pauseSubscriptionReq true "Pause window"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id}/pause [post]
func ApiPauseSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pauseSubscriptionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		sub, err := svc.Pause(c.Request.Context(), c.GetString("customer_id"), c.Param("id"), req.PauseUntil)
		if err != nil {
			c.JSON(http.StatusOK, subscriptionErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Resume subscription
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id}/resume [post]
func ApiResumeSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.Resume(c.Request.Context(), c.GetString("customer_id"), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, subscriptionErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      Cancel subscription
// @Description  Cancellation is terminal; no further cycle or decision touches the subscription.
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id}/cancel [post]
func ApiCancelSubscription(svc *subsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.Cancel(c.Request.Context(), c.GetString("customer_id"), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, subscriptionErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

func subscriptionErrorResponse(err error) *response.APIResponse[any] {
	switch {
	case errors.Is(err, subsvc.ErrNotFound), errors.Is(err, subsvc.ErrNotOwner):
		// not-owner deliberately reads as not-found to avoid leaking ids
		return response.ErrorT[any](response.APIResponseCodeNotFound, "subscription not found")
	case errors.Is(err, subsvc.ErrCancelled):
		return response.ErrorT[any](response.APIResponseCodeAlreadyProcessed, "subscription is cancelled")
	case errors.Is(err, subsvc.ErrInvalidInput), errors.Is(err, subsvc.ErrInvalidPauseDate):
		return response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error())
	}
	return response.ErrorT[any](response.APIResponseCodeError, err.Error())
}

func RegisterSubscriptionRoutes(r gin.IRouter, svc *subsvc.Service) {
	r.POST("/subscriptions", ApiCreateSubscription(svc))
	r.GET("/subscriptions", ApiListSubscriptions(svc))
	r.POST("/subscriptions/:id/pause", ApiPauseSubscription(svc))
	r.POST("/subscriptions/:id/resume", ApiResumeSubscription(svc))
	r.POST("/subscriptions/:id/cancel", ApiCancelSubscription(svc))
}
