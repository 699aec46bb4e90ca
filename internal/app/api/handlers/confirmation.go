package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dailybrew/replenish/internal/app/service/decision"
	tokensvc "github.com/dailybrew/replenish/internal/app/service/token"
	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/internal/platform/catalog"
	"github.com/dailybrew/replenish/pkg/response"
	"github.com/dailybrew/replenish/pkg/types"
)

type confirmationDetailsResp struct {
	ProductName        string `json:"product_name"`
	ProductImageURL    string `json:"product_image_url,omitempty"`
	ScheduledDate      string `json:"scheduled_date"`
	Frequency          string `json:"frequency"`
	Quantity           int    `json:"quantity"`
	TotalAmount        int64  `json:"total_amount"`
	Currency           string `json:"currency,omitempty"`
	IsExpired          bool   `json:"is_expired"`
	IsAlreadyProcessed bool   `json:"is_already_processed"`
}

// @Summary      Confirmation details
// @Description  Renders the delivery a confirmation token refers to. Token possession is the only credential.
// @Tags         Confirmation
// @Produce      json
// @Param        token path string true "Confirmation token"
// @Success      200  {object}  handlers.RespConfirmationDetails
// @Router       /api/v1/confirmation/{token} [get]
func ApiGetConfirmationDetails(tokens *tokensvc.Service, db *gorm.DB, cat catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := tokens.Get(c.Request.Context(), c.Param("token"))
		if err != nil {
			c.JSON(http.StatusOK, tokenErrorResponse(err))
			return
		}

		var sub models.Subscription
		if err := db.WithContext(c.Request.Context()).Where("id = ?", t.SubscriptionID).First(&sub).Error; err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "subscription not found"))
			return
		}

		out := confirmationDetailsResp{
			ProductName:        sub.ProductID,
			ScheduledDate:      t.CycleDate,
			Frequency:          sub.FrequencyLabel(),
			Quantity:           sub.Quantity,
			IsExpired:          t.Expired(time.Now()),
			IsAlreadyProcessed: t.Consumed(),
		}
		if snap, err := cat.GetOrderableSnapshot(c.Request.Context(), sub.ProductID); err == nil {
			unit := snap.UnitPrice * int64(100-sub.DiscountPercent) / 100
			out.ProductName = snap.Name
			out.ProductImageURL = snap.ImageURL
			out.TotalAmount = unit * int64(sub.Quantity)
			out.Currency = snap.Currency
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

type submitDecisionReq struct {
	Token      string               `json:"token" binding:"required"`
	Action     types.DecisionAction `json:"action" binding:"required"`
	PauseUntil *time.Time           `json:"pause_until"`
}

// @Summary      Submit decision
// @Description  Applies a continue/pause/cancel decision against a confirmation token. Consumption is exactly-once.
// @Tags         Confirmation
// @Accept       json
// @Produce      json
// @Param        request body handlers.submitDecisionReq true "Decision"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/confirmation/decision [post]
func ApiSubmitDecision(proc *decision.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitDecisionReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		err := proc.Process(c.Request.Context(), req.Token, req.Action, req.PauseUntil)
		if err != nil {
			c.JSON(http.StatusOK, decisionErrorResponse(err))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func tokenErrorResponse(err error) *response.APIResponse[any] {
	switch {
	case errors.Is(err, tokensvc.ErrTokenNotFound):
		return response.ErrorT[any](response.APIResponseCodeNotFound, "invalid link")
	case errors.Is(err, tokensvc.ErrTokenExpired):
		return response.ErrorT[any](response.APIResponseCodeExpired, "this link has expired")
	case errors.Is(err, tokensvc.ErrTokenAlreadyProcessed):
		return response.ErrorT[any](response.APIResponseCodeAlreadyProcessed, "your decision was already recorded")
	}
	return response.ErrorT[any](response.APIResponseCodeError, err.Error())
}

func decisionErrorResponse(err error) *response.APIResponse[any] {
	switch {
	case errors.Is(err, decision.ErrInvalidAction):
		return response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid action")
	case errors.Is(err, decision.ErrSubscriptionCancelled):
		return response.ErrorT[any](response.APIResponseCodeNotFound, "subscription no longer exists")
	}
	return tokenErrorResponse(err)
}

func RegisterConfirmationRoutes(r gin.IRouter, tokens *tokensvc.Service, db *gorm.DB, cat catalog.Catalog, proc *decision.Service) {
	r.GET("/confirmation/:token", ApiGetConfirmationDetails(tokens, db, cat))
	r.POST("/confirmation/decision", ApiSubmitDecision(proc))
}
