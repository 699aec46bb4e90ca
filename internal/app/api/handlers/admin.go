package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dailybrew/replenish/internal/app/service/materializer"
	"github.com/dailybrew/replenish/internal/app/service/reminder"
	"github.com/dailybrew/replenish/internal/app/service/statistics"
	"github.com/dailybrew/replenish/internal/models"
	"github.com/dailybrew/replenish/pkg/response"
	"github.com/dailybrew/replenish/pkg/types"
)

// @Summary      Run reminder dispatcher (Admin)
// @Description  Triggers a reminder run on demand and reports how many reminders were dispatched.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespReminderRun
// @Router       /api/v1/admin/run_reminders [post]
func ApiRunReminders(svc *reminder.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Run(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Run order materializer (Admin)
// @Description  Converts due subscription cycles into orders; failed cycles are deferred, not dropped.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespMaterializerRun
// @Router       /api/v1/admin/run_materializer [post]
func ApiRunMaterializer(svc *materializer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Run(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Lifecycle statistics (Admin)
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespLifecycleStatistic
// @Router       /api/v1/admin/lifecycle_statistic [get]
func ApiGetLifecycleStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.GetLifecycleStatistic(c.Request.Context(), &statistics.LifecycleStatisticRequest{})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type ListOrdersRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ListOrdersResponse struct {
	Items []*models.Order `json:"items"`
	Total int64           `json:"total"`
}

// filtersWhere wraps a list of filters to a single clause.Expression
type filtersWhere struct{ filters []*types.CommonFilter }

func (w filtersWhere) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, f := range w.filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		f.Build(builder)
	}
}

// @Summary      List materialized orders (Admin)
// @Description  Paginated, filterable listing of orders the engine produced.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.ListOrdersRequest true "List orders request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListOrders
// @Router       /api/v1/admin/list_orders [post]
func ApiListOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListOrdersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.Size <= 0 || req.Size > 200 {
			req.Size = 50
		}
		sortBy := req.SortBy
		if sortBy == "" {
			sortBy = "created_at"
		}
		order := clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}

		q := db.WithContext(c.Request.Context()).Model(&models.Order{}).
			Where(clause.Where{Exprs: []clause.Expression{filtersWhere{filters: req.Filters}}})

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		var items []*models.Order
		if err := q.Order(order).Offset(req.From).Limit(req.Size).Find(&items).Error; err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&ListOrdersResponse{Items: items, Total: total}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, rem *reminder.Service, mat *materializer.Service, stats *statistics.Service, db *gorm.DB) {
	r.POST("/run_reminders", ApiRunReminders(rem))
	r.POST("/run_materializer", ApiRunMaterializer(mat))
	r.GET("/lifecycle_statistic", ApiGetLifecycleStatistic(stats))
	r.POST("/list_orders", ApiListOrders(db))
}
