package handlers

import (
	"github.com/dailybrew/replenish/internal/app/service/materializer"
	"github.com/dailybrew/replenish/internal/app/service/reminder"
	"github.com/dailybrew/replenish/internal/app/service/statistics"
	"github.com/dailybrew/replenish/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespConfirmationDetails wraps confirmationDetailsResp in the standard envelope.
type RespConfirmationDetails struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    confirmationDetailsResp  `json:"data"`
}

// RespReminderRun wraps a reminder run result in the standard envelope.
type RespReminderRun struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    reminder.Result          `json:"data"`
}

// RespMaterializerRun wraps a materializer run result in the standard envelope.
type RespMaterializerRun struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    materializer.Result      `json:"data"`
}

// RespLifecycleStatistic wraps LifecycleStatisticResponse in the standard envelope.
type RespLifecycleStatistic struct {
	Code    response.APIResponseCode              `json:"code"`
	Message string                                `json:"message"`
	Data    statistics.LifecycleStatisticResponse `json:"data"`
}

// RespListOrders wraps ListOrdersResponse in the standard envelope.
type RespListOrders struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ListOrdersResponse       `json:"data"`
}
