package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backoffice/internal/apperrors"
	"backoffice/internal/middleware"
	"backoffice/internal/model"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) CreateOrder(ctx context.Context, caller model.Caller, req service.CreateOrderRequest) (service.OrderResponse, error) {
	args := m.Called(ctx, caller, req)
	return args.Get(0).(service.OrderResponse), args.Error(1)
}

func (m *mockOrderService) GetOrder(ctx context.Context, caller model.Caller, id string) (service.OrderResponse, error) {
	args := m.Called(ctx, caller, id)
	return args.Get(0).(service.OrderResponse), args.Error(1)
}

func (m *mockOrderService) ChangeStatus(ctx context.Context, caller model.Caller, id string, req service.ChangeOrderStatusRequest) (service.OrderChangeResponse, error) {
	args := m.Called(ctx, caller, id, req)
	return args.Get(0).(service.OrderChangeResponse), args.Error(1)
}

func (m *mockOrderService) SetOrderRate(ctx context.Context, caller model.Caller, id string, req service.SetOrderRateRequest) (service.OrderChangeResponse, error) {
	args := m.Called(ctx, caller, id, req)
	return args.Get(0).(service.OrderChangeResponse), args.Error(1)
}

func (m *mockOrderService) AddAdjustment(ctx context.Context, caller model.Caller, id string, req service.AdjustmentRequest) (service.OrderChangeResponse, error) {
	args := m.Called(ctx, caller, id, req)
	return args.Get(0).(service.OrderChangeResponse), args.Error(1)
}

func (m *mockOrderService) RemoveAdjustment(ctx context.Context, caller model.Caller, id, adjustmentID string) (service.OrderChangeResponse, error) {
	args := m.Called(ctx, caller, id, adjustmentID)
	return args.Get(0).(service.OrderChangeResponse), args.Error(1)
}

var testCaller = model.Caller{UserID: uuid.MustParse("44444444-4444-4444-4444-444444444444"), Role: model.RoleAccountant}

func newOrderRouter(svc service.OrderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		middleware.SetCaller(c, testCaller)
		c.Next()
	})
	NewOrderHandler(svc).RegisterRoutes(api)
	return r
}

func perform(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	return w, res
}

func TestOrderHandler_ChangeStatus(t *testing.T) {
	svc := new(mockOrderService)
	want := service.OrderChangeResponse{
		Order:   service.OrderResponse{ID: "o-1", FulfillmentStatus: "received_subbranch", TotalPrice: "53.00"},
		Posting: service.PostingResponse{Kind: "charge", Amount: "53.00"},
	}
	svc.On("ChangeStatus", mock.Anything, testCaller, "o-1", service.ChangeOrderStatusRequest{Status: "received_subbranch"}).
		Return(want, nil).Once()

	w, res := perform(newOrderRouter(svc), http.MethodPut, "/api/orders/o-1/status", `{"status":"received_subbranch"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, res.OK)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, "charge", data["posting"].(map[string]interface{})["kind"])
	svc.AssertExpectations(t)
}

func TestOrderHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperrors.Validation("qty must be greater than 0"), http.StatusUnprocessableEntity, "validation error: qty must be greater than 0"},
		{"forbidden", apperrors.Forbidden("nope"), http.StatusForbidden, "forbidden: nope"},
		{"not found", apperrors.NotFound("order missing"), http.StatusNotFound, "resource not found: order missing"},
		{"conflict", apperrors.Conflict("invoiced"), http.StatusConflict, "conflict: invoiced"},
		{"invalid state", apperrors.InvalidState("closed"), http.StatusConflict, "invalid state: closed"},
		{"invariant", apperrors.Invariant("ledger net -53.00, expected -60.00"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockOrderService)
			svc.On("GetOrder", mock.Anything, testCaller, "o-1").Return(service.OrderResponse{}, tc.err)

			w, res := perform(newOrderRouter(svc), http.MethodGet, "/api/orders/o-1", "")

			assert.Equal(t, tc.status, w.Code)
			assert.False(t, res.OK)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, tc.message, res.Error)
		})
	}
}

func TestOrderHandler_InvalidPayload(t *testing.T) {
	svc := new(mockOrderService)

	w, res := perform(newOrderRouter(svc), http.MethodPost, "/api/orders", `{"shipment_id":"s-1"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "Invalid request payload")
	svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderHandler_RemoveAdjustment(t *testing.T) {
	svc := new(mockOrderService)
	svc.On("RemoveAdjustment", mock.Anything, testCaller, "o-1", "a-9").
		Return(service.OrderChangeResponse{Posting: service.PostingResponse{Kind: "adjustment", Amount: "5.00"}}, nil).Once()

	w, res := perform(newOrderRouter(svc), http.MethodDelete, "/api/orders/o-1/adjustments/a-9", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, res.OK)
	svc.AssertExpectations(t)
}
