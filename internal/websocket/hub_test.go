package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backoffice/internal/middleware"
	"backoffice/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishQueuesEncodedMessage(t *testing.T) {
	hub := NewHub(nil)

	hub.Publish(EventOrderStatus, map[string]string{"order_id": "o-1", "status": "picked_up"})

	var msg struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	raw := <-hub.Broadcast
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, EventOrderStatus, msg.Event)
	assert.Equal(t, "picked_up", msg.Data["status"])
}

func TestHub_PublishDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < cap(hub.Broadcast); i++ {
		hub.Publish(EventOrderCreated, i)
	}

	assert.NotPanics(t, func() { hub.Publish(EventOrderCreated, "overflow") })
	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
}

func TestServeWs_RejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws", nil)

	ServeWs(hub, c, []byte("secret"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServeWs_RejectsInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws?token=not-a-jwt", nil)

	ServeWs(hub, c, []byte("secret"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServeWs_RejectsUnknownRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	secret := []byte("secret")
	token, err := middleware.IssueToken(secret, model.Caller{UserID: uuid.New(), Role: "courier"}, time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws", nil)
	c.Request.Header.Set("Authorization", "Bearer "+token)

	ServeWs(hub, c, secret)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
