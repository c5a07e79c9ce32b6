package Controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/qrmesa/mesa-orders/controllers"
	"github.com/qrmesa/mesa-orders/models"
	"github.com/qrmesa/mesa-orders/services"
	"github.com/qrmesa/mesa-orders/utils"
)

var orderTestSecret = []byte("TestSecretKeyMESA2024")

func setupTestDBForOrders(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open("file:orders_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(&models.Table{}, &models.Order{}, &models.OrderItem{})
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	db.Exec("DELETE FROM order_items")
	db.Exec("DELETE FROM orders")
	db.Exec("DELETE FROM tables")

	// Seed the canonical table the QR tokens point at.
	db.Create(&models.Table{TableNumber: "Mesa: 5", IsActive: true})
	return db
}

func setupOrderRouter(db *gorm.DB, requireJWT bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	guard := services.NewSessionGuard(orderTestSecret, requireJWT)
	orderCtrl := controllers.NewOrderController(db, guard)
	router.POST("/orders", orderCtrl.CreateOrder)
	return router
}

func orderPayload(table string, total float64) map[string]interface{} {
	return map[string]interface{}{
		"cart": []map[string]interface{}{
			{
				"id": "3",
				"q":  2,
				"p":  [][]interface{}{{"Croquetas", 12.0}},
			},
		},
		"totalClient": total,
		"tip":         0,
		"meta": map[string]interface{}{
			"table": table,
		},
	}
}

func submitOrder(t *testing.T, router *gin.Engine, token string, payload map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body := map[string]interface{}{
		"function":   "createOrder",
		"parameters": []interface{}{payload},
	}
	payloadBytes, err := json.Marshal(body)
	assert.NoError(t, err)

	req, err := http.NewRequest("POST", "/orders", bytes.NewBuffer(payloadBytes))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func orderToken(t *testing.T, tableID, orderType string) string {
	t.Helper()
	token, err := utils.GenerateTableToken(tableID, orderType, time.Hour, orderTestSecret)
	assert.NoError(t, err)
	return token
}

func TestCreateOrderWithValidToken(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	w := submitOrder(t, router, orderToken(t, "5", "R"), orderPayload("5", 24.0))
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["ok"])
	assert.Regexp(t, `^R\d+/\d{2}\.\d{2}\.\d{2}/[0-9A-Z]{4}$`, response["orderId"])
	assert.Equal(t, 24.0, response["serverTotal"])

	var order models.Order
	assert.NoError(t, db.Preload("OrderItems").First(&order).Error)
	assert.Equal(t, response["orderId"], order.OrderNumber)
	assert.Equal(t, 24.0, order.Total)
	assert.Equal(t, "pending", order.Status)
	assert.Len(t, order.OrderItems, 1)

	item := order.OrderItems[0]
	assert.Equal(t, uint(3), item.MenuItemID)
	assert.Equal(t, "Croquetas", item.DishName)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 12.0, item.UnitPrice)
	assert.Equal(t, 24.0, item.Subtotal)
}

func TestCreateOrderTableNotFound(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	w := submitOrder(t, router, orderToken(t, "99", "R"), orderPayload("99", 24.0))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, false, response["ok"])
	assert.Equal(t, "Mesa no encontrada", response["message"])
}

func TestCreateOrderTableMismatch(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	// Valid token for table 5 replayed against table 6.
	w := submitOrder(t, router, orderToken(t, "5", "R"), orderPayload("6", 24.0))
	assert.Equal(t, http.StatusForbidden, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, false, response["ok"])
	assert.Equal(t, "Table number mismatch", response["message"])
}

func TestCreateOrderInvalidToken(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	w := submitOrder(t, router, "not.a.token", orderPayload("5", 24.0))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrderExpiredToken(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	expired, err := utils.GenerateTableToken("5", "R", -time.Hour, orderTestSecret)
	assert.NoError(t, err)

	w := submitOrder(t, router, expired, orderPayload("5", 24.0))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "token expired", response["error"])
}

func TestCreateOrderMissingTokenRejected(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	w := submitOrder(t, router, "", orderPayload("5", 24.0))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrderDevModeWithoutToken(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, false)

	w := submitOrder(t, router, "", orderPayload("5", 24.0))
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["ok"])
	// Dev-mode orders default to the Restaurant type.
	assert.Regexp(t, `^R`, response["orderId"])
}

func TestCreateOrderTokenInBodyMeta(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	payload := orderPayload("5", 24.0)
	payload["meta"].(map[string]interface{})["token"] = orderToken(t, "5", "R")

	w := submitOrder(t, router, "", payload)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	payload := orderPayload("5", 24.0)
	payload["cart"] = []interface{}{}

	w := submitOrder(t, router, orderToken(t, "5", "R"), payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderMissingMeta(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	payload := orderPayload("5", 24.0)
	delete(payload, "meta")

	w := submitOrder(t, router, orderToken(t, "5", "R"), payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderTrustsClientTotal(t *testing.T) {
	// The submitted total is persisted verbatim; line items are not
	// summed server-side.
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	w := submitOrder(t, router, orderToken(t, "5", "R"), orderPayload("5", 999.0))
	assert.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	assert.NoError(t, db.First(&order).Error)
	assert.Equal(t, 999.0, order.Total)
}

func TestTwoOrdersGetDistinctDatabaseIDs(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)
	token := orderToken(t, "5", "R")

	first := submitOrder(t, router, token, orderPayload("5", 24.0))
	second := submitOrder(t, router, token, orderPayload("5", 24.0))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)

	var firstResp, secondResp map[string]interface{}
	assert.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))
	assert.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))
	assert.NotEqual(t, firstResp["dbOrderId"], secondResp["dbOrderId"])
	assert.NotEqual(t, firstResp["orderId"], secondResp["orderId"])
}

func TestCreateOrderWithPersonalizations(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	payload := map[string]interface{}{
		"cart": []map[string]interface{}{
			{
				"id": "4",
				"q":  1,
				"p":  [][]interface{}{{"Paella", 18.0}, {"Extra alioli", 1.5}},
				"v":  "grande",
			},
		},
		"totalClient": 19.5,
		"tip":         0,
		"meta":        map[string]interface{}{"table": "5"},
	}

	w := submitOrder(t, router, orderToken(t, "5", "R"), payload)
	assert.Equal(t, http.StatusOK, w.Code)

	var item models.OrderItem
	assert.NoError(t, db.First(&item).Error)
	assert.Equal(t, "Paella", item.DishName)
	assert.Equal(t, 19.5, item.UnitPrice)
	assert.NotNil(t, item.Variant)
	assert.Equal(t, "grande", *item.Variant)
	assert.NotNil(t, item.Customizations)

	var custom map[string]interface{}
	assert.NoError(t, json.Unmarshal([]byte(*item.Customizations), &custom))
	assert.Equal(t, "grande", custom["variant"])
	personalizations := custom["personalizations"].([]interface{})
	assert.Len(t, personalizations, 1)
}

func TestCreateOrderUnknownFunction(t *testing.T) {
	db := setupTestDBForOrders(t)
	router := setupOrderRouter(db, true)

	body := map[string]interface{}{
		"function":   "deleteOrder",
		"parameters": []interface{}{orderPayload("5", 24.0)},
	}
	payloadBytes, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/orders", bytes.NewBuffer(payloadBytes))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
