package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrmesa/mesa-orders/middlewares"
	"github.com/qrmesa/mesa-orders/models"
	"github.com/qrmesa/mesa-orders/services"
	"github.com/qrmesa/mesa-orders/utils"
)

type OrderController struct {
	DB       *gorm.DB
	Guard    *services.SessionGuard
	Resolver *services.TableResolver
	Numbers  *services.OrderNumberGenerator
}

func NewOrderController(db *gorm.DB, guard *services.SessionGuard) *OrderController {
	return &OrderController{
		DB:       db,
		Guard:    guard,
		Resolver: services.NewTableResolver(db),
		Numbers:  services.NewOrderNumberGenerator(db),
	}
}

// priceEntry is one [name, price] pair from the cart's "p" array. The
// first entry is the base dish; the rest are paid personalizations.
type priceEntry struct {
	Name  string
	Price float64
}

func (p *priceEntry) UnmarshalJSON(b []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) > 0 {
		if err := json.Unmarshal(arr[0], &p.Name); err != nil {
			return err
		}
	}
	if len(arr) > 1 {
		if err := json.Unmarshal(arr[1], &p.Price); err != nil {
			return err
		}
	}
	return nil
}

type cartItem struct {
	ID        utils.TableID `json:"id"`
	Quantity  int           `json:"q"`
	UnitPrice *float64      `json:"unitPrice,omitempty"`
	Prices    []priceEntry  `json:"p"`
	Variant   string        `json:"v,omitempty"`
	Note      string        `json:"note,omitempty"`
}

type orderMeta struct {
	Table              utils.TableID `json:"table"`
	Token              string        `json:"token,omitempty"`
	CustomerName       *string       `json:"customerName,omitempty"`
	Subtotal           *float64      `json:"subtotal,omitempty"`
	TipAmount          *float64      `json:"tipAmount,omitempty"`
	ConfirmationMethod string        `json:"confirmationMethod,omitempty"`
}

type orderPayload struct {
	Cart        []cartItem `json:"cart"`
	TotalClient float64    `json:"totalClient"`
	Tip         float64    `json:"tip"`
	Meta        *orderMeta `json:"meta"`
}

type createOrderRequest struct {
	Function   string         `json:"function"`
	Parameters []orderPayload `json:"parameters"`
}

// CreateOrder is the order admission pipeline: payload shape, session
// guard, table resolution, order number, then header + item inserts.
// Every gate is hard; an order must never silently proceed without a
// real table.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Invalid request body", "error": err.Error()})
		return
	}

	if req.Function != "createOrder" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Function not found"})
		return
	}

	if len(req.Parameters) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Order data is required"})
		return
	}
	orderData := req.Parameters[0]

	if orderData.Meta == nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Order meta is required"})
		return
	}
	if len(orderData.Cart) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "message": "Cart is empty"})
		return
	}

	token := middlewares.ExtractToken(c)
	if token == "" {
		token = orderData.Meta.Token
	}

	session, guardErr := oc.Guard.Authorize(token, orderData.Meta.Table.String())
	if guardErr != nil {
		message := "Invalid or expired table token"
		if guardErr.Status == http.StatusForbidden {
			message = "Table number mismatch"
		}
		c.JSON(guardErr.Status, gin.H{"ok": false, "message": message, "error": guardErr.Reason.Error()})
		return
	}

	table, err := oc.resolveTable(session)
	if err != nil {
		if errors.Is(err, services.ErrTableNotFound) {
			if session.DevMode {
				// Without a token there is no table to fall back on.
				c.JSON(http.StatusBadRequest, gin.H{
					"ok":      false,
					"message": "Mesa requerida",
					"error":   "No se puede crear un pedido sin una mesa válida. Por favor, consulte con el personal del restaurante.",
				})
				return
			}
			c.JSON(http.StatusNotFound, gin.H{
				"ok":      false,
				"message": "Mesa no encontrada",
				"error":   "La mesa especificada no existe en el sistema. Por favor, consulte con el personal del restaurante.",
			})
			return
		}
		utils.ErrorLogger.Errorf("Table lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Failed to look up table", "error": err.Error()})
		return
	}

	orderNumber := oc.Numbers.Generate(session.OrderType)

	// The client-submitted total is trusted as-is; totals are not
	// recomputed from line items.
	serverTotal := orderData.TotalClient

	subtotal := serverTotal
	if orderData.Meta.Subtotal != nil {
		subtotal = *orderData.Meta.Subtotal
	}
	tipAmount := 0.0
	if orderData.Meta.TipAmount != nil {
		tipAmount = *orderData.Meta.TipAmount
	}
	confirmation := orderData.Meta.ConfirmationMethod
	if confirmation == "" {
		confirmation = "mesa"
	}

	order := models.Order{
		OrderNumber:        orderNumber,
		TableID:            table.ID,
		CustomerName:       orderData.Meta.CustomerName,
		Subtotal:           subtotal,
		TipPercentage:      orderData.Tip,
		TipAmount:          tipAmount,
		Total:              serverTotal,
		ConfirmationMethod: confirmation,
		Status:             "pending",
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	if err := oc.DB.Create(&order).Error; err != nil {
		utils.ErrorLogger.Errorf("Error inserting order %s: %v", orderNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "Failed to save order to database", "error": err.Error()})
		return
	}

	for _, item := range orderData.Cart {
		orderItem := buildOrderItem(order.ID, item)
		if err := oc.DB.Create(&orderItem).Error; err != nil {
			// The header is already committed; surface the id so the
			// client can retry with a fresh order.
			utils.ErrorLogger.Errorf("Error inserting order item for order %d: %v", order.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":        false,
				"message":   "Failed to save order items",
				"error":     err.Error(),
				"dbOrderId": order.ID,
			})
			return
		}
	}

	utils.InfoLogger.Printf("Order %s saved (db id %d, table %d, type %s, total %.2f)",
		orderNumber, order.ID, table.ID, session.OrderType, serverTotal)

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"orderId":     orderNumber,
		"dbOrderId":   order.ID,
		"serverTotal": serverTotal,
	})
}

// resolveTable maps the guard's table identifier to a canonical
// record. The token path tries every known label format; the dev-mode
// path only accepts the standard form.
func (oc *OrderController) resolveTable(session *services.GuardResult) (*models.Table, error) {
	if !session.DevMode {
		return oc.Resolver.ResolveByTableID(session.TableID)
	}

	if session.TableID == "" {
		return nil, services.ErrTableNotFound
	}
	std, _ := services.NormalizeTableLabel(session.TableID)
	var table models.Table
	err := oc.DB.Where("table_number = ? AND is_active = ?", std, true).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, services.ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func buildOrderItem(orderID uint, item cartItem) models.OrderItem {
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	var unitPrice float64
	if item.UnitPrice != nil {
		unitPrice = *item.UnitPrice
	} else {
		// Base price plus every personalization in "p".
		for _, entry := range item.Prices {
			unitPrice += entry.Price
		}
	}

	dishName := "Unknown"
	if len(item.Prices) > 0 && item.Prices[0].Name != "" {
		dishName = item.Prices[0].Name
	}

	menuItemID, _ := strconv.Atoi(item.ID.String())

	orderItem := models.OrderItem{
		OrderID:    orderID,
		MenuItemID: uint(menuItemID),
		DishName:   dishName,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		Subtotal:   unitPrice * float64(quantity),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if item.Note != "" {
		orderItem.Notes = &item.Note
	}
	if item.Variant != "" {
		orderItem.Variant = &item.Variant
	}
	if custom := serializeCustomizations(item); custom != "" {
		orderItem.Customizations = &custom
	}
	return orderItem
}

// serializeCustomizations snapshots the variant and the paid add-ons
// (everything in "p" past the base dish) as a JSON string.
func serializeCustomizations(item cartItem) string {
	customizations := map[string]interface{}{}
	if item.Variant != "" {
		customizations["variant"] = item.Variant
	}
	if len(item.Prices) > 1 {
		personalizations := make([]map[string]interface{}, 0, len(item.Prices)-1)
		for _, entry := range item.Prices[1:] {
			personalizations = append(personalizations, map[string]interface{}{
				"name":  entry.Name,
				"price": entry.Price,
			})
		}
		customizations["personalizations"] = personalizations
	}
	if len(customizations) == 0 {
		return ""
	}
	encoded, err := json.Marshal(customizations)
	if err != nil {
		return ""
	}
	return string(encoded)
}
