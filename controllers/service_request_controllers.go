package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrmesa/mesa-orders/middlewares"
	"github.com/qrmesa/mesa-orders/models"
	"github.com/qrmesa/mesa-orders/services"
	"github.com/qrmesa/mesa-orders/utils"
)

const (
	ServiceCallWaiter  = "call_waiter"
	ServiceRequestBill = "request_bill"
	ServiceRateService = "rate_service"
)

type ServiceRequestController struct {
	DB       *gorm.DB
	Secret   []byte
	Resolver *services.TableResolver
}

func NewServiceRequestController(db *gorm.DB, secret []byte) *ServiceRequestController {
	return &ServiceRequestController{
		DB:       db,
		Secret:   secret,
		Resolver: services.NewTableResolver(db),
	}
}

type serviceRequestBody struct {
	Type        string          `json:"type"`
	TableNumber utils.TableID   `json:"tableNumber"`
	Language    string          `json:"language"`
	Rating      *float64        `json:"rating,omitempty"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// userMsg returns the diner-facing soft-failure text. Spanish is the
// house language; English is the only other one the menu ships in.
func userMsg(lang, code, table string) string {
	messages := map[string]map[string]string{
		"es": {
			"TABLE_NOT_FOUND": fmt.Sprintf("No encontramos la mesa %q. Verifica el número o avisa al personal.", table),
			"TABLE_INACTIVE":  fmt.Sprintf("La mesa %q no está activa en este momento. Por favor, avisa al personal.", table),
		},
		"en": {
			"TABLE_NOT_FOUND": fmt.Sprintf("We couldn't find table %q. Please verify the number or ask a staff member.", table),
			"TABLE_INACTIVE":  fmt.Sprintf("Table %q is not active right now. Please ask a staff member.", table),
		},
	}

	if byLang, ok := messages[lang]; ok {
		if msg, ok := byLang[code]; ok {
			return msg
		}
	}
	return messages["es"][code]
}

// Submit handles waiter calls, bill requests and service ratings.
// Unresolvable tables are masked as soft successes: these are
// best-effort staff notifications, and a diner cannot act on a
// "table not found" error anyway. Real persistence failures stay 500s.
func (sc *ServiceRequestController) Submit(c *gin.Context) {
	var body serviceRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if body.Type == "" || body.TableNumber.String() == "" || body.Language == "" || len(body.Timestamp) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if _, err := parseTimestamp(body.Timestamp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timestamp"})
		return
	}

	// Token is optional here: service requests are accepted without
	// one in every environment, unlike order creation.
	token := middlewares.ExtractToken(c)
	if token != "" {
		claims, err := utils.VerifyTableToken(token, sc.Secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired table token", "details": err.Error()})
			return
		}

		_, requestDigits := services.NormalizeTableLabel(body.TableNumber.String())
		_, tokenDigits := services.NormalizeTableLabel(claims.TableID.String())
		if tokenDigits != requestDigits {
			c.JSON(http.StatusForbidden, gin.H{"error": "Table number mismatch"})
			return
		}
	} else {
		utils.ErrorLogger.Warnf("Service request without token (table %s, type %s)", body.TableNumber, body.Type)
	}

	switch body.Type {
	case ServiceCallWaiter, ServiceRequestBill:
		sc.handleWaiterCall(c, body)
	case ServiceRateService:
		sc.handleRating(c, body)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service request type"})
	}
}

// lookupTable resolves the submitted label and applies the masking
// policy. It writes the response itself when the table cannot serve
// the request; callers proceed only on a non-nil table.
func (sc *ServiceRequestController) lookupTable(c *gin.Context, body serviceRequestBody) *models.Table {
	std, _ := services.NormalizeTableLabel(body.TableNumber.String())

	table, err := sc.Resolver.ResolveByLabel(body.TableNumber.String())
	if err != nil {
		if !errors.Is(err, services.ErrTableNotFound) {
			utils.ErrorLogger.Errorf("Table lookup failed for %q: %v", std, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up table"})
			return nil
		}
		utils.ErrorLogger.Warnf("Table not found: %q, masking as success", std)
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     userMsg(body.Language, "TABLE_NOT_FOUND", std),
			"type":        body.Type,
			"tableNumber": std,
		})
		return nil
	}

	if !table.IsActive {
		utils.ErrorLogger.Warnf("Table inactive: %q, masking as success", table.TableNumber)
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     userMsg(body.Language, "TABLE_INACTIVE", table.TableNumber),
			"type":        body.Type,
			"tableNumber": table.TableNumber,
		})
		return nil
	}

	return table
}

func (sc *ServiceRequestController) handleWaiterCall(c *gin.Context, body serviceRequestBody) {
	table := sc.lookupTable(c, body)
	if table == nil {
		return
	}

	tipo := models.WaiterCallGeneral
	message := "Waiter has been notified"
	if body.Type == ServiceRequestBill {
		tipo = models.WaiterCallBill
		message = "Bill request sent to staff"
	}

	call := models.WaiterCall{
		TableID: table.ID,
		Tipo:    tipo,
		Status:  models.WaiterCallPending,
	}
	if err := sc.DB.Create(&call).Error; err != nil {
		utils.ErrorLogger.Errorf("Error inserting waiter call: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log waiter call"})
		return
	}

	utils.InfoLogger.Printf("%s logged for %s (table id %d)", tipo, table.TableNumber, table.ID)

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     message,
		"type":        body.Type,
		"tableNumber": table.TableNumber,
	})
}

func (sc *ServiceRequestController) handleRating(c *gin.Context, body serviceRequestBody) {
	if body.Rating == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
		return
	}
	val := *body.Rating
	if val != math.Trunc(val) || val < 1 || val > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
		return
	}

	table := sc.lookupTable(c, body)
	if table == nil {
		return
	}

	rating := models.SimpleRating{
		TableID: table.ID,
		Rating:  int(val),
	}
	if err := sc.DB.Create(&rating).Error; err != nil {
		utils.ErrorLogger.Errorf("Error inserting rating: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rating"})
		return
	}

	utils.InfoLogger.Printf("Rating %d/5 saved for %s (table id %d)", rating.Rating, table.TableNumber, table.ID)

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "¡Gracias por tu valoración!",
		"type":        ServiceRateService,
		"tableNumber": table.TableNumber,
		"rating":      rating.Rating,
	})
}

// parseTimestamp accepts both the epoch-millisecond form newer
// clients send and the RFC 3339 string older builds send.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var millis float64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(int64(millis)), nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}
