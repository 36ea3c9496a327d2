package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"zenda-system/internal/checkout"
	"zenda-system/internal/database/models"
	"zenda-system/internal/sales"
	"zenda-system/internal/voice"
)

const sessionMaxIdle = 12 * time.Hour

type CheckoutHandler struct {
	db        *gorm.DB
	manager   *checkout.Manager
	committer *sales.Committer
}

func NewCheckoutHandler(db *gorm.DB, manager *checkout.Manager, committer *sales.Committer) *CheckoutHandler {
	return &CheckoutHandler{
		db:        db,
		manager:   manager,
		committer: committer,
	}
}

// Request structs
type CreateSessionRequest struct {
	CashierID  int64  `json:"cashier_id" binding:"required"`
	CustomerID *int64 `json:"customer_id,omitempty"`
}

type AddItemRequest struct {
	ProductID int64  `json:"product_id,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
	Quantity  int32  `json:"quantity,omitempty"`
}

type UpdateItemRequest struct {
	Quantity        *int32           `json:"quantity,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
}

type SetDiscountRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

type AddTenderRequest struct {
	Method string          `json:"method" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type CompleteRequest struct {
	// Method and Amount synthesize an implicit tender when none were added
	// explicitly; Amount empty means "exactly the remaining balance".
	Method string           `json:"method,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Notes  *string          `json:"notes,omitempty"`
}

type VoiceCommandRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

// sessionView is the wire shape of a session plus its derived figures.
type sessionView struct {
	*checkout.Session
	Totals    checkout.Totals `json:"totals"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Change    decimal.Decimal `json:"change"`
}

func viewOf(s *checkout.Session) sessionView {
	return sessionView{
		Session:   s,
		Totals:    s.Totals(),
		TotalPaid: s.TotalPaid(),
		Remaining: s.Remaining(),
		Change:    s.Change(),
	}
}

// --- Session lifecycle ---

func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if req.CustomerID != nil {
		var customer models.Customer
		if err := h.db.Where("id = ? AND is_active = ?", *req.CustomerID, true).
			First(&customer).Error; err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Customer not found or inactive"))
			return
		}
	}

	h.manager.Sweep(sessionMaxIdle)

	session := h.manager.Create(req.CashierID, req.CustomerID)
	c.JSON(http.StatusCreated, successResponse("Checkout session created successfully", viewOf(session)))
}

func (h *CheckoutHandler) GetSession(c *gin.Context) {
	session, err := h.manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Checkout session not found"))
		return
	}
	c.JSON(http.StatusOK, successResponse("Checkout session retrieved successfully", viewOf(session)))
}

func (h *CheckoutHandler) AbandonSession(c *gin.Context) {
	if err := h.manager.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Checkout session not found"))
		return
	}
	c.JSON(http.StatusOK, successResponse("Checkout session abandoned", nil))
}

// --- Cart operations ---

func (h *CheckoutHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	if req.ProductID == 0 && req.Barcode == "" {
		c.JSON(http.StatusBadRequest, errorResponse("product_id or barcode required"))
		return
	}

	var product models.Product
	q := h.db.Where("is_active = ?", true)
	if req.ProductID != 0 {
		q = q.Where("id = ?", req.ProductID)
	} else {
		q = q.Where("barcode = ?", req.Barcode)
	}
	if err := q.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product not found or inactive"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	session, err := h.manager.Update(c.Param("id"), func(s *checkout.Session) error {
		s.AddItem(product.ID, product.SKU, product.Name, product.Price, req.Quantity)
		return nil
	})
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Checkout session not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Item added to cart successfully", viewOf(session)))
}

func (h *CheckoutHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	lineID := c.Param("item_id")
	session, err := h.manager.Update(c.Param("id"), func(s *checkout.Session) error {
		if req.Quantity != nil {
			if _, err := s.UpdateQuantity(lineID, *req.Quantity); err != nil {
				return err
			}
		}
		if req.DiscountPercent != nil {
			if _, err := s.SetItemDiscount(lineID, *req.DiscountPercent); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		status, msg := checkoutErrorStatus(err)
		c.JSON(status, errorResponse(msg))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart item updated successfully", viewOf(session)))
}

func (h *CheckoutHandler) RemoveItem(c *gin.Context) {
	lineID := c.Param("item_id")
	session, err := h.manager.Update(c.Param("id"), func(s *checkout.Session) error {
		return s.RemoveItem(lineID)
	})
	if err != nil {
		status, msg := checkoutErrorStatus(err)
		c.JSON(status, errorResponse(msg))
		return
	}

	c.JSON(http.StatusOK, successResponse("Item removed from cart successfully", viewOf(session)))
}

func (h *CheckoutHandler) SetGlobalDiscount(c *gin.Context) {
	var req SetDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	session, err := h.manager.Update(c.Param("id"), func(s *checkout.Session) error {
		s.SetGlobalDiscount(req.Percent)
		return nil
	})
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Checkout session not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Global discount updated successfully", viewOf(session)))
}

func (h *CheckoutHandler) ClearCart(c *gin.Context) {
	session, err := h.manager.Update(c.Param("id"), func(s *checkout.Session) error {
		s.Clear()
		return nil
	})
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Checkout session not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart cleared successfully", viewOf(session)))
}

// --- Tenders ---

func (h *CheckoutHandler) AddTender(c *gin.Context) {
	var req AddTenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	method, err := checkout.ParsePaymentMethod(req.Method)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Unknown payment method: "+req.Method))
		return
	}

	session, err := h.manager.Update(c.Param("id"), func(s *checkout.Session) error {
		_, err := s.AddTender(method, req.Amount)
		return err
	})
	if err != nil {
		status, msg := checkoutErrorStatus(err)
		c.JSON(status, errorResponse(msg))
		return
	}

	c.JSON(http.StatusOK, successResponse("Tender added successfully", viewOf(session)))
}

func (h *CheckoutHandler) RemoveTender(c *gin.Context) {
	tenderID := c.Param("tender_id")
	session, err := h.manager.Update(c.Param("id"), func(s *checkout.Session) error {
		return s.RemoveTender(tenderID)
	})
	if err != nil {
		status, msg := checkoutErrorStatus(err)
		c.JSON(status, errorResponse(msg))
		return
	}

	c.JSON(http.StatusOK, successResponse("Tender removed successfully", viewOf(session)))
}

// --- Completion ---

// Complete commits the session as a sale. With no explicit tenders, a single
// implicit one is synthesized from the request (amount defaults to the
// remaining balance). Synthesis and commit both run inside manager.Update so
// no concurrent request can mutate the cart between them; the session
// survives a failed commit untouched so the cashier can retry or cancel.
func (h *CheckoutHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	// An empty body is allowed: complete with the remaining balance in cash.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	method := checkout.PaymentCash
	if req.Method != "" {
		var err error
		method, err = checkout.ParsePaymentMethod(req.Method)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Unknown payment method: "+req.Method))
			return
		}
	}

	var sale *models.Sale
	var change decimal.Decimal
	_, err := h.manager.Update(c.Param("id"), func(s *checkout.Session) error {
		if len(s.Lines) == 0 {
			return sales.ErrCartEmpty
		}

		var implicit *checkout.Tender
		if len(s.Tenders) == 0 {
			amount := s.Remaining()
			if req.Amount != nil {
				amount = *req.Amount
			}
			// A fully discounted cart has nothing left to tender.
			if amount.IsPositive() {
				var err error
				implicit, err = s.AddTender(method, amount)
				if err != nil {
					return err
				}
			} else if req.Amount != nil {
				return checkout.ErrInvalidAmount
			}
		}

		committed, err := h.committer.Commit(c.Request.Context(), s, req.Notes)
		if err != nil {
			// Roll the synthesized tender back so a retry starts clean.
			if implicit != nil {
				_ = s.RemoveTender(implicit.ID)
			}
			return err
		}
		sale = committed
		change = s.Change()
		return nil
	})
	if err != nil {
		status, msg := completeErrorStatus(err)
		c.JSON(status, errorResponse(msg))
		return
	}

	_ = h.manager.Delete(c.Param("id"))

	c.JSON(http.StatusCreated, successResponse("Sale completed successfully", gin.H{
		"sale":   sale,
		"change": change,
	}))
}

func completeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		return http.StatusNotFound, "Checkout session not found"
	case errors.Is(err, checkout.ErrInvalidAmount):
		return http.StatusBadRequest, "Tender amount must be greater than zero"
	}
	return commitErrorStatus(err)
}

// --- Voice commands ---

// VoiceCommand applies a transcribed utterance to the cart. Product queries
// are resolved by name; commands whose query matches nothing are reported
// back as skipped instead of failing the whole request.
func (h *CheckoutHandler) VoiceCommand(c *gin.Context) {
	var req VoiceCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	commands := voice.Parse(req.Transcript)
	if len(commands) == 0 {
		c.JSON(http.StatusUnprocessableEntity, errorResponse("No commands recognized in transcript"))
		return
	}

	var applied []voice.Command
	var skipped []voice.Command

	session, err := h.manager.Update(c.Param("id"), func(s *checkout.Session) error {
		for _, cmd := range commands {
			switch cmd.Action {
			case voice.ActionClear:
				s.Clear()
				applied = append(applied, cmd)
			case voice.ActionAdd:
				product, ok := h.findProductByName(cmd.Query)
				if !ok {
					skipped = append(skipped, cmd)
					continue
				}
				s.AddItem(product.ID, product.SKU, product.Name, product.Price, cmd.Quantity)
				applied = append(applied, cmd)
			case voice.ActionRemove:
				product, ok := h.findProductByName(cmd.Query)
				if !ok {
					skipped = append(skipped, cmd)
					continue
				}
				removed := false
				for _, line := range s.Lines {
					if line.ProductID == product.ID {
						_ = s.RemoveItem(line.ID)
						removed = true
						break
					}
				}
				if removed {
					applied = append(applied, cmd)
				} else {
					skipped = append(skipped, cmd)
				}
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Checkout session not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Voice commands applied", gin.H{
		"session": viewOf(session),
		"applied": applied,
		"skipped": skipped,
	}))
}

func (h *CheckoutHandler) findProductByName(query string) (*models.Product, bool) {
	var product models.Product
	pattern := "%" + strings.TrimSpace(query) + "%"
	err := h.db.Where("is_active = ? AND name LIKE ?", true, pattern).
		Order("name asc").
		First(&product).Error
	if err != nil {
		return nil, false
	}
	return &product, true
}

func checkoutErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		return http.StatusNotFound, "Checkout session not found"
	case errors.Is(err, checkout.ErrLineNotFound):
		return http.StatusNotFound, "Cart line not found"
	case errors.Is(err, checkout.ErrTenderNotFound):
		return http.StatusNotFound, "Tender not found"
	case errors.Is(err, checkout.ErrInvalidAmount):
		return http.StatusBadRequest, "Tender amount must be greater than zero"
	}
	return http.StatusInternalServerError, "Checkout error: " + err.Error()
}

func commitErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, sales.ErrCartEmpty):
		return http.StatusBadRequest, "Cart has no items"
	case errors.Is(err, sales.ErrInsufficientPayment):
		return http.StatusBadRequest, "Tendered amount does not cover the total"
	case errors.Is(err, sales.ErrInsufficientStock):
		return http.StatusConflict, "Insufficient stock for one or more products"
	case errors.Is(err, sales.ErrCreditWithoutCustomer):
		return http.StatusBadRequest, "Credit tender requires a customer"
	case errors.Is(err, sales.ErrCreditLimitExceeded):
		return http.StatusConflict, "Customer credit limit exceeded"
	}
	return http.StatusInternalServerError, "Failed to complete sale: " + err.Error()
}
