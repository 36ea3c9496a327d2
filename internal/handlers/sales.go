package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"zenda-system/internal/database/models"
	"zenda-system/internal/sales"
)

type SalesHandler struct {
	db        *gorm.DB
	committer *sales.Committer
}

func NewSalesHandler(db *gorm.DB, committer *sales.Committer) *SalesHandler {
	return &SalesHandler{db: db, committer: committer}
}

type ListSalesQuery struct {
	Page       int     `form:"page,default=1"`
	PageSize   int     `form:"page_size,default=20"`
	CashierID  *int64  `form:"cashier_id,omitempty"`
	CustomerID *int64  `form:"customer_id,omitempty"`
	Status     *string `form:"status,omitempty"`
	StartDate  string  `form:"start_date,omitempty"`
	EndDate    string  `form:"end_date,omitempty"`
}

func (h *SalesHandler) ListSales(c *gin.Context) {
	var query ListSalesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	q := h.db.Model(&models.Sale{}).Preload("Items")

	if query.CashierID != nil {
		q = q.Where("cashier_id = ?", *query.CashierID)
	}
	if query.CustomerID != nil {
		q = q.Where("customer_id = ?", *query.CustomerID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.StartDate != "" {
		if start, err := time.Parse("2006-01-02", query.StartDate); err == nil {
			q = q.Where("created_at >= ?", start)
		}
	}
	if query.EndDate != "" {
		if end, err := time.Parse("2006-01-02", query.EndDate); err == nil {
			q = q.Where("created_at < ?", end.AddDate(0, 0, 1))
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	var results []models.Sale
	if err := q.Order("created_at desc").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&results).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Sales retrieved successfully", results, PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}))
}

func (h *SalesHandler) GetSale(c *gin.Context) {
	saleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid sale ID"))
		return
	}

	var sale models.Sale
	if err := h.db.Preload("Items.Product").Preload("Customer").
		First(&sale, saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Sale not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Sale retrieved successfully", sale))
}

func (h *SalesHandler) RefundSale(c *gin.Context) {
	saleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid sale ID"))
		return
	}

	sale, err := h.committer.Refund(c.Request.Context(), saleID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, errorResponse("Sale not found"))
		case errors.Is(err, sales.ErrSaleNotRefundable):
			c.JSON(http.StatusConflict, errorResponse("Sale is not refundable"))
		default:
			c.JSON(http.StatusInternalServerError, errorResponse("Failed to refund sale: "+err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, successResponse("Sale refunded successfully", sale))
}
