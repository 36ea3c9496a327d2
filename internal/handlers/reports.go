package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"zenda-system/internal/database/models"
)

type ReportsHandler struct {
	db *gorm.DB
}

func NewReportsHandler(db *gorm.DB) *ReportsHandler {
	return &ReportsHandler{db: db}
}

type DailySalesReport struct {
	Date          string                     `json:"date"`
	SaleCount     int                        `json:"sale_count"`
	ItemsSold     int64                      `json:"items_sold"`
	GrossSales    decimal.Decimal            `json:"gross_sales"`
	TotalDiscount decimal.Decimal            `json:"total_discount"`
	TotalTax      decimal.Decimal            `json:"total_tax"`
	NetSales      decimal.Decimal            `json:"net_sales"`
	RefundedCount int                        `json:"refunded_count"`
	RefundedTotal decimal.Decimal            `json:"refunded_total"`
	ByMethod      map[string]decimal.Decimal `json:"by_payment_method"`
}

// DailySales aggregates one day of sales. Sums are carried as decimals from
// the stored 2-decimal columns; refunded sales are excluded from the totals
// and reported separately.
func (h *ReportsHandler) DailySales(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		dateStr = time.Now().Format("2006-01-02")
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid date, expected YYYY-MM-DD"))
		return
	}

	var daySales []models.Sale
	if err := h.db.Preload("Items").
		Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1)).
		Find(&daySales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Database error"))
		return
	}

	report := DailySalesReport{
		Date:          dateStr,
		GrossSales:    decimal.Zero,
		TotalDiscount: decimal.Zero,
		TotalTax:      decimal.Zero,
		NetSales:      decimal.Zero,
		RefundedTotal: decimal.Zero,
		ByMethod:      make(map[string]decimal.Decimal),
	}

	for _, sale := range daySales {
		if sale.Status == models.SaleStatusRefunded {
			report.RefundedCount++
			report.RefundedTotal = report.RefundedTotal.Add(sale.Total)
			continue
		}

		report.SaleCount++
		report.GrossSales = report.GrossSales.Add(sale.Subtotal)
		report.TotalDiscount = report.TotalDiscount.Add(sale.Discount)
		report.TotalTax = report.TotalTax.Add(sale.Tax)
		report.NetSales = report.NetSales.Add(sale.Total)

		for _, item := range sale.Items {
			report.ItemsSold += int64(item.Quantity)
		}

		current, ok := report.ByMethod[sale.PaymentMethod]
		if !ok {
			current = decimal.Zero
		}
		report.ByMethod[sale.PaymentMethod] = current.Add(sale.Total)
	}

	c.JSON(http.StatusOK, successResponse("Daily sales report generated successfully", report))
}
