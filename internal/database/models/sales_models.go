package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SaleStatusCompleted = "completed"
	SaleStatusRefunded  = "refunded"
)

// Sale is the immutable record of a completed checkout. Only the status
// may change afterwards, and only completed -> refunded.
type Sale struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleNumber string `gorm:"type:varchar(32);uniqueIndex;not null" json:"sale_number"`
	CashierID  int64  `gorm:"not null;index" json:"cashier_id"`
	CustomerID *int64 `gorm:"index" json:"customer_id,omitempty"`

	Subtotal decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Discount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount"`
	Tax      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax"`
	Total    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Paid     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"paid"`
	Change   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"change"`

	PaymentMethod string `gorm:"type:varchar(16);not null" json:"payment_method"`
	Status        string `gorm:"type:varchar(16);not null;index" json:"status"`
	Currency      string `gorm:"type:varchar(8);not null" json:"currency"`

	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items    []SaleItem `gorm:"foreignKey:SaleID" json:"items,omitempty"`
	Customer *Customer  `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

type SaleItem struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID          int64           `gorm:"not null;index" json:"sale_id"`
	ProductID       int64           `gorm:"not null" json:"product_id"`
	Quantity        int32           `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percent"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"line_total"`
	CreatedAt       time.Time       `json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// SaleTender records one payment contribution toward a sale.
type SaleTender struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID    int64           `gorm:"not null;index" json:"sale_id"`
	Method    string          `gorm:"type:varchar(16);not null" json:"method"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
