package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

type Product struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU        string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"sku"`
	Barcode    *string         `gorm:"type:varchar(64);index" json:"barcode,omitempty"`
	Name       string          `gorm:"type:varchar(128);not null" json:"name"`
	Price      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Cost       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cost"`
	Stock      int32           `gorm:"not null;default:0" json:"stock"`
	MinStock   int32           `gorm:"not null;default:0" json:"min_stock"`
	CategoryID *int64          `json:"category_id,omitempty"`
	IsActive   bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

type Customer struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"type:varchar(128);not null" json:"name"`
	Email         *string         `gorm:"type:varchar(128);index" json:"email,omitempty"`
	Phone         *string         `gorm:"type:varchar(32)" json:"phone,omitempty"`
	CreditLimit   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"credit_limit"`
	CreditBalance decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"credit_balance"`
	LoyaltyPoints int64           `gorm:"not null;default:0" json:"loyalty_points"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
