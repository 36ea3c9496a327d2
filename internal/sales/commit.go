package sales

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"zenda-system/internal/checkout"
	"zenda-system/internal/database/models"
	"zenda-system/internal/money"
)

var (
	ErrCartEmpty             = errors.New("cart has no items")
	ErrInsufficientPayment   = errors.New("tendered amount does not cover the total")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrCreditWithoutCustomer = errors.New("credit tender requires a customer")
	ErrCreditLimitExceeded   = errors.New("customer credit limit exceeded")
	ErrSaleNotRefundable     = errors.New("sale is not refundable")
)

// Committer turns a completable checkout session into a persisted sale.
// Header, line items, tender records, stock decrements and customer updates
// all happen in one transaction; if any product would go below zero stock
// the whole sale is rejected and nothing is persisted.
type Committer struct {
	db        *gorm.DB
	numberer  *Numberer
	loyaltyOn bool
}

func NewCommitter(db *gorm.DB, numberer *Numberer) *Committer {
	return &Committer{db: db, numberer: numberer, loyaltyOn: true}
}

func (c *Committer) Commit(ctx context.Context, session *checkout.Session, notes *string) (*models.Sale, error) {
	if len(session.Lines) == 0 {
		return nil, ErrCartEmpty
	}
	totals := session.Totals()
	paid := session.TotalPaid()
	if paid.LessThan(totals.Total) {
		return nil, ErrInsufficientPayment
	}

	creditAmount := decimal.Zero
	for _, t := range session.Tenders {
		if t.Method == checkout.PaymentCredit {
			creditAmount = creditAmount.Add(t.Amount)
		}
	}
	if creditAmount.IsPositive() && session.CustomerID == nil {
		return nil, ErrCreditWithoutCustomer
	}

	sale := &models.Sale{
		SaleNumber:    c.numberer.Next(ctx),
		CashierID:     session.CashierID,
		CustomerID:    session.CustomerID,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Tax:           totals.Tax,
		Total:         totals.Total,
		Paid:          money.Round2(paid),
		Change:        session.Change(),
		PaymentMethod: string(session.PaymentMethodForSale()),
		Status:        models.SaleStatusCompleted,
		Currency:      session.Currency,
		Notes:         notes,
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sale).Error; err != nil {
			return err
		}

		for _, line := range session.Lines {
			item := models.SaleItem{
				SaleID:          sale.ID,
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				UnitPrice:       line.UnitPrice,
				Subtotal:        money.Round2(line.Subtotal()),
				DiscountPercent: line.DiscountPercent,
				LineTotal:       money.Round2(line.Subtotal().Sub(money.PercentOf(line.Subtotal(), line.DiscountPercent))),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}

			res := tx.Exec(
				"UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?",
				line.Quantity, time.Now(), line.ProductID, line.Quantity,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientStock
			}
		}

		for _, t := range session.Tenders {
			tender := models.SaleTender{
				SaleID: sale.ID,
				Method: string(t.Method),
				Amount: t.Amount,
			}
			if err := tx.Create(&tender).Error; err != nil {
				return err
			}
		}

		if creditAmount.IsPositive() {
			res := tx.Exec(
				"UPDATE customers SET credit_balance = credit_balance + ?, updated_at = ? WHERE id = ? AND credit_balance + ? <= credit_limit",
				creditAmount, time.Now(), *session.CustomerID, creditAmount,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrCreditLimitExceeded
			}
		}

		if c.loyaltyOn && session.CustomerID != nil {
			points := totals.Total.IntPart()
			if points > 0 {
				if err := tx.Exec(
					"UPDATE customers SET loyalty_points = loyalty_points + ?, updated_at = ? WHERE id = ?",
					points, time.Now(), *session.CustomerID,
				).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.db.WithContext(ctx).Preload("Items.Product").First(sale, sale.ID).Error; err != nil {
		return nil, err
	}
	return sale, nil
}

// Refund reverses a completed sale: restores stock, backs out customer
// credit and loyalty, and flips the status. One transaction, same as commit.
func (c *Committer) Refund(ctx context.Context, saleID int64) (*models.Sale, error) {
	var sale models.Sale

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&sale, saleID).Error; err != nil {
			return err
		}
		if sale.Status != models.SaleStatusCompleted {
			return ErrSaleNotRefundable
		}

		for _, item := range sale.Items {
			if err := tx.Exec(
				"UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?",
				item.Quantity, time.Now(), item.ProductID,
			).Error; err != nil {
				return err
			}
		}

		if sale.CustomerID != nil {
			var tenders []models.SaleTender
			if err := tx.Where("sale_id = ?", sale.ID).Find(&tenders).Error; err != nil {
				return err
			}
			credit := decimal.Zero
			for _, t := range tenders {
				if t.Method == string(checkout.PaymentCredit) {
					credit = credit.Add(t.Amount)
				}
			}
			if credit.IsPositive() {
				if err := tx.Exec(
					"UPDATE customers SET credit_balance = credit_balance - ?, updated_at = ? WHERE id = ?",
					credit, time.Now(), *sale.CustomerID,
				).Error; err != nil {
					return err
				}
			}
			points := sale.Total.IntPart()
			if points > 0 {
				if err := tx.Exec(
					"UPDATE customers SET loyalty_points = loyalty_points - ?, updated_at = ? WHERE id = ? AND loyalty_points >= ?",
					points, time.Now(), *sale.CustomerID, points,
				).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&models.Sale{}).Where("id = ?", sale.ID).
			Update("status", models.SaleStatusRefunded).Error
	})
	if err != nil {
		return nil, err
	}

	if err := c.db.WithContext(ctx).Preload("Items").First(&sale, sale.ID).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}
