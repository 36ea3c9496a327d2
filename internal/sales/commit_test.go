package sales

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"zenda-system/internal/checkout"
	"zenda-system/internal/database/models"
)

var taxRate = decimal.RequireFromString("0.16")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Category{}, &models.Product{}, &models.Customer{},
		&models.Sale{}, &models.SaleItem{}, &models.SaleTender{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, sku, name, price string, stock int32) *models.Product {
	t.Helper()
	p := &models.Product{
		SKU:      sku,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Cost:     decimal.Zero,
		Stock:    stock,
		IsActive: true,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product %s: %v", sku, err)
	}
	return p
}

func seedCustomer(t *testing.T, db *gorm.DB, name, creditLimit string) *models.Customer {
	t.Helper()
	c := &models.Customer{
		Name:        name,
		CreditLimit: decimal.RequireFromString(creditLimit),
		IsActive:    true,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}

func productStock(t *testing.T, db *gorm.DB, id int64) int32 {
	t.Helper()
	var p models.Product
	if err := db.First(&p, id).Error; err != nil {
		t.Fatalf("load product %d: %v", id, err)
	}
	return p.Stock
}

func TestCommitPersistsSaleAndDecrementsStock(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, "TACO-1", "Tacos", "18.00", 10)
	committer := NewCommitter(db, NewNumberer(nil))

	session := checkout.NewSession(1, taxRate, "MXN")
	session.AddItem(product.ID, product.SKU, product.Name, product.Price, 2)
	if _, err := session.AddTender(checkout.PaymentCash, decimal.RequireFromString("50.00")); err != nil {
		t.Fatalf("add tender: %v", err)
	}

	sale, err := committer.Commit(context.Background(), session, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if sale.SaleNumber == "" {
		t.Fatal("sale number not assigned")
	}
	if !sale.Subtotal.Equal(decimal.RequireFromString("36.00")) {
		t.Errorf("subtotal = %s, want 36.00", sale.Subtotal)
	}
	if !sale.Tax.Equal(decimal.RequireFromString("5.76")) {
		t.Errorf("tax = %s, want 5.76", sale.Tax)
	}
	if !sale.Total.Equal(decimal.RequireFromString("41.76")) {
		t.Errorf("total = %s, want 41.76", sale.Total)
	}
	if !sale.Change.Equal(decimal.RequireFromString("8.24")) {
		t.Errorf("change = %s, want 8.24", sale.Change)
	}
	if sale.PaymentMethod != "cash" {
		t.Errorf("payment method = %s, want cash", sale.PaymentMethod)
	}
	if sale.Status != models.SaleStatusCompleted {
		t.Errorf("status = %s, want completed", sale.Status)
	}
	if len(sale.Items) != 1 || sale.Items[0].Quantity != 2 {
		t.Errorf("unexpected items: %+v", sale.Items)
	}

	if got := productStock(t, db, product.ID); got != 8 {
		t.Errorf("stock after sale = %d, want 8", got)
	}

	var tenders []models.SaleTender
	if err := db.Where("sale_id = ?", sale.ID).Find(&tenders).Error; err != nil {
		t.Fatalf("load tenders: %v", err)
	}
	if len(tenders) != 1 || tenders[0].Method != "cash" {
		t.Errorf("unexpected tenders: %+v", tenders)
	}
}

func TestCommitRecordsFirstTenderMethod(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, "TACO-1", "Tacos", "18.00", 10)
	committer := NewCommitter(db, NewNumberer(nil))

	session := checkout.NewSession(1, taxRate, "MXN")
	session.AddItem(product.ID, product.SKU, product.Name, product.Price, 2)
	if _, err := session.AddTender(checkout.PaymentCash, decimal.RequireFromString("20.00")); err != nil {
		t.Fatalf("add cash tender: %v", err)
	}
	if _, err := session.AddTender(checkout.PaymentCard, decimal.RequireFromString("21.76")); err != nil {
		t.Fatalf("add card tender: %v", err)
	}

	sale, err := committer.Commit(context.Background(), session, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if sale.PaymentMethod != "cash" {
		t.Errorf("payment method = %s, want cash (first tender)", sale.PaymentMethod)
	}
	if !sale.Change.IsZero() {
		t.Errorf("change = %s, want 0", sale.Change)
	}

	var tenders []models.SaleTender
	if err := db.Where("sale_id = ?", sale.ID).Order("id").Find(&tenders).Error; err != nil {
		t.Fatalf("load tenders: %v", err)
	}
	if len(tenders) != 2 || tenders[0].Method != "cash" || tenders[1].Method != "card" {
		t.Errorf("unexpected tenders: %+v", tenders)
	}
}

func TestCommitInsufficientStockRollsBack(t *testing.T) {
	db := newTestDB(t)
	plenty := seedProduct(t, db, "TACO-1", "Tacos", "18.00", 10)
	scarce := seedProduct(t, db, "FLAN-1", "Flan", "25.00", 1)
	committer := NewCommitter(db, NewNumberer(nil))

	session := checkout.NewSession(1, taxRate, "MXN")
	session.AddItem(plenty.ID, plenty.SKU, plenty.Name, plenty.Price, 2)
	session.AddItem(scarce.ID, scarce.SKU, scarce.Name, scarce.Price, 3)
	if _, err := session.AddTender(checkout.PaymentCash, decimal.RequireFromString("500.00")); err != nil {
		t.Fatalf("add tender: %v", err)
	}

	if _, err := committer.Commit(context.Background(), session, nil); err != ErrInsufficientStock {
		t.Fatalf("commit: got %v, want ErrInsufficientStock", err)
	}

	// Nothing from the failed commit may survive.
	if got := productStock(t, db, plenty.ID); got != 10 {
		t.Errorf("stock of first product = %d, want 10 (rolled back)", got)
	}
	if got := productStock(t, db, scarce.ID); got != 1 {
		t.Errorf("stock of second product = %d, want 1", got)
	}
	var saleCount int64
	db.Model(&models.Sale{}).Count(&saleCount)
	if saleCount != 0 {
		t.Errorf("sale rows = %d, want 0", saleCount)
	}
	var itemCount int64
	db.Model(&models.SaleItem{}).Count(&itemCount)
	if itemCount != 0 {
		t.Errorf("sale item rows = %d, want 0", itemCount)
	}
}

func TestCommitRejectsUnderpaymentAndEmptyCart(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, "TACO-1", "Tacos", "18.00", 10)
	committer := NewCommitter(db, NewNumberer(nil))

	empty := checkout.NewSession(1, taxRate, "MXN")
	if _, err := committer.Commit(context.Background(), empty, nil); err != ErrCartEmpty {
		t.Fatalf("empty cart: got %v, want ErrCartEmpty", err)
	}

	session := checkout.NewSession(1, taxRate, "MXN")
	session.AddItem(product.ID, product.SKU, product.Name, product.Price, 2)
	if _, err := session.AddTender(checkout.PaymentCash, decimal.RequireFromString("20.00")); err != nil {
		t.Fatalf("add tender: %v", err)
	}
	if _, err := committer.Commit(context.Background(), session, nil); err != ErrInsufficientPayment {
		t.Fatalf("underpaid cart: got %v, want ErrInsufficientPayment", err)
	}
	if got := productStock(t, db, product.ID); got != 10 {
		t.Errorf("stock = %d, want 10 (nothing committed)", got)
	}
}

func TestCommitCreditTender(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, "TACO-1", "Tacos", "18.00", 10)
	customer := seedCustomer(t, db, "Ana", "100.00")
	committer := NewCommitter(db, NewNumberer(nil))

	session := checkout.NewSession(1, taxRate, "MXN")
	session.CustomerID = &customer.ID
	session.AddItem(product.ID, product.SKU, product.Name, product.Price, 2)
	if _, err := session.AddTender(checkout.PaymentCredit, decimal.RequireFromString("41.76")); err != nil {
		t.Fatalf("add tender: %v", err)
	}

	sale, err := committer.Commit(context.Background(), session, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if sale.PaymentMethod != "credit" {
		t.Errorf("payment method = %s, want credit", sale.PaymentMethod)
	}

	var got models.Customer
	if err := db.First(&got, customer.ID).Error; err != nil {
		t.Fatalf("load customer: %v", err)
	}
	if !got.CreditBalance.Equal(decimal.RequireFromString("41.76")) {
		t.Errorf("credit balance = %s, want 41.76", got.CreditBalance)
	}
	if got.LoyaltyPoints != 41 {
		t.Errorf("loyalty points = %d, want 41", got.LoyaltyPoints)
	}
}

func TestCommitCreditWithoutCustomer(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, "TACO-1", "Tacos", "18.00", 10)
	committer := NewCommitter(db, NewNumberer(nil))

	session := checkout.NewSession(1, taxRate, "MXN")
	session.AddItem(product.ID, product.SKU, product.Name, product.Price, 2)
	if _, err := session.AddTender(checkout.PaymentCredit, decimal.RequireFromString("41.76")); err != nil {
		t.Fatalf("add tender: %v", err)
	}

	if _, err := committer.Commit(context.Background(), session, nil); err != ErrCreditWithoutCustomer {
		t.Fatalf("commit: got %v, want ErrCreditWithoutCustomer", err)
	}
}

func TestCommitCreditLimitExceededRollsBack(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, "TACO-1", "Tacos", "18.00", 10)
	customer := seedCustomer(t, db, "Ana", "10.00")
	committer := NewCommitter(db, NewNumberer(nil))

	session := checkout.NewSession(1, taxRate, "MXN")
	session.CustomerID = &customer.ID
	session.AddItem(product.ID, product.SKU, product.Name, product.Price, 2)
	if _, err := session.AddTender(checkout.PaymentCredit, decimal.RequireFromString("41.76")); err != nil {
		t.Fatalf("add tender: %v", err)
	}

	if _, err := committer.Commit(context.Background(), session, nil); err != ErrCreditLimitExceeded {
		t.Fatalf("commit: got %v, want ErrCreditLimitExceeded", err)
	}

	if got := productStock(t, db, product.ID); got != 10 {
		t.Errorf("stock = %d, want 10 (rolled back)", got)
	}
	var saleCount int64
	db.Model(&models.Sale{}).Count(&saleCount)
	if saleCount != 0 {
		t.Errorf("sale rows = %d, want 0", saleCount)
	}
}

func TestRefundRestoresStockAndStatus(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, "TACO-1", "Tacos", "18.00", 10)
	committer := NewCommitter(db, NewNumberer(nil))

	session := checkout.NewSession(1, taxRate, "MXN")
	session.AddItem(product.ID, product.SKU, product.Name, product.Price, 2)
	if _, err := session.AddTender(checkout.PaymentCash, decimal.RequireFromString("41.76")); err != nil {
		t.Fatalf("add tender: %v", err)
	}
	sale, err := committer.Commit(context.Background(), session, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := productStock(t, db, product.ID); got != 8 {
		t.Fatalf("stock after sale = %d, want 8", got)
	}

	refunded, err := committer.Refund(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != models.SaleStatusRefunded {
		t.Errorf("status = %s, want refunded", refunded.Status)
	}
	if got := productStock(t, db, product.ID); got != 10 {
		t.Errorf("stock after refund = %d, want 10", got)
	}

	if _, err := committer.Refund(context.Background(), sale.ID); err != ErrSaleNotRefundable {
		t.Fatalf("second refund: got %v, want ErrSaleNotRefundable", err)
	}
}

func TestNumbererFallbackWithoutRedis(t *testing.T) {
	n := NewNumberer(nil)
	num := n.Next(context.Background())
	if num == "" {
		t.Fatal("empty sale number")
	}
	if num[:4] != "POS-" {
		t.Fatalf("sale number %q missing POS- prefix", num)
	}
}
