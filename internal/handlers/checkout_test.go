package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"zenda-system/internal/checkout"
	"zenda-system/internal/database/models"
	"zenda-system/internal/sales"
)

var testTaxRate = decimal.RequireFromString("0.16")

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
}

func newHandlerDB(t *testing.T) *gorm.DB {
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
		&models.Role{}, &models.User{},
		&models.Category{}, &models.Product{}, &models.Customer{},
		&models.Sale{}, &models.SaleItem{}, &models.SaleTender{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newCheckoutRouter(t *testing.T, db *gorm.DB) (*gin.Engine, *checkout.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := checkout.NewManager(testTaxRate, "MXN")
	committer := sales.NewCommitter(db, sales.NewNumberer(nil))
	h := NewCheckoutHandler(db, manager, committer)

	r := gin.New()
	g := r.Group("/api/v1/checkout/sessions")
	g.POST("", h.CreateSession)
	g.GET("/:id", h.GetSession)
	g.DELETE("/:id", h.AbandonSession)
	g.POST("/:id/items", h.AddItem)
	g.PUT("/:id/items/:item_id", h.UpdateItem)
	g.DELETE("/:id/items/:item_id", h.RemoveItem)
	g.PUT("/:id/discount", h.SetGlobalDiscount)
	g.DELETE("/:id/items", h.ClearCart)
	g.POST("/:id/tenders", h.AddTender)
	g.DELETE("/:id/tenders/:tender_id", h.RemoveTender)
	g.POST("/:id/complete", h.Complete)
	g.POST("/:id/voice", h.VoiceCommand)
	return r, manager
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %s: %v", w.Body.String(), err)
	}
	return env
}

func createSession(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions", gin.H{"cashier_id": 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d, body %s", w.Code, w.Body.String())
	}
	var data struct {
		ID string `json:"id"`
	}
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if data.ID == "" {
		t.Fatal("session id missing")
	}
	return data.ID
}

func seedTacos(t *testing.T, db *gorm.DB) *models.Product {
	t.Helper()
	barcode := "7501000000011"
	p := &models.Product{
		SKU:      "TACO-1",
		Barcode:  &barcode,
		Name:     "Tacos",
		Price:    decimal.RequireFromString("18.00"),
		Cost:     decimal.Zero,
		Stock:    10,
		IsActive: true,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestCheckoutFlow(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newCheckoutRouter(t, db)
	product := seedTacos(t, db)

	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/items",
		gin.H{"product_id": product.ID, "quantity": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("add item: status %d, body %s", w.Code, w.Body.String())
	}
	var view struct {
		Totals struct {
			Subtotal decimal.Decimal `json:"subtotal"`
			Tax      decimal.Decimal `json:"tax"`
			Total    decimal.Decimal `json:"total"`
		} `json:"totals"`
	}
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if !view.Totals.Subtotal.Equal(decimal.RequireFromString("36.00")) {
		t.Errorf("subtotal = %s, want 36.00", view.Totals.Subtotal)
	}
	if !view.Totals.Tax.Equal(decimal.RequireFromString("5.76")) {
		t.Errorf("tax = %s, want 5.76", view.Totals.Tax)
	}
	if !view.Totals.Total.Equal(decimal.RequireFromString("41.76")) {
		t.Errorf("total = %s, want 41.76", view.Totals.Total)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/tenders",
		gin.H{"method": "cash", "amount": "50.00"})
	if w.Code != http.StatusOK {
		t.Fatalf("add tender: status %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/complete", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("complete: status %d, body %s", w.Code, w.Body.String())
	}
	var result struct {
		Sale   models.Sale     `json:"sale"`
		Change decimal.Decimal `json:"change"`
	}
	env = decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if !result.Change.Equal(decimal.RequireFromString("8.24")) {
		t.Errorf("change = %s, want 8.24", result.Change)
	}
	if result.Sale.PaymentMethod != "cash" {
		t.Errorf("payment method = %s, want cash", result.Sale.PaymentMethod)
	}

	var stocked models.Product
	if err := db.First(&stocked, product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stocked.Stock != 8 {
		t.Errorf("stock = %d, want 8", stocked.Stock)
	}

	// Session is gone after a successful commit.
	w = doJSON(t, r, http.MethodGet, "/api/v1/checkout/sessions/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after complete: status %d, want 404", w.Code)
	}
}

func TestCompleteWithEmptyBodySettlesInCash(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newCheckoutRouter(t, db)
	product := seedTacos(t, db)

	id := createSession(t, r)
	doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/items",
		gin.H{"product_id": product.ID, "quantity": 2})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions/"+id+"/complete", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("complete with empty body: status %d, body %s", w.Code, w.Body.String())
	}

	var result struct {
		Sale   models.Sale     `json:"sale"`
		Change decimal.Decimal `json:"change"`
	}
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if result.Sale.PaymentMethod != "cash" {
		t.Errorf("payment method = %s, want cash", result.Sale.PaymentMethod)
	}
	if !result.Change.IsZero() {
		t.Errorf("change = %s, want 0", result.Change)
	}
	if !result.Sale.Paid.Equal(decimal.RequireFromString("41.76")) {
		t.Errorf("paid = %s, want 41.76", result.Sale.Paid)
	}
}

func TestCompleteEmptyCart(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newCheckoutRouter(t, db)

	id := createSession(t, r)
	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/complete", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("complete empty cart: status %d, want 400; body %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if env.Message != "Cart has no items" {
		t.Fatalf("message = %q, want cart-empty error", env.Message)
	}
}

func TestCompleteInsufficientStockKeepsSession(t *testing.T) {
	db := newHandlerDB(t)
	r, manager := newCheckoutRouter(t, db)
	barcode := "7501000000028"
	product := &models.Product{
		SKU:      "FLAN-1",
		Barcode:  &barcode,
		Name:     "Flan",
		Price:    decimal.RequireFromString("25.00"),
		Cost:     decimal.Zero,
		Stock:    1,
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	id := createSession(t, r)
	doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/items",
		gin.H{"product_id": product.ID, "quantity": 3})

	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/complete", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("complete: status %d, want 409; body %s", w.Code, w.Body.String())
	}

	// Session survives with its cart intact and no leftover implicit tender.
	session, err := manager.Get(id)
	if err != nil {
		t.Fatalf("session should survive a failed commit: %v", err)
	}
	if len(session.Lines) != 1 {
		t.Errorf("cart lines = %d, want 1", len(session.Lines))
	}
	if len(session.Tenders) != 0 {
		t.Errorf("tenders = %d, want 0 after rollback", len(session.Tenders))
	}

	var stocked models.Product
	if err := db.First(&stocked, product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stocked.Stock != 1 {
		t.Errorf("stock = %d, want 1", stocked.Stock)
	}
}

func TestAddItemByBarcode(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newCheckoutRouter(t, db)
	product := seedTacos(t, db)

	id := createSession(t, r)
	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/items",
		gin.H{"barcode": *product.Barcode})
	if w.Code != http.StatusOK {
		t.Fatalf("add by barcode: status %d, body %s", w.Code, w.Body.String())
	}

	var view struct {
		Lines []struct {
			ProductID int64 `json:"product_id"`
			Quantity  int32 `json:"quantity"`
		} `json:"lines"`
	}
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].ProductID != product.ID || view.Lines[0].Quantity != 1 {
		t.Fatalf("unexpected lines: %+v", view.Lines)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	db := newHandlerDB(t)
	r, _ := newCheckoutRouter(t, db)

	id := createSession(t, r)
	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/items",
		gin.H{"product_id": 999})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404; body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/items", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400; body %s", w.Code, w.Body.String())
	}
}

func TestVoiceCommandAppliesAndSkips(t *testing.T) {
	db := newHandlerDB(t)
	r, manager := newCheckoutRouter(t, db)
	seedTacos(t, db)

	id := createSession(t, r)
	w := doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/voice",
		gin.H{"transcript": "add two tacos and remove the flan"})
	if w.Code != http.StatusOK {
		t.Fatalf("voice: status %d, body %s", w.Code, w.Body.String())
	}

	var result struct {
		Applied []json.RawMessage `json:"applied"`
		Skipped []json.RawMessage `json:"skipped"`
	}
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Applied) != 1 || len(result.Skipped) != 1 {
		t.Fatalf("applied=%d skipped=%d, want 1/1; body %s",
			len(result.Applied), len(result.Skipped), w.Body.String())
	}

	session, err := manager.Get(id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(session.Lines) != 1 || session.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected cart: %+v", session.Lines)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/voice",
		gin.H{"transcript": "mumble mumble"})
	if w.Code != http.StatusOK && w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("noise transcript: status %d", w.Code)
	}
}
