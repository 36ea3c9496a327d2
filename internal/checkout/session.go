// Package checkout holds the in-memory state of one point-of-sale checkout:
// the cart accumulator and the multi-tender payment splitter. It performs no
// I/O; persistence of a finished session is the sales package's job.
package checkout

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"zenda-system/internal/money"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCredit   PaymentMethod = "credit"
)

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentCredit:
		return PaymentMethod(s), nil
	}
	return "", ErrUnknownPaymentMethod
}

var (
	ErrLineNotFound   = errors.New("cart line not found")
	ErrTenderNotFound = errors.New("tender not found")
	ErrInvalidAmount  = errors.New("tender amount must be greater than zero")
)

// Line is one product entry in the cart. Subtotal stays list-price times
// quantity even when a per-line discount is set; the discount only affects
// the derived totals.
type Line struct {
	ID              string          `json:"id"`
	ProductID       int64           `json:"product_id"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int32           `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

func (l *Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
}

// net is the line's contribution after its own discount, unrounded.
func (l *Line) net() decimal.Decimal {
	sub := l.Subtotal()
	return sub.Sub(money.PercentOf(sub, l.DiscountPercent))
}

// Tender is one payment contribution toward the order total.
type Tender struct {
	ID     string          `json:"id"`
	Method PaymentMethod   `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Session is the working state of a single checkout: cart lines, a global
// discount, and the tenders collected so far. It is a plain value object;
// the Manager serializes access to it.
type Session struct {
	ID             string          `json:"id"`
	CashierID      int64           `json:"cashier_id"`
	CustomerID     *int64          `json:"customer_id,omitempty"`
	Currency       string          `json:"currency"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	GlobalDiscount decimal.Decimal `json:"global_discount"`
	Lines          []*Line         `json:"lines"`
	Tenders        []*Tender       `json:"tenders"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func NewSession(cashierID int64, taxRate decimal.Decimal, currency string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CashierID: cashierID,
		Currency:  currency,
		TaxRate:   taxRate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem merges into an existing line for the same product, otherwise
// appends a new one. Quantities below one are treated as one.
func (s *Session) AddItem(productID int64, sku, name string, unitPrice decimal.Decimal, quantity int32) *Line {
	if quantity < 1 {
		quantity = 1
	}
	for _, l := range s.Lines {
		if l.ProductID == productID {
			l.Quantity += quantity
			s.touch()
			return l
		}
	}
	line := &Line{
		ID:        uuid.NewString(),
		ProductID: productID,
		SKU:       sku,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
	}
	s.Lines = append(s.Lines, line)
	s.touch()
	return line
}

// UpdateQuantity clamps non-positive quantities to one; a line never drops to
// zero quantity, it has to be removed explicitly.
func (s *Session) UpdateQuantity(lineID string, quantity int32) (*Line, error) {
	line := s.findLine(lineID)
	if line == nil {
		return nil, ErrLineNotFound
	}
	if quantity < 1 {
		quantity = 1
	}
	line.Quantity = quantity
	s.touch()
	return line, nil
}

func (s *Session) SetItemDiscount(lineID string, percent decimal.Decimal) (*Line, error) {
	line := s.findLine(lineID)
	if line == nil {
		return nil, ErrLineNotFound
	}
	line.DiscountPercent = money.ClampPercent(percent)
	s.touch()
	return line, nil
}

func (s *Session) SetGlobalDiscount(percent decimal.Decimal) {
	s.GlobalDiscount = money.ClampPercent(percent)
	s.touch()
}

func (s *Session) RemoveItem(lineID string) error {
	for i, l := range s.Lines {
		if l.ID == lineID {
			s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
			s.touch()
			return nil
		}
	}
	return ErrLineNotFound
}

func (s *Session) Clear() {
	s.Lines = nil
	s.Tenders = nil
	s.GlobalDiscount = decimal.Zero
	s.touch()
}

// Totals derives the reported figures. Order of combination: each line is
// discounted first, the discounted lines are summed, the global discount is
// applied to that sum, and tax applies to the result. The reported discount
// is rounded before tax so that total == subtotal - discount + tax holds
// exactly over the published 2-decimal figures.
func (s *Session) Totals() Totals {
	subtotal := decimal.Zero
	net := decimal.Zero
	for _, l := range s.Lines {
		subtotal = subtotal.Add(l.Subtotal())
		net = net.Add(l.net())
	}
	net = net.Sub(money.PercentOf(net, s.GlobalDiscount))

	discount := money.Round2(subtotal.Sub(net))
	taxable := subtotal.Sub(discount)
	tax := money.Round2(taxable.Mul(s.TaxRate))

	return Totals{
		Subtotal: money.Round2(subtotal),
		Discount: discount,
		Tax:      tax,
		Total:    taxable.Add(tax),
	}
}

func (s *Session) AddTender(method PaymentMethod, amount decimal.Decimal) (*Tender, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	t := &Tender{
		ID:     uuid.NewString(),
		Method: method,
		Amount: money.Round2(amount),
	}
	s.Tenders = append(s.Tenders, t)
	s.touch()
	return t, nil
}

func (s *Session) RemoveTender(tenderID string) error {
	for i, t := range s.Tenders {
		if t.ID == tenderID {
			s.Tenders = append(s.Tenders[:i], s.Tenders[i+1:]...)
			s.touch()
			return nil
		}
	}
	return ErrTenderNotFound
}

func (s *Session) TotalPaid() decimal.Decimal {
	paid := decimal.Zero
	for _, t := range s.Tenders {
		paid = paid.Add(t.Amount)
	}
	return paid
}

func (s *Session) Remaining() decimal.Decimal {
	rem := s.Totals().Total.Sub(s.TotalPaid())
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Change is the excess over the order total. It is reported to the cashier
// and never persisted as a liability.
func (s *Session) Change() decimal.Decimal {
	change := s.TotalPaid().Sub(s.Totals().Total)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

func (s *Session) Completable() bool {
	return len(s.Lines) > 0 && s.Remaining().IsZero()
}

// PaymentMethodForSale is the method recorded on the committed sale: the
// first tender's method.
func (s *Session) PaymentMethodForSale() PaymentMethod {
	if len(s.Tenders) == 0 {
		return PaymentCash
	}
	return s.Tenders[0].Method
}

// snapshot copies the session so callers can read and serialize it after the
// manager lock is released.
func (s *Session) snapshot() *Session {
	cp := *s
	cp.Lines = make([]*Line, len(s.Lines))
	for i, l := range s.Lines {
		lc := *l
		cp.Lines[i] = &lc
	}
	cp.Tenders = make([]*Tender, len(s.Tenders))
	for i, t := range s.Tenders {
		tc := *t
		cp.Tenders[i] = &tc
	}
	return &cp
}

func (s *Session) findLine(lineID string) *Line {
	for _, l := range s.Lines {
		if l.ID == lineID {
			return l
		}
	}
	return nil
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}
