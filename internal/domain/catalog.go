package domain

import "time"

// NotSetYet is stored for payment details an administrator has not provided.
const NotSetYet = "not set yet"

// Rank is a purchasable server rank.
type Rank struct {
	Name      string
	CreatedAt time.Time
}

// PaymentMethod is an accepted way to pay, with the details shown to buyers.
type PaymentMethod struct {
	Name       string
	Identifier string
	QR         string
	CreatedAt  time.Time
}

// HasIdentifier reports whether an administrator configured a payee id.
func (m PaymentMethod) HasIdentifier() bool {
	return m.Identifier != "" && m.Identifier != NotSetYet
}

// HasQR reports whether an administrator configured a QR asset.
func (m PaymentMethod) HasQR() bool {
	return m.QR != "" && m.QR != NotSetYet
}

// Price is the cost of a rank through one payment method.
type Price struct {
	Rank   string
	Method string
	Amount float64
}
