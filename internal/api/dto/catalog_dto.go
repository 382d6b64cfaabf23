package dto

import "time"

// RankRequest names a rank.
type RankRequest struct {
	Name string `json:"name"`
}

// RankResponse represents a purchasable rank.
type RankResponse struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentMethodRequest names a payment method.
type PaymentMethodRequest struct {
	Name string `json:"name"`
}

// PaymentDetailsRequest sets what buyers see for a method. Omitted values become "not set yet".
type PaymentDetailsRequest struct {
	Identifier string `json:"identifier"`
	QR         string `json:"qr"`
}

// PaymentMethodResponse represents an accepted payment method.
type PaymentMethodResponse struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	QR         string `json:"qr"`
}

// PriceRequest sets a rank price for one method.
type PriceRequest struct {
	Method string   `json:"method"`
	Amount *float64 `json:"amount"`
}

// PriceResponse is one row of a rank's price table.
type PriceResponse struct {
	Rank   string  `json:"rank"`
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}
