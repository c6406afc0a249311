package domain

// PaymentInfo acompaña solicitudes de VM; solo se registra, nunca se cobra.
type PaymentInfo struct {
	UPIID    string  `json:"upi_id" binding:"required"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Method   string  `json:"payment_method"`
}
