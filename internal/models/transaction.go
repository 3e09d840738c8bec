package models

import "time"

type TransactionType string

const (
	TxnPayment         TransactionType = "PAYMENT"
	TxnP2PSend         TransactionType = "P2P_SEND"
	TxnP2PReceive      TransactionType = "P2P_RECEIVE"
	TxnSubscriptionFee TransactionType = "SUBSCRIPTION_FEE"
	TxnDeposit         TransactionType = "DEPOSIT"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxnPayment, TxnP2PSend, TxnP2PReceive, TxnSubscriptionFee, TxnDeposit:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "PENDING"
	TxnCompleted TransactionStatus = "COMPLETED"
	TxnFailed    TransactionStatus = "FAILED"
	TxnExpired   TransactionStatus = "EXPIRED"
)

// Terminal statuses are final.
func (s TransactionStatus) Terminal() bool {
	return s == TxnCompleted || s == TxnFailed || s == TxnExpired
}

type PaymentMethod string

const (
	MethodCard    PaymentMethod = "CARD"
	MethodQRScan  PaymentMethod = "QR_SCAN"
	MethodP2P     PaymentMethod = "P2P"
	MethodDeposit PaymentMethod = "DEPOSIT"
)

type Transaction struct {
	ID          string            `json:"id"`
	Amount      Money             `json:"amount"`
	Description string            `json:"description"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	Method      *PaymentMethod    `json:"method,omitempty"`
	MerchantID  *string           `json:"merchant_id,omitempty"`
	PayerID     *string           `json:"payer_id,omitempty"`
	PlanID      *string           `json:"plan_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
}

// Transition moves a pending transaction into a terminal status and stamps
// processedAt. It reports false when the move is not allowed.
func (t *Transaction) Transition(to TransactionStatus, at time.Time) bool {
	if t.Status != TxnPending || !to.Terminal() {
		return false
	}
	t.Status = to
	t.ProcessedAt = &at
	return true
}

func (t Transaction) HasMerchant() bool { return t.MerchantID != nil && *t.MerchantID != "" }
