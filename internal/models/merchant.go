package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

type BillingCycle string

const (
	BillingMonthly BillingCycle = "MONTHLY"
	BillingYearly  BillingCycle = "YEARLY"
)

type Merchant struct {
	ID                 string             `json:"id"`
	BusinessName       string             `json:"business_name"`
	Email              string             `json:"email"`
	Balance            Money              `json:"balance"`
	CurrentPlan        string             `json:"current_plan"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	BillingCycle       BillingCycle       `json:"billing_cycle"`
	LastBillingDate    *time.Time         `json:"last_billing_date,omitempty"`
	WebhookURL         string             `json:"webhook_url,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ActivatePlan applies a paid subscription fee.
func (m *Merchant) ActivatePlan(planID string, at time.Time) {
	m.CurrentPlan = planID
	m.SubscriptionStatus = SubscriptionActive
	m.BillingCycle = BillingMonthly
	m.LastBillingDate = &at
}
