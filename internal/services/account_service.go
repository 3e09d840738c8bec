package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/baharkarakas/paycore/internal/auth"
	"github.com/baharkarakas/paycore/internal/models"
	"github.com/baharkarakas/paycore/internal/plans"
	repo "github.com/baharkarakas/paycore/internal/repository"
)

// AccountService registers payers and merchants and manages payer cards.
type AccountService struct {
	users     repo.Users
	merchants repo.Merchants
	audit     auditor
	log       *slog.Logger
}

func NewAccountService(r repo.Repositories, log *slog.Logger) *AccountService {
	log = orDefault(log)
	return &AccountService{
		users:     r.Users,
		merchants: r.Merchants,
		audit:     auditor{logs: r.AuditLogs, log: log},
		log:       log,
	}
}

type NewPayer struct {
	Email          string
	DisplayName    string
	PIN            string
	InitialBalance models.Money
}

func (s *AccountService) RegisterPayer(ctx context.Context, in NewPayer) (models.User, error) {
	if in.InitialBalance < 0 {
		return models.User{}, ErrInvalidAmount
	}
	hash, err := auth.HashPIN(in.PIN)
	if errors.Is(err, auth.ErrWeakPIN) {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return models.User{}, err
	}
	acct, err := auth.NewAccountNumber()
	if err != nil {
		return models.User{}, err
	}
	u := models.User{
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		DisplayName:   in.DisplayName,
		AccountNumber: acct,
		PINHash:       hash,
		MainBalance:   in.InitialBalance,
		Status:        models.UserActive,
	}
	if err := u.Validate(); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	created, err := s.users.Create(ctx, u)
	if errors.Is(err, repo.ErrDuplicate) {
		return models.User{}, ErrAccountExists
	}
	if err != nil {
		return models.User{}, fmt.Errorf("create payer: %w", err)
	}
	s.audit.record(ctx, "user", created.ID, "registered", nil)
	s.log.Info("payer registered", "user_id", created.ID)
	return created, nil
}

func (s *AccountService) GetPayer(ctx context.Context, id string) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

type NewCard struct {
	Number string
	CVV    string
	Expiry string
}

// AddCard validates and attaches a card. A card number is globally unique.
func (s *AccountService) AddCard(ctx context.Context, userID string, in NewCard) (models.Card, error) {
	number := models.NormalizeCardNumber(in.Number)
	provider, ok := models.DetectProvider(number)
	if !ok {
		return models.Card{}, fmt.Errorf("%w: unsupported card number", ErrInvalidCard)
	}
	if !models.ValidExpiry(in.Expiry) {
		return models.Card{}, fmt.Errorf("%w: expiry must be MM/YY", ErrInvalidCard)
	}
	if !models.ValidCVV(in.CVV) {
		return models.Card{}, fmt.Errorf("%w: cvv must be 3 or 4 digits", ErrInvalidCard)
	}
	hash, err := auth.HashSecret(in.CVV)
	if err != nil {
		return models.Card{}, err
	}
	c := models.Card{Number: number, CVVHash: hash, Expiry: in.Expiry, Provider: provider}
	switch err := s.users.AddCard(ctx, userID, c); {
	case errors.Is(err, repo.ErrNotFound):
		return models.Card{}, ErrUserNotFound
	case errors.Is(err, repo.ErrDuplicate):
		return models.Card{}, ErrCardExists
	case err != nil:
		return models.Card{}, fmt.Errorf("add card: %w", err)
	}
	s.audit.record(ctx, "user", userID, "card_added", map[string]any{"card": c.Masked()})
	return c, nil
}

func (s *AccountService) RemoveCard(ctx context.Context, userID, number string) error {
	number = models.NormalizeCardNumber(number)
	err := s.users.RemoveCard(ctx, userID, number)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrCardNotFound
	}
	if err != nil {
		return err
	}
	s.audit.record(ctx, "user", userID, "card_removed", map[string]any{"card": models.Card{Number: number}.Masked()})
	return nil
}

// SetStatus freezes or reactivates a payer. Frozen payers cannot settle.
func (s *AccountService) SetStatus(ctx context.Context, userID string, status models.UserStatus) error {
	if status != models.UserActive && status != models.UserFrozen {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	err := s.users.UpdateStatus(ctx, userID, status)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	s.audit.record(ctx, "user", userID, "status_changed", map[string]any{"status": status})
	return nil
}

func (s *AccountService) ChangePIN(ctx context.Context, userID, pin string) error {
	hash, err := auth.HashPIN(pin)
	if errors.Is(err, auth.ErrWeakPIN) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return err
	}
	err = s.users.UpdatePINHash(ctx, userID, hash)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	s.audit.record(ctx, "user", userID, "pin_changed", nil)
	return nil
}

type NewMerchant struct {
	BusinessName string
	Email        string
	WebhookURL   string
}

// RegisterMerchant opens a merchant on the free plan with a zero balance.
func (s *AccountService) RegisterMerchant(ctx context.Context, in NewMerchant) (models.Merchant, error) {
	name := strings.TrimSpace(in.BusinessName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || !strings.Contains(email, "@") {
		return models.Merchant{}, fmt.Errorf("%w: business name and email are required", ErrInvalidInput)
	}
	m := models.Merchant{
		BusinessName:       name,
		Email:              email,
		CurrentPlan:        plans.DefaultPlan,
		SubscriptionStatus: models.SubscriptionActive,
		BillingCycle:       models.BillingMonthly,
		WebhookURL:         in.WebhookURL,
	}
	created, err := s.merchants.Create(ctx, m)
	if errors.Is(err, repo.ErrDuplicate) {
		return models.Merchant{}, ErrAccountExists
	}
	if err != nil {
		return models.Merchant{}, fmt.Errorf("create merchant: %w", err)
	}
	s.audit.record(ctx, "merchant", created.ID, "registered", nil)
	s.log.Info("merchant registered", "merchant_id", created.ID)
	return created, nil
}

func (s *AccountService) GetMerchant(ctx context.Context, id string) (models.Merchant, error) {
	m, err := s.merchants.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Merchant{}, ErrMerchantNotFound
	}
	return m, err
}

func (s *AccountService) SetWebhook(ctx context.Context, merchantID, url string) error {
	if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%w: webhook url must be http(s)", ErrInvalidInput)
	}
	err := s.merchants.UpdateWebhook(ctx, merchantID, url)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMerchantNotFound
	}
	return err
}
