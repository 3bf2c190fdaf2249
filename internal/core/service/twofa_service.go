package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/api/metrics"
	"github.com/azisaba/azisaba-commander-api/internal/cache"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// TwoFAService implements ports.TwoFAService. Per-user state machine:
// unregistered -> registered -> unregistered; disable clears everything.
type TwoFAService struct {
	repo   ports.TwoFARepository
	caches *cache.Set
	bus    ports.InvalidationBus
	issuer string
	log    zerolog.Logger
}

var _ ports.TwoFAService = (*TwoFAService)(nil)

func NewTwoFAService(repo ports.TwoFARepository, caches *cache.Set, bus ports.InvalidationBus, issuer string, log zerolog.Logger) *TwoFAService {
	return &TwoFAService{repo: repo, caches: caches, bus: bus, issuer: issuer, log: log}
}

// Register enrolls a user: generates the TOTP secret, persists it together
// with exactly RecoveryCodeCount unused recovery codes, and returns the
// provisioning URL plus the plaintext codes. The codes are returned here
// exactly once and are never retrievable again.
func (s *TwoFAService) Register(ctx context.Context, userID int64, accountName string) (*domain.TwoFAEnrollment, error) {
	if _, err := s.repo.Secret(ctx, userID); err == nil {
		return nil, domain.ErrTwoFARegistered
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateSecret(ctx, userID, key.Secret()); err != nil {
		return nil, err
	}

	codes := make([]string, domain.RecoveryCodeCount)
	for i := range codes {
		codes[i], err = generateRecoveryCode()
		if err != nil {
			return nil, err
		}
	}
	if err := s.repo.CreateRecoveryCodes(ctx, userID, codes); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return &domain.TwoFAEnrollment{URL: key.URL(), RecoveryCodes: codes}, nil
}

// Verify checks a code against the user's 2FA state. A code of exactly
// RecoveryCodeLength characters is treated as a recovery code and consumed
// on success; anything else is validated as a TOTP value (30s step,
// default window). When no secret exists the result is the failOpen flag.
func (s *TwoFAService) Verify(ctx context.Context, userID int64, code string, failOpen bool) (bool, error) {
	secret, err := s.repo.Secret(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.TwoFAVerificationsTotal.WithLabelValues("absent", verdict(failOpen)).Inc()
		return failOpen, nil
	}
	if err != nil {
		return false, err
	}

	if len(code) == domain.RecoveryCodeLength {
		consumed, err := s.repo.ConsumeRecoveryCode(ctx, userID, code)
		if err != nil {
			return false, err
		}
		metrics.TwoFAVerificationsTotal.WithLabelValues("recovery", verdict(consumed)).Inc()
		return consumed, nil
	}

	ok := totp.Validate(code, secret)
	metrics.TwoFAVerificationsTotal.WithLabelValues("totp", verdict(ok)).Inc()
	return ok, nil
}

// Disable clears the user's 2FA state after a successful verification.
// The secret and the recovery codes are removed in one transaction; a
// partial failure leaves disable incomplete but retryable.
func (s *TwoFAService) Disable(ctx context.Context, userID int64, code string) error {
	ok, err := s.Verify(ctx, userID, code, false)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrTwoFACodeInvalid
	}
	if err := s.repo.DeleteAll(ctx, userID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// IsRegistered consults the local 2FA-registered cache.
func (s *TwoFAService) IsRegistered(userID int64) bool {
	return s.caches.TwoFA.Registered(userID)
}

func (s *TwoFAService) invalidate(ctx context.Context) {
	_ = s.caches.TwoFA.Refresh(ctx)
	_ = s.bus.Publish(ctx, ports.TopicTwoFA)
}

// generateRecoveryCode produces RecoveryCodeLength hex characters.
func generateRecoveryCode() (string, error) {
	buf := make([]byte, domain.RecoveryCodeLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func verdict(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
