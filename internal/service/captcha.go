package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"resource-site-backend/internal/captcha"

	"github.com/google/uuid"
)

const captchaLength = 6

var captchaAlphabets = map[string]string{
	"digit": "0123456789",
	"alpha": "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
}

// Challenge is an issued captcha. Rendering it as an image is left to the client.
type Challenge struct {
	ID        string `json:"captcha_id"`
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	ExpiresIn int    `json:"expires_in"`
}

// CaptchaService issues and verifies single-use challenges.
type CaptchaService struct {
	store captcha.Store
	ttl   time.Duration
}

// NewCaptchaService creates a captcha service.
func NewCaptchaService(store captcha.Store, ttl time.Duration) *CaptchaService {
	return &CaptchaService{store: store, ttl: ttl}
}

// Issue creates a challenge of captchaType ("digit" or "alpha").
func (s *CaptchaService) Issue(ctx context.Context, captchaType string) (*Challenge, error) {
	alphabet, ok := captchaAlphabets[captchaType]
	if !ok {
		return nil, fmt.Errorf("unknown captcha type %q: %w", captchaType, ErrValidation)
	}

	code, err := randomCode(alphabet, captchaLength)
	if err != nil {
		return nil, fmt.Errorf("generate captcha: %w", err)
	}

	id := uuid.NewString()
	if err := s.store.Put(ctx, id, code, s.ttl); err != nil {
		return nil, fmt.Errorf("store captcha: %w", err)
	}
	return &Challenge{
		ID:        id,
		Type:      captchaType,
		Challenge: code,
		ExpiresIn: int(s.ttl.Seconds()),
	}, nil
}

// Verify consumes the challenge id. A challenge can be verified once, right or wrong.
func (s *CaptchaService) Verify(ctx context.Context, id, code string) error {
	if id == "" || code == "" {
		return ErrInvalidCaptcha
	}
	want, err := s.store.Take(ctx, id)
	if err != nil {
		if errors.Is(err, captcha.ErrNotFound) {
			return ErrInvalidCaptcha
		}
		return fmt.Errorf("load captcha: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(code), want) {
		return ErrInvalidCaptcha
	}
	return nil
}

func randomCode(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}
