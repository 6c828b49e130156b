package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klya-ai/klya-api/internal/keygen"
	"github.com/klya-ai/klya-api/internal/models"
)

// Reason is the outcome of verifying a presented secret.
type Reason string

const (
	Accepted    Reason = "accepted"
	InvalidKey  Reason = "invalid_key"
	InactiveKey Reason = "inactive_key"
	ExpiredKey  Reason = "expired_key"
	// Timeout and Unavailable report infrastructure trouble, not bad credentials.
	Timeout     Reason = "timeout"
	Unavailable Reason = "unavailable"
)

// Verification is the result of Verify. Key is set only when Reason is Accepted.
type Verification struct {
	Reason Reason
	Key    *models.APIKey
}

func (v Verification) Accepted() bool {
	return v.Reason == Accepted
}

// KeyLookup is the slice of the key store the verifier uses.
type KeyLookup interface {
	FindByDigest(ctx context.Context, digest string) (*models.APIKey, error)
	UpdateUsage(ctx context.Context, id uuid.UUID, at time.Time) error
}

type OwnerResolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Verifier struct {
	keys    KeyLookup
	owners  OwnerResolver
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewVerifier(keys KeyLookup, owners OwnerResolver, timeout time.Duration, log *slog.Logger) *Verifier {
	return &Verifier{
		keys:    keys,
		owners:  owners,
		timeout: timeout,
		now:     time.Now,
		log:     log,
	}
}

// Verify checks a raw secret. On acceptance it stamps usage on the key
// (best-effort) and returns the key with its owner attached.
func (v *Verifier) Verify(ctx context.Context, secret string) Verification {
	if !strings.HasPrefix(secret, keygen.Prefix) {
		return Verification{Reason: InvalidKey}
	}
	digest := keygen.Digest(secret)

	lookupCtx, cancel := v.bound(ctx)
	defer cancel()

	apiKey, err := v.keys.FindByDigest(lookupCtx, digest)
	if err != nil {
		return v.failure(lookupCtx, "lookup", err)
	}
	if apiKey == nil {
		return Verification{Reason: InvalidKey}
	}

	now := v.now()
	if !apiKey.IsActive {
		return Verification{Reason: InactiveKey}
	}
	if apiKey.IsExpired(now) {
		return Verification{Reason: ExpiredKey}
	}

	if v.owners != nil {
		owner, err := v.owners.Resolve(lookupCtx, apiKey.OwnerID)
		if err != nil {
			return v.failure(lookupCtx, "owner", err)
		}
		if owner == nil {
			v.log.Warn("api_key_owner_missing", "key_id", apiKey.ID.String(), "owner_id", apiKey.OwnerID.String())
			return Verification{Reason: InvalidKey}
		}
		apiKey.Owner = owner
	}

	v.stampUsage(ctx, apiKey, now)

	return Verification{Reason: Accepted, Key: apiKey}
}

// stampUsage records the verification. Failures are logged, never returned:
// a verified key proceeds even if the counter did not persist.
func (v *Verifier) stampUsage(ctx context.Context, apiKey *models.APIKey, at time.Time) {
	stampCtx, cancel := v.bound(context.WithoutCancel(ctx))
	defer cancel()

	if err := v.keys.UpdateUsage(stampCtx, apiKey.ID, at); err != nil {
		v.log.Warn("api_key_usage_update_failed",
			"key_id", apiKey.ID.String(),
			"error", err.Error(),
		)
		return
	}

	stamped := at
	apiKey.LastUsedAt = &stamped
	apiKey.UsageCount++
}

func (v *Verifier) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.timeout)
}

func (v *Verifier) failure(ctx context.Context, stage string, err error) Verification {
	reason := Unavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = Timeout
	}

	v.log.Error("api_key_verification_failed",
		"stage", stage,
		"reason", string(reason),
		"error", err.Error(),
	)
	return Verification{Reason: reason}
}
