package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Snoglet99/JobAgent/metrics"
	"github.com/Snoglet99/JobAgent/models"
	"github.com/Snoglet99/JobAgent/repository"
)

// LedgerService owns every usage/credit state transition. Counters are never
// mutated outside this service; callers go through CanAct, Consume,
// GrantCredits and BeginRefinement.
type LedgerService struct {
	profileRepo   repository.ProfileRepository
	freeLimit     int
	maxEditRounds int
}

// LedgerServiceOption is a functional option for LedgerService
type LedgerServiceOption func(*LedgerService)

// LedgerWithProfileRepository sets the profile repository
func LedgerWithProfileRepository(repo repository.ProfileRepository) LedgerServiceOption {
	return func(s *LedgerService) {
		s.profileRepo = repo
	}
}

// LedgerWithFreeLimit sets the free generation allotment
func LedgerWithFreeLimit(limit int) LedgerServiceOption {
	return func(s *LedgerService) {
		s.freeLimit = limit
	}
}

// LedgerWithMaxEditRounds sets the refinement bound per generation cycle
func LedgerWithMaxEditRounds(rounds int) LedgerServiceOption {
	return func(s *LedgerService) {
		s.maxEditRounds = rounds
	}
}

// NewLedgerService creates a new usage ledger
func NewLedgerService(opts ...LedgerServiceOption) *LedgerService {
	s := &LedgerService{
		freeLimit:     3,
		maxEditRounds: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var ErrProfileRepoNotSet = errors.New("profile repository not set")

// CanAct reports whether a metered action is currently permitted for the
// profile: within the free allotment, holding credits or paid access, or on
// a subscription that bypasses metering.
func (s *LedgerService) CanAct(profile *models.UserProfile) bool {
	if profile == nil {
		return false
	}
	if profile.SubscriptionStatus == models.SubscriptionActive {
		return true
	}
	return profile.UsageCount < s.freeLimit ||
		profile.CreditBalance > 0 ||
		profile.PaidAccess
}

// Consume spends one unit of access for a generation and persists the
// updated profile. Inside the free allotment the free counter moves; past it
// a purchased credit is decremented (clamped at zero), then the single-use
// paid access flag is spent. A new generation cycle starts, so edit rounds
// reset. Returns false without mutation when nothing is available.
func (s *LedgerService) Consume(ctx context.Context, email string) (bool, *models.UserProfile, error) {
	if s.profileRepo == nil {
		return false, nil, ErrProfileRepoNotSet
	}

	profile, err := s.profileRepo.Load(ctx, email)
	if err != nil {
		return false, nil, err
	}

	if !s.CanAct(profile) {
		metrics.QuotaBlockedTotal.Inc()
		return false, profile, nil
	}

	if profile.SubscriptionStatus == models.SubscriptionActive {
		// Subscribed users bypass metering; only the cycle state moves.
		profile.EditRounds = 0
		if err := s.profileRepo.Save(ctx, email, profile); err != nil {
			return false, nil, err
		}
		return true, profile, nil
	}

	switch {
	case profile.UsageCount < s.freeLimit:
		profile.UsageCount++
	case profile.CreditBalance > 0:
		profile.CreditBalance--
		if profile.CreditBalance < 0 {
			profile.CreditBalance = 0
		}
	default:
		profile.PaidAccess = false
	}
	profile.EditRounds = 0

	if err := s.profileRepo.Save(ctx, email, profile); err != nil {
		return false, nil, err
	}

	log.Debug().
		Str("email", email).
		Int("usage_count", profile.UsageCount).
		Int("credit_balance", profile.CreditBalance).
		Msg("consumed generation unit")

	return true, profile, nil
}

// GrantCredits adds purchased credits to the profile, restores paid access,
// clears the pending-payment flag and starts a fresh generation cycle.
func (s *LedgerService) GrantCredits(ctx context.Context, email string, amount int) (*models.UserProfile, error) {
	if s.profileRepo == nil {
		return nil, ErrProfileRepoNotSet
	}
	if amount < 0 {
		amount = 0
	}

	profile, err := s.profileRepo.Load(ctx, email)
	if err != nil {
		return nil, err
	}

	profile.CreditBalance += amount
	profile.PendingPayment = false
	profile.PaidAccess = true
	profile.EditRounds = 0

	if err := s.profileRepo.Save(ctx, email, profile); err != nil {
		return nil, err
	}

	log.Info().
		Str("email", email).
		Int("amount", amount).
		Int("credit_balance", profile.CreditBalance).
		Msg("credits granted")

	return profile, nil
}

// MarkPaymentPending records that a checkout session was created for the
// user but not yet confirmed.
func (s *LedgerService) MarkPaymentPending(ctx context.Context, email string) error {
	if s.profileRepo == nil {
		return ErrProfileRepoNotSet
	}

	profile, err := s.profileRepo.Load(ctx, email)
	if err != nil {
		return err
	}

	profile.PendingPayment = true
	return s.profileRepo.Save(ctx, email, profile)
}

// BeginRefinement reports whether another refinement round is open in the
// current generation cycle. Once the rounds are exhausted the call fails and
// revokes paid access, forcing another unit of access before further edits.
// The round itself is spent by CommitRefinement once content was produced.
func (s *LedgerService) BeginRefinement(ctx context.Context, email string) (bool, *models.UserProfile, error) {
	if s.profileRepo == nil {
		return false, nil, ErrProfileRepoNotSet
	}

	profile, err := s.profileRepo.Load(ctx, email)
	if err != nil {
		return false, nil, err
	}

	if profile.EditRounds >= s.maxEditRounds {
		profile.PaidAccess = false
		if err := s.profileRepo.Save(ctx, email, profile); err != nil {
			return false, nil, err
		}
		return false, profile, nil
	}

	return true, profile, nil
}

// CommitRefinement records a completed refinement round against the current
// generation cycle and persists the updated profile.
func (s *LedgerService) CommitRefinement(ctx context.Context, email string) (*models.UserProfile, error) {
	if s.profileRepo == nil {
		return nil, ErrProfileRepoNotSet
	}

	profile, err := s.profileRepo.Load(ctx, email)
	if err != nil {
		return nil, err
	}

	profile.EditRounds++
	if err := s.profileRepo.Save(ctx, email, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// FreeRemaining reports how many free generations the profile has left
func (s *LedgerService) FreeRemaining(profile *models.UserProfile) int {
	remaining := s.freeLimit - profile.UsageCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
