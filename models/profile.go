package models

import (
	"strings"
	"time"
	"unicode"
)

// SubscriptionStatus represents a user's subscription tier
type SubscriptionStatus string

const (
	SubscriptionFree      SubscriptionStatus = "free"
	SubscriptionPayPerUse SubscriptionStatus = "pay_per_use"
	SubscriptionActive    SubscriptionStatus = "subscribed"
)

// Tone labels accepted by the generator. The ledger treats these as opaque.
const (
	ToneDefault      = "Default"
	ToneVisionary    = "Visionary"
	ToneFixer        = "Fixer"
	ToneLeader       = "Leader"
	ToneTeamPlayer   = "Team Player"
	ToneEntrepreneur = "Entrepreneur"
)

// UserProfile represents a user record, keyed by email identity.
// It carries both presentation preferences and the usage/credit counters
// the ledger operates on.
type UserProfile struct {
	Email string `json:"email"`

	// Metering state
	UsageCount     int  `json:"usage_count"`
	CreditBalance  int  `json:"credit_balance"`
	PendingPayment bool `json:"pending_payment"`
	PaidAccess     bool `json:"paid_access"`
	EditRounds     int  `json:"edit_rounds"`

	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`

	// Presentation preferences
	Tone           string `json:"tone"`
	PreferredTone  string `json:"preferred_tone"`
	ProfileVariant string `json:"profile_variant"`

	// Free-text profile fields consumed only by the generator
	CVSummary     string `json:"cv_summary"`
	ResumeBullets string `json:"resume_bullets"`
	Resume        string `json:"resume"`
	Goal          string `json:"goal"`
	Industries    string `json:"industries"`
	Roles         string `json:"roles"`
	Companies     string `json:"companies"`

	// Version is the optimistic-concurrency counter used by the Postgres
	// backend. The blob backend stores it but never checks it.
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserProfile returns a default-valued profile for an email identity.
func NewUserProfile(email string) *UserProfile {
	now := time.Now().UTC()
	return &UserProfile{
		Email:              email,
		Tone:               ToneDefault,
		PreferredTone:      "professional",
		ProfileVariant:     "Leader",
		SubscriptionStatus: SubscriptionFree,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// EnsureDefaults fills zero-valued preference fields on records written by
// older revisions that did not carry them.
func (p *UserProfile) EnsureDefaults() {
	if p.Tone == "" {
		p.Tone = ToneDefault
	}
	if p.PreferredTone == "" {
		p.PreferredTone = "professional"
	}
	if p.ProfileVariant == "" {
		p.ProfileVariant = "Leader"
	}
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = SubscriptionFree
	}
}

// NormalizeEmail transforms an email address into a filesystem-safe storage
// token: "@" becomes "_at_", "." becomes "_dot_", and any remaining
// non-alphanumeric rune becomes "_". Two addresses that normalize to the same
// token share a record; there is no further uniqueness check.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	email = strings.ReplaceAll(email, "@", "_at_")
	email = strings.ReplaceAll(email, ".", "_dot_")

	var b strings.Builder
	for _, r := range email {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
