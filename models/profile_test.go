package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{
			name:  "simple address",
			email: "user@example.com",
			want:  "user_at_example_dot_com",
		},
		{
			name:  "uppercase is folded",
			email: "User@Example.COM",
			want:  "user_at_example_dot_com",
		},
		{
			name:  "surrounding whitespace is trimmed",
			email: "  user@example.com  ",
			want:  "user_at_example_dot_com",
		},
		{
			name:  "plus tag becomes underscore",
			email: "user+tag@example.com",
			want:  "user_tag_at_example_dot_com",
		},
		{
			name:  "hyphen becomes underscore",
			email: "first-last@example.com",
			want:  "first_last_at_example_dot_com",
		},
		{
			name:  "empty input",
			email: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEmail(tt.email))
		})
	}
}

func TestNormalizeEmailCollision(t *testing.T) {
	// Distinct addresses can map to the same token; the store treats them as
	// one identity.
	a := NormalizeEmail("a.b@example.com")
	b := NormalizeEmail("a_b@example.com")
	assert.Equal(t, a, b)
}

func TestNewUserProfile(t *testing.T) {
	p := NewUserProfile("user@example.com")

	assert.Equal(t, "user@example.com", p.Email)
	assert.Equal(t, 0, p.UsageCount)
	assert.Equal(t, 0, p.CreditBalance)
	assert.False(t, p.PendingPayment)
	assert.False(t, p.PaidAccess)
	assert.Equal(t, 0, p.EditRounds)
	assert.Equal(t, SubscriptionFree, p.SubscriptionStatus)
	assert.Equal(t, ToneDefault, p.Tone)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestEnsureDefaults(t *testing.T) {
	p := &UserProfile{Email: "user@example.com"}
	p.EnsureDefaults()

	assert.Equal(t, ToneDefault, p.Tone)
	assert.Equal(t, "professional", p.PreferredTone)
	assert.Equal(t, "Leader", p.ProfileVariant)
	assert.Equal(t, SubscriptionFree, p.SubscriptionStatus)
}

func TestEnsureDefaultsKeepsExistingValues(t *testing.T) {
	p := &UserProfile{
		Email:              "user@example.com",
		Tone:               ToneVisionary,
		PreferredTone:      "bold",
		ProfileVariant:     "Fixer",
		SubscriptionStatus: SubscriptionActive,
	}
	p.EnsureDefaults()

	assert.Equal(t, ToneVisionary, p.Tone)
	assert.Equal(t, "bold", p.PreferredTone)
	assert.Equal(t, "Fixer", p.ProfileVariant)
	assert.Equal(t, SubscriptionActive, p.SubscriptionStatus)
}
