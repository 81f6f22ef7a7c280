package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Snoglet99/JobAgent/models"
	"github.com/Snoglet99/JobAgent/repository"
	"github.com/Snoglet99/JobAgent/service"
)

// ProfileHandler handles HTTP requests for user profiles and history
type ProfileHandler struct {
	profileRepo repository.ProfileRepository
	historyRepo repository.HistoryRepository
	ledger      *service.LedgerService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(
	profileRepo repository.ProfileRepository,
	historyRepo repository.HistoryRepository,
	ledger *service.LedgerService,
) *ProfileHandler {
	return &ProfileHandler{
		profileRepo: profileRepo,
		historyRepo: historyRepo,
		ledger:      ledger,
	}
}

func emailParam(c *gin.Context) (string, bool) {
	email := strings.TrimSpace(c.Param("email"))
	if email == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_EMAIL",
				"message": "A valid email address is required",
			},
		})
		return "", false
	}
	return email, true
}

// GetProfile handles GET /api/profiles/:email
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	email, ok := emailParam(c)
	if !ok {
		return
	}

	profile, err := h.profileRepo.Load(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LOAD_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
	})
}

// UpdateProfileRequest represents the editable profile fields. Counters and
// payment flags are owned by the ledger and cannot be set here.
type UpdateProfileRequest struct {
	Tone               *string `json:"tone"`
	PreferredTone      *string `json:"preferred_tone"`
	ProfileVariant     *string `json:"profile_variant"`
	SubscriptionStatus *string `json:"subscription_status"`
	CVSummary          *string `json:"cv_summary"`
	ResumeBullets      *string `json:"resume_bullets"`
	Resume             *string `json:"resume"`
	Goal               *string `json:"goal"`
	Industries         *string `json:"industries"`
	Roles              *string `json:"roles"`
	Companies          *string `json:"companies"`
}

// UpdateProfile handles PUT /api/profiles/:email
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	email, ok := emailParam(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	if req.SubscriptionStatus != nil {
		switch models.SubscriptionStatus(*req.SubscriptionStatus) {
		case models.SubscriptionFree, models.SubscriptionPayPerUse, models.SubscriptionActive:
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_SUBSCRIPTION",
					"message": "Unknown subscription tier",
				},
			})
			return
		}
	}

	profile, err := h.profileRepo.Load(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LOAD_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyString(&profile.Tone, req.Tone)
	applyString(&profile.PreferredTone, req.PreferredTone)
	applyString(&profile.ProfileVariant, req.ProfileVariant)
	applyString(&profile.CVSummary, req.CVSummary)
	applyString(&profile.ResumeBullets, req.ResumeBullets)
	applyString(&profile.Resume, req.Resume)
	applyString(&profile.Goal, req.Goal)
	applyString(&profile.Industries, req.Industries)
	applyString(&profile.Roles, req.Roles)
	applyString(&profile.Companies, req.Companies)
	if req.SubscriptionStatus != nil {
		profile.SubscriptionStatus = models.SubscriptionStatus(*req.SubscriptionStatus)
	}

	if err := h.profileRepo.Save(c.Request.Context(), email, profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SAVE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
	})
}

// GetUsage handles GET /api/profiles/:email/usage
func (h *ProfileHandler) GetUsage(c *gin.Context) {
	email, ok := emailParam(c)
	if !ok {
		return
	}

	profile, err := h.profileRepo.Load(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LOAD_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"usage_count":         profile.UsageCount,
			"free_remaining":      h.ledger.FreeRemaining(profile),
			"credit_balance":      profile.CreditBalance,
			"paid_access":         profile.PaidAccess,
			"edit_rounds":         profile.EditRounds,
			"pending_payment":     profile.PendingPayment,
			"subscription_status": profile.SubscriptionStatus,
			"can_act":             h.ledger.CanAct(profile),
		},
	})
}

// GetHistory handles GET /api/profiles/:email/history
func (h *ProfileHandler) GetHistory(c *gin.Context) {
	email, ok := emailParam(c)
	if !ok {
		return
	}

	history, err := h.historyRepo.List(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LOAD_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    history,
	})
}
