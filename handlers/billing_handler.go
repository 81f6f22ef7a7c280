package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Snoglet99/JobAgent/metrics"
	"github.com/Snoglet99/JobAgent/repository"
	"github.com/Snoglet99/JobAgent/service"
)

// BillingHandler handles checkout creation and payment confirmations
type BillingHandler struct {
	payments           *service.PaymentService
	ledger             *service.LedgerService
	profileRepo        repository.ProfileRepository
	creditsPerPurchase int
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(
	payments *service.PaymentService,
	ledger *service.LedgerService,
	profileRepo repository.ProfileRepository,
	creditsPerPurchase int,
) *BillingHandler {
	return &BillingHandler{
		payments:           payments,
		ledger:             ledger,
		profileRepo:        profileRepo,
		creditsPerPurchase: creditsPerPurchase,
	}
}

// CheckoutRequest represents the request body for creating a checkout session
type CheckoutRequest struct {
	Email string `json:"email" binding:"required"`
	Pack  string `json:"pack"`
}

// CreateCheckout handles POST /api/billing/checkout. The profile is marked
// pending before the redirect so the return flag can be matched against it.
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
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

	pack := service.CreditPack(req.Pack)
	if req.Pack == "" {
		pack = service.PackBulk
	}
	if _, err := service.CreditsForPack(pack); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNKNOWN_PACK",
				"message": "Unknown credit pack",
			},
		})
		return
	}

	ctx := c.Request.Context()

	if err := h.ledger.MarkPaymentPending(ctx, req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LEDGER_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	url, err := h.payments.CreateCheckoutSession(ctx, req.Email, pack)
	if err != nil {
		if errors.Is(err, service.ErrBillingNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "BILLING_NOT_CONFIGURED",
					"message": "Billing not configured",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CHECKOUT_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"url": url,
		},
	})
}

// ConfirmRedirect handles GET /api/billing/confirm?email=...&paid=1.
//
// This reproduces the hosted-page return flow: the paid=1 query flag is not
// authenticated in any way, so anyone who sets it on a profile with a
// pending payment receives the grant. The verified path is the webhook;
// every grant made here is logged as unverified.
func (h *BillingHandler) ConfirmRedirect(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_EMAIL",
				"message": "Email is required",
			},
		})
		return
	}

	if c.Query("paid") != "1" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_PAID",
				"message": "Payment not confirmed",
			},
		})
		return
	}

	ctx := c.Request.Context()

	profile, err := h.profileRepo.Load(ctx, email)
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

	if !profile.PendingPayment {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_PROCESSED",
				"message": "Payment already processed or invalid",
			},
		})
		return
	}

	log.Warn().Str("email", email).Msg("granting credits from unverified paid=1 redirect")

	profile, err = h.ledger.GrantCredits(ctx, email, h.creditsPerPurchase)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GRANT_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	metrics.CreditsGrantedTotal.WithLabelValues("redirect").Add(float64(h.creditsPerPurchase))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"credits_added":  h.creditsPerPurchase,
			"credit_balance": profile.CreditBalance,
		},
	})
}

// Webhook handles POST /api/billing/webhook with Stripe signature
// verification.
func (h *BillingHandler) Webhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_PAYLOAD",
				"message": "Invalid payload",
			},
		})
		return
	}

	confirmation, err := h.payments.VerifyWebhook(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, service.ErrBillingNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "BILLING_NOT_CONFIGURED",
					"message": "Webhook not configured",
				},
			})
			return
		}
		log.Error().Err(err).Msg("webhook verification failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SIGNATURE_FAILED",
				"message": "Signature verification failed",
			},
		})
		return
	}

	if confirmation == nil {
		// Ignored event type.
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	if _, err := h.ledger.GrantCredits(c.Request.Context(), confirmation.Email, confirmation.Credits); err != nil {
		log.Error().Err(err).Str("email", confirmation.Email).Msg("webhook credit grant failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GRANT_FAILED",
				"message": "Failed to grant credits",
			},
		})
		return
	}

	metrics.CreditsGrantedTotal.WithLabelValues("webhook").Add(float64(confirmation.Credits))

	c.JSON(http.StatusOK, gin.H{"success": true})
}
