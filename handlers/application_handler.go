package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Snoglet99/JobAgent/metrics"
	"github.com/Snoglet99/JobAgent/models"
	"github.com/Snoglet99/JobAgent/repository"
	"github.com/Snoglet99/JobAgent/service"
)

// ApplicationHandler handles generation, refinement, job-ad parsing and news
// lookups.
type ApplicationHandler struct {
	ledger      *service.LedgerService
	generator   *service.GenerationService
	news        *service.NewsService
	profileRepo repository.ProfileRepository
	historyRepo repository.HistoryRepository
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(
	ledger *service.LedgerService,
	generator *service.GenerationService,
	news *service.NewsService,
	profileRepo repository.ProfileRepository,
	historyRepo repository.HistoryRepository,
) *ApplicationHandler {
	return &ApplicationHandler{
		ledger:      ledger,
		generator:   generator,
		news:        news,
		profileRepo: profileRepo,
		historyRepo: historyRepo,
	}
}

// GenerateRequest represents the request body for a generation
type GenerateRequest struct {
	Email         string `json:"email" binding:"required"`
	JobTitle      string `json:"job_title"`
	Company       string `json:"company"`
	JobAdText     string `json:"job_ad_text"`
	JobObjectives string `json:"job_objectives"`
	Tone          string `json:"tone"`
	News          string `json:"news"`
	Strategy      string `json:"strategy"`
	FetchNews     bool   `json:"fetch_news"`
	IncludeResume bool   `json:"include_resume"`
}

// Generate handles POST /api/applications/generate
func (h *ApplicationHandler) Generate(c *gin.Context) {
	var req GenerateRequest
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

	// Missing input recovers locally with a warning and no state change.
	if strings.TrimSpace(req.JobAdText) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMPTY_JOB_AD",
				"message": "Please paste a job ad before generating a cover letter",
			},
		})
		return
	}
	if strings.TrimSpace(req.Company) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMPTY_COMPANY",
				"message": "Company name is required",
			},
		})
		return
	}

	ctx := c.Request.Context()

	profile, err := h.profileRepo.Load(ctx, req.Email)
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

	if !h.ledger.CanAct(profile) {
		metrics.QuotaBlockedTotal.Inc()
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_CREDITS",
				"message": "You've used all free applications and have no remaining credits",
			},
		})
		return
	}

	// Extract structured objectives unless the caller already supplied them.
	objectives := req.JobObjectives
	if objectives == "" {
		extracted, err := h.generator.ExtractJobObjectives(ctx, service.ExtractJobObjectivesRequest{
			JobTitle:  req.JobTitle,
			JobAdText: req.JobAdText,
		})
		if err != nil {
			log.Warn().Err(err).Msg("objective extraction failed, generating without it")
		} else {
			objectives = extracted.Raw
		}
	}

	// Optional company-news context.
	newsText := req.News
	if newsText == "" && req.FetchNews && h.news != nil {
		articles, err := h.news.FetchCompanyNews(ctx, req.Company)
		if err != nil {
			log.Warn().Err(err).Str("company", req.Company).Msg("news lookup failed, generating without it")
		} else {
			newsText = service.FormatArticles(articles)
		}
	}

	tone := req.Tone
	if tone == "" {
		tone = profile.Tone
	}

	result, err := h.generator.GenerateApplication(ctx, service.GenerateApplicationRequest{
		JobTitle:      req.JobTitle,
		Company:       req.Company,
		JobAdText:     req.JobAdText,
		JobObjectives: objectives,
		CVSummary:     profile.CVSummary,
		ResumeBullets: profile.ResumeBullets,
		Tone:          tone,
		News:          newsText,
		Strategy:      req.Strategy,
		IncludeResume: req.IncludeResume,
	})
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GENERATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	// The metered unit is consumed only after generation succeeded.
	consumed, profile, err := h.ledger.Consume(ctx, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LEDGER_FAILED",
				"message": err.Error(),
			},
		})
		return
	}
	if !consumed {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_CREDITS",
				"message": "You've used all free applications and have no remaining credits",
			},
		})
		return
	}

	if err := h.historyRepo.Append(ctx, req.Email, models.HistoryEntry{
		JobTitle:         req.JobTitle,
		Company:          req.Company,
		GeneratedContent: result.CoverLetter,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to append history entry")
	}

	metrics.GenerationsTotal.WithLabelValues("completed").Inc()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"cover_letter":   result.CoverLetter,
			"resume":         result.Resume,
			"job_objectives": objectives,
			"news":           newsText,
			"usage_count":    profile.UsageCount,
			"credit_balance": profile.CreditBalance,
			"free_remaining": h.ledger.FreeRemaining(profile),
		},
	})
}

// RefineRequest represents the request body for a refinement round
type RefineRequest struct {
	GenerateRequest
	PreviousContent string `json:"previous_content" binding:"required"`
	Feedback        string `json:"feedback" binding:"required"`
}

// Refine handles POST /api/applications/refine
func (h *ApplicationHandler) Refine(c *gin.Context) {
	var req RefineRequest
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

	ctx := c.Request.Context()

	profile, err := h.profileRepo.Load(ctx, req.Email)
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

	permitted, _, err := h.ledger.BeginRefinement(ctx, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LEDGER_FAILED",
				"message": err.Error(),
			},
		})
		return
	}
	if !permitted {
		metrics.RefinementsTotal.WithLabelValues("blocked").Inc()
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EDIT_LIMIT_REACHED",
				"message": "Refinement rounds exhausted; generate a new application to continue editing",
			},
		})
		return
	}

	tone := req.Tone
	if tone == "" {
		tone = profile.Tone
	}

	result, err := h.generator.RefineApplication(ctx, service.RefineApplicationRequest{
		GenerateApplicationRequest: service.GenerateApplicationRequest{
			JobTitle:      req.JobTitle,
			Company:       req.Company,
			JobAdText:     req.JobAdText,
			JobObjectives: req.JobObjectives,
			CVSummary:     profile.CVSummary,
			ResumeBullets: profile.ResumeBullets,
			Tone:          tone,
			News:          req.News,
			Strategy:      req.Strategy,
			IncludeResume: req.IncludeResume,
		},
		PreviousContent: req.PreviousContent,
		Feedback:        req.Feedback,
	})
	if err != nil {
		metrics.RefinementsTotal.WithLabelValues("failed").Inc()
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GENERATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	// The refinement round is spent only after the model produced output.
	if _, err := h.ledger.CommitRefinement(ctx, req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LEDGER_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.historyRepo.Append(ctx, req.Email, models.HistoryEntry{
		JobTitle:         req.JobTitle,
		Company:          req.Company,
		GeneratedContent: result.CoverLetter,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to append history entry")
	}

	metrics.RefinementsTotal.WithLabelValues("completed").Inc()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"cover_letter": result.CoverLetter,
			"resume":       result.Resume,
		},
	})
}

// ParseJobAdRequest represents the request body for job-ad parsing
type ParseJobAdRequest struct {
	JobTitle  string `json:"job_title"`
	JobAdText string `json:"job_ad_text" binding:"required"`
}

// ParseJobAd handles POST /api/job-ads/parse
func (h *ApplicationHandler) ParseJobAd(c *gin.Context) {
	var req ParseJobAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Paste the full job description or summary, not just the job title",
			},
		})
		return
	}

	result, err := h.generator.ExtractJobObjectives(c.Request.Context(), service.ExtractJobObjectivesRequest{
		JobTitle:  req.JobTitle,
		JobAdText: req.JobAdText,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EXTRACTION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"objectives": result.Objectives,
			"raw":        result.Raw,
		},
	})
}

// GetNews handles GET /api/news?company=
func (h *ApplicationHandler) GetNews(c *gin.Context) {
	company := strings.TrimSpace(c.Query("company"))
	if company == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMPTY_COMPANY",
				"message": "Company name required",
			},
		})
		return
	}

	articles, err := h.news.FetchCompanyNews(c.Request.Context(), company)
	if err != nil {
		if errors.Is(err, service.ErrNoRelevantArticles) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"data": gin.H{
					"articles": []models.NewsArticle{},
					"message":  "No relevant articles found",
				},
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NEWS_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"articles": articles,
			"company":  service.NormalizeCompanyName(company),
		},
	})
}
