package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
)

// GenerationService turns structured job/profile inputs into application
// prose through the Gemini API. Objective extraction goes through the SDK
// client at low temperature; letter generation goes through the HTTP API
// with retry.
type GenerationService struct {
	geminiClient  *genai.Client
	apiKey        string
	generationAPI string
	httpClient    *http.Client
}

// GenerationServiceOption is a functional option for GenerationService
type GenerationServiceOption func(*GenerationService)

// GenerationWithGeminiClient sets the Gemini SDK client
func GenerationWithGeminiClient(client *genai.Client) GenerationServiceOption {
	return func(s *GenerationService) {
		s.geminiClient = client
	}
}

// GenerationWithAPIKey sets the Gemini API key for direct HTTP calls
func GenerationWithAPIKey(key string) GenerationServiceOption {
	return func(s *GenerationService) {
		s.apiKey = key
	}
}

// GenerationWithEndpoint overrides the generation endpoint
func GenerationWithEndpoint(url string) GenerationServiceOption {
	return func(s *GenerationService) {
		s.generationAPI = url
	}
}

// NewGenerationService creates a new generation service
func NewGenerationService(opts ...GenerationServiceOption) *GenerationService {
	s := &GenerationService{
		generationAPI: defaultGenerationAPI,
		httpClient:    &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	ErrGenerationFailed = errors.New("failed to generate content")
	ErrExtractionFailed = errors.New("failed to extract job objectives")
	ErrMissingJobAd     = errors.New("job ad text is empty")
)

const (
	defaultGenerationAPI = "https://generativelanguage.googleapis.com/v1beta/models/gemini-3-pro-preview:generateContent"
	extractionModel      = "gemini-3-pro-preview"
	maxRetries           = 3
	initialBackoff       = time.Second

	// Temperatures are fixed per call type.
	letterTemperature     = 0.65
	extractionTemperature = 0.3

	resumeMarker = "=== RESUME ==="
	letterMarker = "=== COVER LETTER ==="
)

// toneInstruction maps a tone label to its prompt guidance
var toneInstruction = map[string]string{
	"Visionary":    "Speak with ambitious energy and a future-focused, transformative lens.",
	"Fixer":        "Frame the candidate as a proven problem-solver who excels under pressure and uncertainty.",
	"Leader":       "Emphasize authority, strategic impact, and clear ownership of outcomes.",
	"Team Player":  "Highlight collaboration, emotional intelligence, and team-wide enablement.",
	"Entrepreneur": "Center on initiative, resilience, and an ability to build from zero.",
	"Default":      "Use a polished, persuasive tone grounded in competence and credibility.",
}

// JobObjectives is the structured extraction from a pasted job ad
type JobObjectives struct {
	CoreObjectives []string `json:"core_objectives"`
	KeyFocusAreas  []string `json:"key_focus_areas"`
	PainPoints     []string `json:"pain_points"`
	TargetMetrics  []string `json:"target_metrics"`
}

// ExtractJobObjectivesRequest represents a job-ad parsing request
type ExtractJobObjectivesRequest struct {
	JobTitle  string
	JobAdText string
}

// ExtractJobObjectivesResult represents the parsed objectives
type ExtractJobObjectivesResult struct {
	Objectives *JobObjectives
	Raw        string
}

// ExtractJobObjectives parses a job ad into structured objectives
func (s *GenerationService) ExtractJobObjectives(
	ctx context.Context,
	req ExtractJobObjectivesRequest,
) (*ExtractJobObjectivesResult, error) {
	if s.geminiClient == nil {
		return nil, errors.New("gemini client not set")
	}
	if strings.TrimSpace(req.JobAdText) == "" {
		return nil, ErrMissingJobAd
	}

	prompt := fmt.Sprintf(`You are a senior job analyst. Parse the following job title and job ad to extract structured objectives.

Return your output as JSON with the following fields:
- core_objectives: list of clear goals the role is meant to achieve
- key_focus_areas: main responsibilities or capability domains
- pain_points: inferred challenges the company or role is trying to solve
- target_metrics: any implied or explicit targets (financial, team, operational)

JOB TITLE: %s

JOB AD TEXT:
%s

Return only the JSON.`, req.JobTitle, req.JobAdText)

	model := s.geminiClient.GenerativeModel(extractionModel)
	model.SetTemperature(extractionTemperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	raw := collectParts(resp)
	if raw == "" {
		return nil, ErrExtractionFailed
	}

	objectives := &JobObjectives{}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), objectives); err != nil {
		// The model occasionally returns prose around the JSON; keep the raw
		// text so the caller can still feed it into generation.
		log.Warn().Err(err).Msg("job objectives were not valid JSON, passing through raw text")
		return &ExtractJobObjectivesResult{Raw: raw}, nil
	}

	return &ExtractJobObjectivesResult{Objectives: objectives, Raw: raw}, nil
}

// collectParts concatenates the text parts of a SDK response
func collectParts(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// stripCodeFence removes a surrounding markdown code fence if present
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// GenerateApplicationRequest represents a generation request
type GenerateApplicationRequest struct {
	JobTitle      string
	Company       string
	JobAdText     string
	JobObjectives string // free-form text or extracted JSON
	CVSummary     string
	ResumeBullets string
	Tone          string
	News          string // optional headline context
	Strategy      string // optional strategy/annual-report context
	IncludeResume bool
}

// GenerateApplicationResult represents generated prose. Resume is empty
// unless the request asked for a combined output.
type GenerateApplicationResult struct {
	CoverLetter string
	Resume      string
}

// GenerateApplication produces a cover letter, and optionally a tailored
// resume section, in one call.
func (s *GenerationService) GenerateApplication(
	ctx context.Context,
	req GenerateApplicationRequest,
) (*GenerateApplicationResult, error) {
	if strings.TrimSpace(req.JobAdText) == "" {
		return nil, ErrMissingJobAd
	}

	prompt := s.buildApplicationPrompt(req, "", "")
	content, err := s.callGenerationAPI(ctx, prompt, letterTemperature)
	if err != nil {
		return nil, err
	}

	return splitSections(content, req.IncludeResume), nil
}

// RefineApplicationRequest represents a refinement request against a
// previous generation.
type RefineApplicationRequest struct {
	GenerateApplicationRequest
	PreviousContent string
	Feedback        string
}

// RefineApplication regenerates the application taking user feedback into
// account.
func (s *GenerationService) RefineApplication(
	ctx context.Context,
	req RefineApplicationRequest,
) (*GenerateApplicationResult, error) {
	if strings.TrimSpace(req.PreviousContent) == "" {
		return nil, errors.New("previous content is empty")
	}

	prompt := s.buildApplicationPrompt(req.GenerateApplicationRequest, req.PreviousContent, req.Feedback)
	content, err := s.callGenerationAPI(ctx, prompt, letterTemperature)
	if err != nil {
		return nil, err
	}

	return splitSections(content, req.IncludeResume), nil
}

// buildApplicationPrompt assembles the generation prompt. previous and
// feedback are empty for a base generation.
func (s *GenerationService) buildApplicationPrompt(req GenerateApplicationRequest, previous, feedback string) string {
	tone, ok := toneInstruction[req.Tone]
	if !ok {
		tone = toneInstruction["Default"]
	}

	var b strings.Builder
	b.WriteString(`You are a world-class job application writer. Be strategic, persuasive, and honest.

You optimize for two outcomes:

1. The applicant is invited to the next stage.
2. The output is truthful and aligned to the applicant's actual strengths.

--- CONTEXT ---
`)
	fmt.Fprintf(&b, "JOB TITLE: %s\n", req.JobTitle)
	fmt.Fprintf(&b, "COMPANY: %s\n\n", req.Company)
	fmt.Fprintf(&b, "JOB OBJECTIVES (parsed from ad):\n%s\n\n", req.JobObjectives)
	fmt.Fprintf(&b, "JOB AD TEXT:\n%s\n\n", req.JobAdText)
	fmt.Fprintf(&b, "CANDIDATE PROFILE SUMMARY:\n%s\n\n", req.CVSummary)
	fmt.Fprintf(&b, "RESUME BULLETS:\n%s\n\n", req.ResumeBullets)
	fmt.Fprintf(&b, "STRATEGIC CONTEXT (recent news, vision, or media):\n%s\n%s\n\n", req.News, req.Strategy)
	fmt.Fprintf(&b, "TONE GUIDE: %s\n\n", tone)

	b.WriteString(`--- INSTRUCTIONS ---
Write a concise, persuasive cover letter that:

- Directly addresses the company's stated objectives using the applicant's real achievements.
- Leads with quantifiable results from the resume (e.g. cost savings, growth, efficiency).
- Avoids fluff: no cliches, no long intros, no vague praise.
- Uses relevant job ad phrasing naturally to improve ATS pass-through.
- Reflects the company's strategic direction (from media/news) to show insight.
- Never exaggerates or fabricates skills. Stay true to the provided resume bullets and summary.

Do not include greetings or sign-offs. Output only the body of the cover letter.
`)

	if req.IncludeResume {
		fmt.Fprintf(&b, `
Also produce a tailored resume summary for this role, built strictly from the resume bullets above.
Output both sections, each preceded by its marker on its own line:
%s
%s
`, resumeMarker, letterMarker)
	}

	if previous != "" {
		fmt.Fprintf(&b, `
--- PREVIOUS DRAFT ---
%s

--- APPLICANT FEEDBACK ---
%s

Revise the previous draft according to the feedback. Keep everything that the feedback does not ask to change.
`, previous, feedback)
	}

	return b.String()
}

// splitSections separates a combined output into resume and cover-letter
// sections. Without markers the whole output is the cover letter.
func splitSections(content string, includeResume bool) *GenerateApplicationResult {
	result := &GenerateApplicationResult{CoverLetter: strings.TrimSpace(content)}
	if !includeResume {
		return result
	}

	resumeIdx := strings.Index(content, resumeMarker)
	letterIdx := strings.Index(content, letterMarker)
	if resumeIdx < 0 || letterIdx < 0 || letterIdx < resumeIdx {
		return result
	}

	result.Resume = strings.TrimSpace(content[resumeIdx+len(resumeMarker) : letterIdx])
	result.CoverLetter = strings.TrimSpace(content[letterIdx+len(letterMarker):])
	return result
}

// callGenerationAPI calls the Gemini generation API directly via HTTP with
// retry and exponential backoff.
func (s *GenerationService) callGenerationAPI(ctx context.Context, prompt string, temperature float64) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("gemini API key not set")
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature": temperature,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var content string
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		content, err = s.doGenerationRequest(ctx, jsonData)
		if err == nil && content != "" {
			return content, nil
		}

		if err != nil && !isRetryable(err) {
			return "", err
		}
	}

	if err != nil {
		return "", fmt.Errorf("failed to generate content after %d attempts: %w", maxRetries, err)
	}
	return "", ErrGenerationFailed
}

type apiStatusError struct {
	status int
	body   string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.status, e.body)
}

func isRetryable(err error) bool {
	var statusErr *apiStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status != http.StatusBadRequest && statusErr.status != http.StatusUnauthorized
	}
	return true
}

func (s *GenerationService) doGenerationRequest(ctx context.Context, jsonData []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.generationAPI, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("body", truncate(string(bodyBytes), 500)).Msg("generation API error")
		return "", &apiStatusError{status: resp.StatusCode, body: truncate(string(bodyBytes), 500)}
	}

	var apiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
	}

	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("API blocked prompt: %s", apiResp.PromptFeedback.BlockReason)
	}

	if len(apiResp.Candidates) == 0 {
		return "", fmt.Errorf("API returned no candidates")
	}

	var responseText strings.Builder
	for i, candidate := range apiResp.Candidates {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			log.Warn().Int("candidate", i).Str("finish_reason", candidate.FinishReason).Msg("candidate finished abnormally")
		}
		for _, part := range candidate.Content.Parts {
			responseText.WriteString(part.Text)
		}
	}

	result := strings.TrimSpace(responseText.String())
	if result == "" {
		return "", fmt.Errorf("API returned empty content")
	}

	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
