package models

import "time"

// HistoryEntry represents one generated application in a user's history.
// History is append-only, newest first, with no deduplication.
type HistoryEntry struct {
	JobTitle         string    `json:"job_title"`
	Company          string    `json:"company"`
	GeneratedContent string    `json:"generated_content"`
	CreatedAt        time.Time `json:"created_at"`
}
