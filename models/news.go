package models

// NewsArticle represents one filtered headline returned by the news lookup
type NewsArticle struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}
