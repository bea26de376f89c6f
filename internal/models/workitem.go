package models

import "time"

// QueueItem is a pending entry as the upstream queue reports it. Title and
// ArticleContent may be blank.
type QueueItem struct {
	ID             string
	Title          string
	ArticleContent string
}

// WorkItem is one article ready for classification
type WorkItem struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	ArticleContent string `json:"articleContent"`
}

// Text renders the item the way it is handed to the model
func (w WorkItem) Text() string {
	return "Title: " + w.Title + "\nArticleContent: " + w.ArticleContent
}

// BatchResult summarises one extraction batch
type BatchResult struct {
	BatchID        string `json:"batchId"`
	ProcessedCount int    `json:"processedCount"`
	SavedCount     int    `json:"savedCount"`

	SkippedNotThreat      int `json:"skippedNotThreat"`
	SkippedClassification int `json:"skippedClassification"`
	SkippedExtraction     int `json:"skippedExtraction"`
	SkippedFormat         int `json:"skippedFormat"`
	SkippedValidation     int `json:"skippedValidation"`
	SkippedDuplicate      int `json:"skippedDuplicate"`
	SkippedPersistence    int `json:"skippedPersistence"`

	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}
