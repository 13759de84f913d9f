package domain

import "github.com/google/uuid"

// PriceHistoryEntry неизменяемая запись истории цены товара
type PriceHistoryEntry struct {
	RecordID  string
	ProductID string
	Price     int64
	Timestamp int64
}

// ReviewHistoryEntry неизменяемая запись истории отзывов товара
type ReviewHistoryEntry struct {
	RecordID    string
	ProductID   string
	Rating      float64
	ReviewCount int64
	Timestamp   int64
}

// NewPriceHistoryEntry создаёт запись со свежим случайным идентификатором.
func NewPriceHistoryEntry(p *Product) *PriceHistoryEntry {
	return &PriceHistoryEntry{
		RecordID:  uuid.NewString(),
		ProductID: p.ID,
		Price:     p.Price,
		Timestamp: p.LastUpdate,
	}
}

// NewReviewHistoryEntry создаёт запись со свежим случайным идентификатором.
func NewReviewHistoryEntry(p *Product) *ReviewHistoryEntry {
	return &ReviewHistoryEntry{
		RecordID:    uuid.NewString(),
		ProductID:   p.ID,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		Timestamp:   p.LastUpdate,
	}
}
