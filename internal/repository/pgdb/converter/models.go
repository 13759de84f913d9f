package converter

import "time"

// ProductModel представляет запись таблицы products в PostgreSQL.
type ProductModel struct {
	ID           string     `db:"id"`
	Name         string     `db:"name"`
	StoreURL     string     `db:"store_url"`
	ImageURL     string     `db:"image_url"`
	Price        int64      `db:"price"`
	Rating       float64    `db:"rating"`
	ReviewsCount int64      `db:"reviews_count"`
	LastUpdate   int64      `db:"last_update"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at"`
}

// PriceHistoryModel представляет запись таблицы product_price_history.
type PriceHistoryModel struct {
	ID        string `db:"id"`
	ProductID string `db:"product_id"`
	Price     int64  `db:"price"`
	Timestamp int64  `db:"ts"`
}

// ReviewHistoryModel представляет запись таблицы product_review_history.
type ReviewHistoryModel struct {
	ID           string  `db:"id"`
	ProductID    string  `db:"product_id"`
	Rating       float64 `db:"rating"`
	ReviewsCount int64   `db:"reviews_count"`
	Timestamp    int64   `db:"ts"`
}
