package converter

// ProductInfoRedisModel JSON-представление товара в кэше.
type ProductInfoRedisModel struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	StoreURL     string  `json:"store_url"`
	ImageURL     string  `json:"image_url"`
	Price        int64   `json:"price"`
	Rating       float64 `json:"rating"`
	ReviewsCount int64   `json:"reviews_count"`
	LastUpdate   int64   `json:"last_update"`
}
