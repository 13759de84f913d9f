package domain

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

// Product описывает денормализованные атрибуты товара
type Product struct {
	ID          string
	Name        string
	StoreURL    string
	ImageURL    string // после инжеста указывает на объект в хранилище изображений
	Price       int64  // Цена хранится в минимальных единицах валюты
	Rating      float64
	ReviewCount int64
	LastUpdate  int64 // unix seconds
}

func NewProduct(id, name, storeURL, imageURL string, price int64, rating float64, reviewCount, lastUpdate int64) *Product {
	return &Product{
		ID:          id,
		Name:        name,
		StoreURL:    storeURL,
		ImageURL:    imageURL,
		Price:       price,
		Rating:      rating,
		ReviewCount: reviewCount,
		LastUpdate:  lastUpdate,
	}
}

// ProductIDFromURL возвращает стабильный идентификатор товара по ссылке на магазин:
// md5(netloc + path без завершающих слэшей + длина path).
// netloc и path берутся из исходной строки без декодирования, поэтому
// percent-encoding и userinfo дают те же ID, что и у краулера.
func ProductIDFromURL(storeURL string) string {
	netloc, path := splitURL(strings.TrimSpace(storeURL))
	norm := netloc + strings.TrimRight(path, "/") + strconv.Itoa(len(path))
	sum := md5.Sum([]byte(norm))

	return hex.EncodeToString(sum[:])
}

// splitURL выделяет netloc и path из сырой ссылки. Query, fragment
// и параметры последнего сегмента (";v=1") отбрасываются.
func splitURL(raw string) (netloc, path string) {
	rest := raw
	scheme := ""
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		scheme = strings.ToLower(u.Scheme)
		rest = raw[len(u.Scheme)+1:]
	}

	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		netloc, rest = rest[:end], rest[end:]
	}

	if end := strings.IndexAny(rest, "?#"); end >= 0 {
		rest = rest[:end]
	}

	if scheme == "http" || scheme == "https" {
		if i := strings.IndexByte(rest[strings.LastIndexByte(rest, '/')+1:], ';'); i >= 0 {
			rest = rest[:strings.LastIndexByte(rest, '/')+1+i]
		}
	}

	return netloc, rest
}
