package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/shopspring/decimal"
)

// crawlTimeLayout формат метки времени краулера: DDMMYYYY_HHMMSS
const crawlTimeLayout = "02012006_150405"

const maxRating = 5.0

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// NormalizeProduct превращает сырую запись краулера в доменный товар.
// Любая ошибка помечена e.ErrValidation: такая запись никогда не станет корректной.
func NormalizeProduct(msg *RawProductMessage, loc *time.Location) (*domain.Product, error) {
	id := strings.TrimSpace(msg.ID)
	if id == "" {
		return nil, e.Join("id", e.ErrValidation, e.ErrEmptyID)
	}

	name := strings.TrimSpace(msg.Name)
	if name == "" {
		return nil, e.Join("name", e.ErrValidation, e.ErrMissingFields)
	}

	imageURL := strings.TrimSpace(msg.ImageURL)
	if imageURL == "" {
		return nil, e.Join("image_url", e.ErrValidation, e.ErrMissingFields)
	}

	price, err := ParsePrice(msg.Price)
	if err != nil {
		return nil, e.Join("price", e.ErrValidation, err)
	}

	rating, err := ParseRating(msg.Rating)
	if err != nil {
		return nil, e.Join("rating", e.ErrValidation, err)
	}

	reviews, err := ParseReviewCount(msg.ReviewsCount)
	if err != nil {
		return nil, e.Join("reviews_count", e.ErrValidation, err)
	}

	ts, err := ParseCrawlTimestamp(msg.Timestamp, loc)
	if err != nil {
		return nil, e.Join("timestamp", e.ErrValidation, err)
	}

	return domain.NewProduct(id, name, strings.TrimSpace(msg.StoreURL), imageURL, price, rating, reviews, ts), nil
}

// ParsePrice извлекает цену в минимальных единицах из строки вида "1.234.567₫".
// Символы валют, буквенные коды валют, пробелы и разделители разрядов отбрасываются.
func ParsePrice(raw string) (int64, error) {
	var digits strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '.' || r == ',' || unicode.IsSpace(r):
		case unicode.Is(unicode.Sc, r) || unicode.IsLetter(r):
		default:
			return 0, fmt.Errorf("%w: unexpected %q in %q", e.ErrInvalidPrice, r, raw)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("%w: no digits in %q", e.ErrInvalidPrice, raw)
	}

	d, err := decimal.NewFromString(digits.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", e.ErrInvalidPrice, err)
	}
	if d.GreaterThan(maxInt64) {
		return 0, fmt.Errorf("%w: %q overflows", e.ErrInvalidPrice, raw)
	}

	return d.IntPart(), nil
}

// ParseRating разбирает рейтинг: "4.5", "4,5" и "4.5/5" дают 4.5.
// Пустая строка означает товар без оценок.
func ParseRating(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Replace(s, ",", ".", 1)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", e.ErrInvalidRate, raw)
	}
	if v < 0 || v > maxRating {
		return 0, fmt.Errorf("%w: %v out of [0, %v]", e.ErrInvalidRate, v, maxRating)
	}

	return v, nil
}

// ParseReviewCount разбирает число отзывов. Суффиксы K и M раскрываются
// ("1.2K" = 1200, "3M" = 3000000), дробная часть после раскрытия отбрасывается.
// Без суффикса точки, запятые и пробелы считаются разделителями разрядов.
func ParseReviewCount(raw string) (int64, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	s = strings.Trim(s, "()")
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'K', 'k':
		multiplier = 1_000
		s = s[:len(s)-1]
	case 'M', 'm':
		multiplier = 1_000_000
		s = s[:len(s)-1]
	}

	if multiplier == 1 {
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
	} else {
		s = strings.Replace(s, ",", ".", 1)
	}

	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }) {
		return 0, fmt.Errorf("%w: %q", e.ErrInvalidCount, raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", e.ErrInvalidCount, raw)
	}
	d = d.Mul(decimal.NewFromInt(multiplier)).Truncate(0)
	if d.GreaterThan(maxInt64) {
		return 0, fmt.Errorf("%w: %q overflows", e.ErrInvalidCount, raw)
	}

	return d.IntPart(), nil
}

// ParseCrawlTimestamp переводит метку краулера DDMMYYYY_HHMMSS в unix-секунды.
func ParseCrawlTimestamp(raw string, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(crawlTimeLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", e.ErrInvalidTime, raw)
	}

	return t.Unix(), nil
}
