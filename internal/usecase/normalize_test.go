package usecase

import (
	"testing"
	"time"

	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := map[string]int64{
		"1.234.567₫":            1234567,
		"1,234,567 VND":         1234567,
		" 99 000 đ ":            99000,
		"250000":                250000,
		"$1,299":                1299,
		"1\u00a0500\u00a0000₫": 1500000,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			got, err := ParsePrice(raw)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestParsePrice_Invalid(t *testing.T) {
	for _, raw := range []string{"", "₫", "liên hệ", "-100", "1+1", "99999999999999999999"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParsePrice(raw)
			require.ErrorIs(t, err, e.ErrInvalidPrice)
		})
	}
}

func TestParseRating(t *testing.T) {
	cases := map[string]float64{
		"4.5":     4.5,
		"4,5":     4.5,
		"4.5/5":   4.5,
		" 5 / 5 ": 5,
		"0":       0,
		"":        0,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			got, err := ParseRating(raw)
			require.NoError(t, err)
			require.InDelta(t, want, got, 1e-9)
		})
	}
}

func TestParseRating_Invalid(t *testing.T) {
	for _, raw := range []string{"5.1", "-1", "good", "NaN", "Inf"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseRating(raw)
			require.ErrorIs(t, err, e.ErrInvalidRate)
		})
	}
}

func TestParseReviewCount(t *testing.T) {
	cases := map[string]int64{
		"120":     120,
		"1.2K":    1200,
		"1,2k":    1200,
		"3M":      3000000,
		"1.234":   1234,
		"(15)":    15,
		"1.2345K": 1234,
		"":        0,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			got, err := ParseReviewCount(raw)
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestParseReviewCount_Invalid(t *testing.T) {
	for _, raw := range []string{"K", "12 reviews", "-3", "1.2.3K"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseReviewCount(raw)
			require.ErrorIs(t, err, e.ErrInvalidCount)
		})
	}
}

func TestParseCrawlTimestamp(t *testing.T) {
	got, err := ParseCrawlTimestamp("15032024_101530", time.UTC)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 15, 10, 15, 30, 0, time.UTC).Unix(), got)

	hcm := time.FixedZone("ICT", 7*3600)
	local, err := ParseCrawlTimestamp("15032024_101530", hcm)
	require.NoError(t, err)
	require.Equal(t, got-7*3600, local)

	_, err = ParseCrawlTimestamp("2024-03-15", time.UTC)
	require.ErrorIs(t, err, e.ErrInvalidTime)
}

func TestNormalizeProduct(t *testing.T) {
	msg := &RawProductMessage{
		ID:           " p1 ",
		Name:         "Áo thun nam",
		StoreURL:     "https://shop.vn/a",
		ImageURL:     "https://cdn.shop.vn/a.jpg",
		Price:        "1.234.567₫",
		Rating:       "4.5",
		ReviewsCount: "1.2K",
		Timestamp:    "15032024_101530",
	}

	p, err := NormalizeProduct(msg, time.UTC)
	require.NoError(t, err)
	require.Equal(t, "p1", p.ID)
	require.Equal(t, int64(1234567), p.Price)
	require.Equal(t, 4.5, p.Rating)
	require.Equal(t, int64(1200), p.ReviewCount)
}

func TestNormalizeProduct_Rejections(t *testing.T) {
	valid := func() *RawProductMessage {
		return &RawProductMessage{
			ID: "p1", Name: "n", ImageURL: "i", Price: "1", Rating: "1", ReviewsCount: "1", Timestamp: "15032024_101530",
		}
	}

	cases := map[string]func(m *RawProductMessage){
		"empty id":    func(m *RawProductMessage) { m.ID = "  " },
		"empty name":  func(m *RawProductMessage) { m.Name = "" },
		"no image":    func(m *RawProductMessage) { m.ImageURL = "" },
		"bad price":   func(m *RawProductMessage) { m.Price = "free" },
		"bad rating":  func(m *RawProductMessage) { m.Rating = "7" },
		"bad reviews": func(m *RawProductMessage) { m.ReviewsCount = "many" },
		"bad time":    func(m *RawProductMessage) { m.Timestamp = "yesterday" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := valid()
			mutate(m)
			_, err := NormalizeProduct(m, time.UTC)
			require.ErrorIs(t, err, e.ErrValidation)
		})
	}
}
