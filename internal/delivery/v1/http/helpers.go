package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/product-search/internal/infrastructure/imaging"
	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/jimlawless/whereami"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ProductResponse товар в ответе API
type ProductResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	StoreURL    string  `json:"store_url"`
	ImageURL    string  `json:"image_url"`
	Price       int64   `json:"price"`
	Rating      float64 `json:"rating"`
	ReviewCount int64   `json:"review_count"`
	LastUpdate  int64   `json:"last_update"`
}

// SearchResponse результат поиска в порядке ранжирования
type SearchResponse struct {
	Results []ProductResponse `json:"results"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
	NotFound []string          `json:"not_found"`
}

type IngestStatsResponse struct {
	Received  int64 `json:"received"`
	Committed int64 `json:"committed"`
	Rejected  int64 `json:"rejected"`
	Failed    int64 `json:"failed"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func NewProductResponse(p usecase.ProductInfo) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		StoreURL:    p.StoreURL,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		LastUpdate:  p.LastUpdate,
	}
}

func NewProductResponses(products []usecase.ProductInfo) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, NewProductResponse(p))
	}
	return res
}

func ToHTTPResponse(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error()
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrMissingFields):
		return http.StatusBadRequest, e.ErrMissingFields.Error()
	case errors.Is(err, e.ErrInvalidQuery):
		return http.StatusBadRequest, e.ErrInvalidQuery.Error()
	case errors.Is(err, e.ErrNoImages):
		return http.StatusBadRequest, e.ErrNoImages.Error()
	case errors.Is(err, e.ErrDecode):
		return http.StatusBadRequest, e.ErrDecode.Error()
	case errors.Is(err, e.ErrNoProducts):
		return http.StatusBadRequest, e.ErrNoProducts.Error()
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// parseLimit читает необязательный limit; отсутствие означает лимит по умолчанию.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, e.Wrap("limit "+raw, e.ErrStatusBadRequest)
	}
	return limit, nil
}

// parseIDs разбирает список идентификаторов через запятую.
func parseIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return e.Join("parse multipart form", e.ErrStatusBadRequest, err)
	}
	return nil
}

// parseImage читает единственный файл запроса из поля file.
func parseImage(form *multipart.Form) ([]byte, error) {
	const maxFileSize = 15 << 20

	files := form.File["file"]
	if len(files) == 0 {
		return nil, e.ErrNoImages
	}

	data, err := readFile(files[0], maxFileSize)
	if err != nil {
		return nil, err
	}

	// недекодируемое изображение отклоняется до обращения к модели
	if err := imaging.Validate(data); err != nil {
		return nil, e.Wrap(files[0].Filename, err)
	}

	return data, nil
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, e.ErrInternalServerError
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return nil, e.ErrInternalServerError
	}
	if int64(len(data)) > maxSize {
		return nil, e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}
	if len(data) == 0 {
		return nil, e.Wrap(fh.Filename, e.ErrNoImages)
	}

	return data, nil
}
