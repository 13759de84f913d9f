package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// Ошибки входных данных инжеста (не ретраятся, сообщение отбрасывается)
	ErrValidation   = fmt.Errorf("validation error")
	ErrEmptyID      = fmt.Errorf("product id is required")
	ErrInvalidPrice = fmt.Errorf("invalid price")
	ErrInvalidRate  = fmt.Errorf("invalid rating")
	ErrInvalidCount = fmt.Errorf("invalid reviews count")
	ErrInvalidTime  = fmt.Errorf("invalid timestamp")
	ErrDecode       = fmt.Errorf("image decode error")

	// Временные ошибки (ретраятся через повторную доставку)
	ErrTransientIO      = fmt.Errorf("transient io error")
	ErrStoreUnavailable = fmt.Errorf("store unavailable")
	ErrModel            = fmt.Errorf("model inference error")

	// Внутренние ошибки с векторами
	ErrEmptyVectors      = fmt.Errorf("empty vectors")
	ErrZeroVector        = fmt.Errorf("zero-magnitude vector")
	ErrDimensionMismatch = fmt.Errorf("vector dimension mismatch")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrInvalidQuery         = fmt.Errorf("invalid search query")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrMissingFields        = fmt.Errorf("missing required fields")
	ErrNoImages             = fmt.Errorf("no image provided")
	ErrFileTooLarge         = fmt.Errorf("file too large")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrNoProducts           = fmt.Errorf("no product ids provided")

	// 500
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Join оборачивает ошибку err, дополнительно помечая её сентинелом kind,
// чтобы errors.Is срабатывал на обе ошибки.
func Join(msg string, kind error, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
