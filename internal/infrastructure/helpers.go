package infrastructure

import (
	"net/http"
	"strings"

	"github.com/DRSN-tech/product-search/pkg/e"
)

// GetExtensionFromMIME возвращает расширение файла по MIME-типу изображения.
// Для неподдерживаемых типов возвращает "bin" и e.ErrUnsupportedMediaType.
func GetExtensionFromMIME(mime string) (string, error) {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	case "image/gif":
		return "gif", nil
	case "image/bmp", "image/x-ms-bmp":
		return "bmp", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}

// DetectImageMIME определяет MIME-тип по содержимому; заголовок используется,
// только если по байтам тип определить не удалось.
func DetectImageMIME(data []byte, header string) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") || header == "" {
		return sniffed
	}
	return header
}
