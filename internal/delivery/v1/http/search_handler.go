package http

import (
	"net/http"

	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/DRSN-tech/product-search/pkg/logger"
)

const (
	maxSearchRequestSize = 20 << 20
	maxMemory            = 16 << 20
)

type SearchHandler struct {
	searchUsecase usecase.SearchUC
	logger        logger.Logger
}

func NewSearchHandler(searchUsecase usecase.SearchUC, logger logger.Logger) *SearchHandler {
	return &SearchHandler{searchUsecase: searchUsecase, logger: logger}
}

// searchText
//
//	@Summary		Текстовый поиск
//	@Description	Лексический поиск по названию товара
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string			true	"Поисковый запрос"
//	@Param			limit	query		int				false	"Размер выдачи"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	ErrorResponse	"Пустой запрос"
//	@Router			/search/text [get]
func (s *SearchHandler) searchText(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	res, err := s.searchUsecase.SearchText(r.Context(), usecase.NewSearchReq(r.URL.Query().Get("q"), nil, limit))
	if err != nil {
		s.logger.Warnf("text search: %s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, SearchResponse{Results: NewProductResponses(res.Products)})
}

// searchImage
//
//	@Summary		Поиск по изображению
//	@Description	Поиск визуально похожих товаров
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file			true	"Изображение"
//	@Param			limit	formData	int				false	"Размер выдачи"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	ErrorResponse	"Нет изображения или оно не декодируется"
//	@Router			/search/image [post]
func (s *SearchHandler) searchImage(w http.ResponseWriter, r *http.Request) {
	image, limit, ok := s.parseImageForm(w, r)
	if !ok {
		return
	}

	res, err := s.searchUsecase.SearchImage(r.Context(), usecase.NewSearchReq("", image, limit))
	if err != nil {
		s.logger.Warnf("image search: %s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, SearchResponse{Results: NewProductResponses(res.Products)})
}

// searchMultimodal
//
//	@Summary		Мультимодальный поиск
//	@Description	Объединяет лексических и визуальных кандидатов и переранжирует их по комбинированному вектору
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			q		formData	string			true	"Поисковый запрос"
//	@Param			file	formData	file			true	"Изображение"
//	@Param			limit	formData	int				false	"Размер выдачи"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Router			/search/multimodal [post]
func (s *SearchHandler) searchMultimodal(w http.ResponseWriter, r *http.Request) {
	image, limit, ok := s.parseImageForm(w, r)
	if !ok {
		return
	}

	res, err := s.searchUsecase.SearchMultimodal(r.Context(), usecase.NewSearchReq(r.FormValue("q"), image, limit))
	if err != nil {
		s.logger.Warnf("multimodal search: %s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, SearchResponse{Results: NewProductResponses(res.Products)})
}

func (s *SearchHandler) parseImageForm(w http.ResponseWriter, r *http.Request) ([]byte, int, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSearchRequestSize)

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		s.logger.Warnf("%d %s: %s", http.StatusBadRequest, err.Error(), r.Header.Get("Content-Type"))
		WriteError(w, err)
		return nil, 0, false
	}

	limit, err := parseLimit(r.FormValue("limit"))
	if err != nil {
		s.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return nil, 0, false
	}

	image, err := parseImage(r.MultipartForm)
	if err != nil {
		s.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return nil, 0, false
	}

	return image, limit, true
}
