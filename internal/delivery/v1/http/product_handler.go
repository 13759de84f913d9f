package http

import (
	"net/http"

	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

// getProducts
//
//	@Summary		Информация о товарах
//	@Description	Возвращает атрибуты товаров по списку идентификаторов
//	@Tags			products
//	@Produce		json
//	@Param			ids	query		string			true	"Идентификаторы через запятую"
//	@Success		200	{object}	ProductsResponse
//	@Failure		400	{object}	ErrorResponse	"Пустой список"
//	@Router			/products [get]
func (p *ProductHandler) getProducts(w http.ResponseWriter, r *http.Request) {
	ids := parseIDs(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		p.logger.Warnf("%d %s", http.StatusBadRequest, e.ErrNoProducts.Error())
		WriteError(w, e.ErrNoProducts)
		return
	}

	res, err := p.productUsecase.GetProductsInfo(r.Context(), usecase.NewGetProductsReq(ids))
	if err != nil {
		p.logger.Errorf(err, "get products")
		WriteError(w, err)
		return
	}

	notFound := res.NotFoundProducts
	if notFound == nil {
		notFound = []string{}
	}

	WriteSuccess(w, http.StatusOK, ProductsResponse{
		Products: NewProductResponses(res.Products),
		NotFound: notFound,
	})
}
