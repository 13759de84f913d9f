package usecase

import "context"

type ProductUC interface {
	GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
}

type SearchUC interface {
	SearchText(ctx context.Context, req *SearchReq) (*SearchRes, error)
	SearchImage(ctx context.Context, req *SearchReq) (*SearchRes, error)
	SearchMultimodal(ctx context.Context, req *SearchReq) (*SearchRes, error)
}

type IngestUC interface {
	Ingest(ctx context.Context, payload []byte) (IngestState, error)
	Stats() IngestStatsSnapshot
}
