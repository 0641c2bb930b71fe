package domain

import (
	"context"
)

// VisionService identifies a food product from image bytes. Implementations
// must not return caller-visible errors; upstream failures are absorbed into
// degraded results with lowered confidence.
type VisionService interface {
	IdentifyFromImage(ctx context.Context, image []byte, filename string) *VisionResult
}

// ReasoningService produces a qualitative health analysis for a product.
// Like the vision service it always returns a populated response, falling
// back to fixed degraded tiers on parse or call failure.
type ReasoningService interface {
	AnalyzeProduct(ctx context.Context, req AnalysisRequest) *AnalysisResponse
}

// CatalogService looks up products in an external nutrition catalog. A miss
// is (nil, nil), not an error; errors mean the catalog itself was unreachable
// or the input was malformed.
type CatalogService interface {
	LookupByBarcode(ctx context.Context, barcode string) (*CatalogEntry, error)
	LookupByText(ctx context.Context, query string) (*CatalogEntry, error)
}

// ScanRepository persists scan results. GetByID returns (nil, nil) when no
// result exists for the id.
type ScanRepository interface {
	Save(ctx context.Context, result *ScanResult) error
	GetByID(ctx context.Context, id string) (*ScanResult, error)
}

// ScanService is the resolution pipeline contract exposed to the transport.
type ScanService interface {
	ScanBarcode(ctx context.Context, userID, barcode, language string) (*ScanResult, error)
	ScanText(ctx context.Context, userID, query, brand, language string) (*ScanResult, error)
	ScanImage(ctx context.Context, userID string, image []byte, filename, language string) (*ScanResult, error)
	GetScan(ctx context.Context, id string) (*ScanResult, error)
}
