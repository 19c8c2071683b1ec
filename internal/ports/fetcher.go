package ports

import (
	"context"

	"apim-schema-import/internal/types"
)

// DocumentFetcherPort reads the raw bytes behind a canonical location.
// Locations are absolute http(s) URLs, afs URLs (file://, mem://) or
// absolute filesystem paths.
type DocumentFetcherPort interface {
	// Fetch returns the document or an errbuilder error coded NotFound
	// (missing), Internal (network failure) or InvalidArgument (charset).
	Fetch(ctx context.Context, location string) (types.Document, error)
}
