package app

import (
	"github.com/rs/zerolog/log"

	"apim-schema-import/internal/adapters"
	"apim-schema-import/internal/ports"
)

type Service struct {
	Fetcher        ports.DocumentFetcherPort
	Schemas        ports.SchemaSourcePort
	Documents      ports.DocumentWriterPort
	Events         ports.EventLogPort
	ArtifactWriter func(dir string) ports.ArtifactWriterPort
}

func NewService() Service {
	return NewServiceWithTimeout(0)
}

// NewServiceWithTimeout bounds each HTTP fetch by timeoutSec seconds; zero
// disables the client timeout.
func NewServiceWithTimeout(timeoutSec int) Service {
	return Service{
		Fetcher:   adapters.NewDocumentFetcherAdapter(timeoutSec),
		Schemas:   adapters.NewSchemaDirectoryAdapter(),
		Documents: adapters.NewDocumentFileAdapter(),
		Events:    adapters.NewEventLogAdapter(log.Logger),
		ArtifactWriter: func(dir string) ports.ArtifactWriterPort {
			return adapters.NewArtifactWriterAdapter(dir)
		},
	}
}
