package ports

import "context"

// SchemaSourcePort discovers the root schemas of a directory run.
type SchemaSourcePort interface {
	// ListSchemas returns the *.xsd files directly inside dir, sorted.
	ListSchemas(ctx context.Context, dir string) ([]string, error)
}
