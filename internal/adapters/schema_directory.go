package adapters

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/viant/afs"

	"apim-schema-import/internal/ports"
)

// SchemaDirectoryAdapter lists the root schemas of a directory run. Plain
// directories yield filesystem paths; afs URLs (mem://, file://) yield URLs.
type SchemaDirectoryAdapter struct {
	FS afs.Service
}

func NewSchemaDirectoryAdapter() SchemaDirectoryAdapter {
	return SchemaDirectoryAdapter{FS: afs.New()}
}

func (a SchemaDirectoryAdapter) ListSchemas(ctx context.Context, dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("schema directory is empty")
	}
	fs := a.FS
	if fs == nil {
		fs = afs.New()
	}
	exists, err := fs.Exists(ctx, dir)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to check schema directory").
			WithCause(err)
	}
	if !exists {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("schema directory not found: " + dir)
	}
	objects, err := fs.List(ctx, dir)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to list schema directory").
			WithCause(err)
	}
	isURL := strings.Contains(dir, "://")
	var schemas []string
	for _, object := range objects {
		if object.IsDir() || !isSchemaFile(object.Name()) {
			continue
		}
		if isURL {
			schemas = append(schemas, object.URL())
			continue
		}
		schemas = append(schemas, filepath.Join(dir, object.Name()))
	}
	sort.Strings(schemas)
	return schemas, nil
}

func isSchemaFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(path.Ext(name), ".xsd")
}

var _ ports.SchemaSourcePort = SchemaDirectoryAdapter{}
