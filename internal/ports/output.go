package ports

import "apim-schema-import/internal/types"

type ArtifactWriterPort interface {
	EnsureEmpty() error
	WriteSchema(name string, content []byte) error
	WriteManifest(manifest types.Manifest, format types.ManifestFormat, fileName string) (string, error)
}

type DocumentWriterPort interface {
	WriteDocument(path string, content []byte) error
}
