package adapters

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"apim-schema-import/internal/ports"
	"apim-schema-import/internal/types"
)

const defaultManifestStem = "upload-plan"

// ArtifactWriterAdapter persists the artifacts of a directory plan.
type ArtifactWriterAdapter struct {
	Dir string
}

func NewArtifactWriterAdapter(dir string) ArtifactWriterAdapter {
	return ArtifactWriterAdapter{Dir: dir}
}

// EnsureEmpty accepts a missing or empty output directory.
func (a ArtifactWriterAdapter) EnsureEmpty() error {
	if strings.TrimSpace(a.Dir) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	entries, err := os.ReadDir(a.Dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read output directory").
			WithCause(err)
	}
	if len(entries) > 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("output directory is not empty: " + a.Dir)
	}
	return nil
}

func (a ArtifactWriterAdapter) WriteSchema(name string, content []byte) error {
	if strings.TrimSpace(name) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifact name is empty")
	}
	path, err := a.ensurePath(name + ".xsd")
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg("artifact already written: " + name)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write artifact " + name).
			WithCause(err)
	}
	return nil
}

// WriteManifest writes the manifest in the given format and returns its
// path. An empty fileName uses upload-plan with the format's extension.
func (a ArtifactWriterAdapter) WriteManifest(manifest types.Manifest, format types.ManifestFormat, fileName string) (string, error) {
	data, err := encodeManifest(manifest, format)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(fileName) == "" {
		fileName = defaultManifestStem + "." + string(format)
	}
	path, err := a.ensurePath(fileName)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write manifest").
			WithCause(err)
	}
	return path, nil
}

func encodeManifest(manifest types.Manifest, format types.ManifestFormat) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case types.ManifestFormatJSON, "":
		data, err = json.MarshalIndent(manifest, "", "  ")
		data = append(data, '\n')
	case types.ManifestFormatYAML:
		data, err = yaml.Marshal(manifest)
	case types.ManifestFormatTOML:
		data, err = toml.Marshal(manifest)
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported manifest format: " + string(format))
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode manifest").
			WithCause(err)
	}
	return data, nil
}

func (a ArtifactWriterAdapter) ensurePath(filename string) (string, error) {
	if a.Dir == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is empty")
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	return filepath.Join(a.Dir, filename), nil
}

// DocumentFileAdapter writes a consolidated document to a file path.
type DocumentFileAdapter struct{}

func NewDocumentFileAdapter() DocumentFileAdapter {
	return DocumentFileAdapter{}
}

func (a DocumentFileAdapter) WriteDocument(path string, content []byte) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write document").
			WithCause(err)
	}
	return nil
}

var (
	_ ports.ArtifactWriterPort = ArtifactWriterAdapter{}
	_ ports.DocumentWriterPort = DocumentFileAdapter{}
)
