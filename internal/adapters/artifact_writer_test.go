package adapters

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"apim-schema-import/internal/types"
)

func sampleManifest() types.Manifest {
	return types.Manifest{Artifacts: []types.ManifestEntry{
		{Name: "B", Source: "B.xsd", Location: "/s/B.xsd", Rank: 0},
		{Name: "A", Source: "A.xsd", Location: "/s/A.xsd", Rank: 1},
	}}
}

func TestArtifactWriterManifestFormats(t *testing.T) {
	tests := []struct {
		name     string
		format   types.ManifestFormat
		fileName string
		wantFile string
		decode   func([]byte, *types.Manifest) error
	}{
		{name: "json", format: types.ManifestFormatJSON, fileName: "upload-plan.json", wantFile: "upload-plan.json", decode: func(data []byte, m *types.Manifest) error { return json.Unmarshal(data, m) }},
		{name: "yaml default name", format: types.ManifestFormatYAML, wantFile: "upload-plan.yaml", decode: func(data []byte, m *types.Manifest) error { return yaml.Unmarshal(data, m) }},
		{name: "toml", format: types.ManifestFormatTOML, fileName: "plan.toml", wantFile: "plan.toml", decode: func(data []byte, m *types.Manifest) error { return toml.Unmarshal(data, m) }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path, err := NewArtifactWriterAdapter(dir).WriteManifest(sampleManifest(), tt.format, tt.fileName)
			require.NoError(t, err)
			if diff := cmp.Diff(filepath.Join(dir, tt.wantFile), path); diff != "" {
				t.Fatalf("unexpected manifest path (-want +got):\n%s", diff)
			}
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			var got types.Manifest
			require.NoError(t, tt.decode(data, &got))
			if diff := cmp.Diff(sampleManifest(), got); diff != "" {
				t.Fatalf("unexpected manifest (-want +got):\n%s", diff)
			}
		})
	}
}

func TestArtifactWriterRejectsUnknownFormat(t *testing.T) {
	_, err := NewArtifactWriterAdapter(t.TempDir()).WriteManifest(sampleManifest(), types.ManifestFormat("xml"), "")
	require.Error(t, err)
	if diff := cmp.Diff(errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err)); diff != "" {
		t.Fatalf("unexpected error code (-want +got):\n%s", diff)
	}
}

func TestArtifactWriterSchemas(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	writer := NewArtifactWriterAdapter(dir)
	require.NoError(t, writer.EnsureEmpty())

	require.NoError(t, writer.WriteSchema("common", []byte("<xs:schema/>")))
	data, err := os.ReadFile(filepath.Join(dir, "common.xsd"))
	require.NoError(t, err)
	if diff := cmp.Diff("<xs:schema/>", string(data)); diff != "" {
		t.Fatalf("unexpected schema content (-want +got):\n%s", diff)
	}

	err = writer.WriteSchema("common", []byte("<xs:schema/>"))
	require.Error(t, err)
	if diff := cmp.Diff(errbuilder.CodeAlreadyExists, errbuilder.CodeOf(err)); diff != "" {
		t.Fatalf("unexpected error code (-want +got):\n%s", diff)
	}

	err = writer.EnsureEmpty()
	require.Error(t, err)
	if diff := cmp.Diff(errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err)); diff != "" {
		t.Fatalf("unexpected error code (-want +got):\n%s", diff)
	}
}

func TestDocumentFileAdapterCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "service-WSDLProcessed.wsdl")
	require.NoError(t, NewDocumentFileAdapter().WriteDocument(path, []byte("<definitions/>")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff("<definitions/>", string(data)); diff != "" {
		t.Fatalf("unexpected document (-want +got):\n%s", diff)
	}

	err = NewDocumentFileAdapter().WriteDocument("", nil)
	require.Error(t, err)
	if diff := cmp.Diff(errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err)); diff != "" {
		t.Fatalf("unexpected error code (-want +got):\n%s", diff)
	}
}
