package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"apim-schema-import/internal/adapters"
	"apim-schema-import/internal/types"
)

func fixtureDir(t *testing.T, name string) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", ".."))
	require.NoError(t, err)
	return filepath.Join(root, "fixtures", name)
}

// copyFixture copies a fixture directory so tests may write next to it.
func copyFixture(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.CopyFS(dir, os.DirFS(fixtureDir(t, name))))
	return dir
}

func quietService() Service {
	service := NewService()
	service.Events = adapters.NewEventLogAdapter(zerolog.Nop())
	return service
}

func TestConsolidateWSDLApp(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out", "service.wsdl")
	result, err := quietService().ConsolidateWSDL(t.Context(), WSDLRequest{
		Input:  filepath.Join(fixtureDir(t, "wsdl"), "service.wsdl"),
		Output: output,
	})
	require.NoError(t, err)
	if diff := cmp.Diff(output, result.Output); diff != "" {
		t.Fatalf("unexpected output path (-want +got):\n%s", diff)
	}

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(output))
	root := doc.Root()
	if diff := cmp.Diff("definitions", root.Tag); diff != "" {
		t.Fatalf("unexpected root (-want +got):\n%s", diff)
	}
	require.Empty(t, root.FindElements("./wsdl:import"))
	sections := root.FindElements("./wsdl:types")
	require.Len(t, sections, 1)
	var namespaces []string
	for _, schema := range sections[0].ChildElements() {
		namespaces = append(namespaces, schema.SelectAttrValue("targetNamespace", ""))
	}
	if diff := cmp.Diff([]string{"urn:example:data", "urn:example:service", "urn:example:extra"}, namespaces); diff != "" {
		t.Fatalf("unexpected schemas (-want +got):\n%s", diff)
	}
	content, err := os.ReadFile(output)
	require.NoError(t, err)
	require.NotContains(t, string(content), "schemaLocation")
	require.NotContains(t, string(content), "xsd:include")
}

func TestConsolidateWSDLDefaultOutput(t *testing.T) {
	dir := copyFixture(t, "wsdl")
	result, err := quietService().ConsolidateWSDL(t.Context(), WSDLRequest{
		Input: filepath.Join(dir, "service.wsdl"),
	})
	require.NoError(t, err)
	if diff := cmp.Diff(filepath.Join(dir, "service-WSDLProcessed.wsdl"), result.Output); diff != "" {
		t.Fatalf("unexpected output path (-want +got):\n%s", diff)
	}
	require.FileExists(t, result.Output)
}

func TestDefaultWSDLOutput(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     string
	}{
		{name: "path", location: "/srv/api/orders.wsdl", want: filepath.Join("/srv/api", "orders-WSDLProcessed.wsdl")},
		{name: "url", location: "https://host/api/orders.wsdl?wsdl", want: "orders-WSDLProcessed.wsdl"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, DefaultWSDLOutput(tt.location)); diff != "" {
				t.Fatalf("unexpected output (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConsolidateWSDLRejectsWSDL20(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.wsdl")
	_, err := quietService().ConsolidateWSDL(t.Context(), WSDLRequest{
		Input:  filepath.Join(fixtureDir(t, "wsdl20"), "service.wsdl"),
		Output: output,
	})
	var resolution *types.ResolutionError
	require.True(t, errors.As(err, &resolution))
	if diff := cmp.Diff(types.ErrorKindUnsupportedConstruct, resolution.Kind); diff != "" {
		t.Fatalf("unexpected kind (-want +got):\n%s", diff)
	}
	require.NoFileExists(t, output)
}

func TestConsolidateWSDLMissingInput(t *testing.T) {
	_, err := quietService().ConsolidateWSDL(t.Context(), WSDLRequest{
		Input:  filepath.Join(t.TempDir(), "absent.wsdl"),
		Output: filepath.Join(t.TempDir(), "out.wsdl"),
	})
	var resolution *types.ResolutionError
	require.True(t, errors.As(err, &resolution))
	if diff := cmp.Diff(types.ErrorKindFetchFailure, resolution.Kind); diff != "" {
		t.Fatalf("unexpected kind (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(errbuilder.CodeNotFound, errbuilder.CodeOf(resolution.Err)); diff != "" {
		t.Fatalf("unexpected cause code (-want +got):\n%s", diff)
	}
}

func TestPlanSchemasApp(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "plan")
	result, err := quietService().PlanSchemas(t.Context(), SchemaPlanRequest{
		InputDir:  fixtureDir(t, "xsd"),
		OutputDir: outputDir,
	})
	require.NoError(t, err)

	var names []string
	for _, artifact := range result.Artifacts {
		names = append(names, artifact.Name)
		require.FileExists(t, filepath.Join(outputDir, artifact.Name+".xsd"))
	}
	if diff := cmp.Diff([]string{"B", "C", "A"}, names); diff != "" {
		t.Fatalf("unexpected plan order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(filepath.Join(outputDir, "upload-plan.json"), result.ManifestPath); diff != "" {
		t.Fatalf("unexpected manifest path (-want +got):\n%s", diff)
	}

	a, err := os.ReadFile(filepath.Join(outputDir, "A.xsd"))
	require.NoError(t, err)
	require.Contains(t, string(a), `schemaLocation="/schemas/B"`)
	require.Contains(t, string(a), `schemaLocation="/schemas/C"`)
}

func TestPlanSchemasRelativeOutputAndFormat(t *testing.T) {
	dir := copyFixture(t, "xsd")
	result, err := quietService().PlanSchemas(t.Context(), SchemaPlanRequest{
		InputDir:       dir,
		OutputDir:      "out",
		ManifestFormat: "yml",
		SchemaPath:     "/apis/demo/schemas/",
	})
	require.NoError(t, err)
	if diff := cmp.Diff(filepath.Join(dir, "out"), result.OutputDir); diff != "" {
		t.Fatalf("unexpected output dir (-want +got):\n%s", diff)
	}
	require.FileExists(t, filepath.Join(dir, "out", "upload-plan.yaml"))
	c, err := os.ReadFile(filepath.Join(dir, "out", "C.xsd"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(c), `schemaLocation="/apis/demo/schemas/B"`), string(c))
}

func TestPlanSchemasFailures(t *testing.T) {
	nonEmpty := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(nonEmpty, "stale.xsd"), []byte("<x/>"), 0644))

	tests := []struct {
		name     string
		req      SchemaPlanRequest
		wantCode errbuilder.ErrCode
		wantKind types.ErrorKind
	}{
		{name: "missing input", req: SchemaPlanRequest{OutputDir: t.TempDir()}, wantCode: errbuilder.CodeInvalidArgument},
		{name: "missing output", req: SchemaPlanRequest{InputDir: fixtureDir(t, "xsd")}, wantCode: errbuilder.CodeInvalidArgument},
		{name: "bad format", req: SchemaPlanRequest{InputDir: fixtureDir(t, "xsd"), OutputDir: t.TempDir(), ManifestFormat: "xml"}, wantCode: errbuilder.CodeInvalidArgument},
		{name: "output not empty", req: SchemaPlanRequest{InputDir: fixtureDir(t, "xsd"), OutputDir: nonEmpty}, wantCode: errbuilder.CodeFailedPrecondition},
		{name: "no schemas", req: SchemaPlanRequest{InputDir: fixtureDir(t, "wsdl20"), OutputDir: filepath.Join(t.TempDir(), "x")}, wantCode: errbuilder.CodeNotFound},
		{name: "cycle", req: SchemaPlanRequest{InputDir: fixtureDir(t, "xsd-cycle"), OutputDir: filepath.Join(t.TempDir(), "x")}, wantKind: types.ErrorKindCyclicDependency},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietService().PlanSchemas(t.Context(), tt.req)
			require.Error(t, err)
			if tt.wantKind != "" {
				var resolution *types.ResolutionError
				require.True(t, errors.As(err, &resolution), err.Error())
				if diff := cmp.Diff(tt.wantKind, resolution.Kind); diff != "" {
					t.Fatalf("unexpected kind (-want +got):\n%s", diff)
				}
				return
			}
			if diff := cmp.Diff(tt.wantCode, errbuilder.CodeOf(err)); diff != "" {
				t.Fatalf("unexpected error code (-want +got):\n%s", diff)
			}
		})
	}
}
