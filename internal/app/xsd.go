package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"apim-schema-import/internal/core"
	"apim-schema-import/internal/types"
)

// PlanSchemas resolves every schema in a directory and writes one artifact
// per reachable document plus an upload manifest. Nothing is written
// unless the whole run succeeds.
func (s Service) PlanSchemas(ctx context.Context, req SchemaPlanRequest) (SchemaPlanResult, error) {
	inputDir := strings.TrimSpace(req.InputDir)
	if inputDir == "" {
		return SchemaPlanResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("input directory is required")
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		return SchemaPlanResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output directory is required")
	}
	format, err := ParseManifestFormat(req.ManifestFormat)
	if err != nil {
		return SchemaPlanResult{}, err
	}

	locator := core.NewLocator(req.BaseDir)
	inputDir, err = locator.Canonical(inputDir)
	if err != nil {
		return SchemaPlanResult{}, err
	}
	if !filepath.IsAbs(outputDir) && !strings.Contains(inputDir, "://") {
		outputDir = filepath.Join(inputDir, outputDir)
	}
	writer := s.ArtifactWriter(outputDir)
	if err := writer.EnsureEmpty(); err != nil {
		return SchemaPlanResult{}, err
	}

	roots, err := s.Schemas.ListSchemas(ctx, inputDir)
	if err != nil {
		return SchemaPlanResult{}, err
	}
	if len(roots) == 0 {
		return SchemaPlanResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no schemas found in " + inputDir)
	}
	s.Events.Informational("DiscoveredSchemas", inputDir)

	resolved, err := core.NewImportGraphResolver(s.Fetcher, s.Events, locator).ResolveAll(ctx, roots)
	if err != nil {
		return SchemaPlanResult{}, err
	}
	plan, err := core.NewOutputPlanner(req.SchemaPath, s.Events).Plan(ctx, resolved)
	if err != nil {
		return SchemaPlanResult{}, err
	}

	contents := make([][]byte, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		content, err := core.SerializeDocument(entry.Document)
		if err != nil {
			return SchemaPlanResult{}, err
		}
		contents = append(contents, content)
	}
	for i, entry := range plan.Entries {
		if err := writer.WriteSchema(entry.ShortName, contents[i]); err != nil {
			return SchemaPlanResult{}, err
		}
	}
	manifestPath, err := writer.WriteManifest(plan.Manifest, format, strings.TrimSpace(req.ManifestName))
	if err != nil {
		return SchemaPlanResult{}, err
	}
	s.Events.Informational("WrittenOutput", manifestPath)
	log.Ctx(ctx).Debug().
		Str("input_dir", inputDir).
		Str("output_dir", outputDir).
		Int("artifacts", len(plan.Entries)).
		Msg("schema plan written")
	return SchemaPlanResult{
		OutputDir:    outputDir,
		ManifestPath: manifestPath,
		Artifacts:    plan.Manifest.Artifacts,
	}, nil
}

// ParseManifestFormat accepts json, yaml (or yml) and toml. Empty means
// json.
func ParseManifestFormat(value string) (types.ManifestFormat, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return types.ManifestFormatJSON, nil
	case "yaml", "yml":
		return types.ManifestFormatYAML, nil
	case "toml":
		return types.ManifestFormatTOML, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unsupported manifest format: " + value)
	}
}
