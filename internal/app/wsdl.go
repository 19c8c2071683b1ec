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

const processedSuffix = "-WSDLProcessed.wsdl"

// ConsolidateWSDL inlines every import of a WSDL 1.1 document and writes the
// self-contained result.
func (s Service) ConsolidateWSDL(ctx context.Context, req WSDLRequest) (WSDLResult, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return WSDLResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("input WSDL is required")
	}
	locator := core.NewLocator(req.BaseDir)
	location, err := locator.Canonical(input)
	if err != nil {
		return WSDLResult{}, err
	}
	output := strings.TrimSpace(req.Output)
	if output == "" {
		output = DefaultWSDLOutput(location)
	}

	fetched, err := s.Fetcher.Fetch(ctx, location)
	if err != nil {
		s.Events.Error("FailedToImport", err, location)
		return WSDLResult{}, types.NewResolutionError(types.ErrorKindFetchFailure, location, "failed to fetch document").WithCause(err)
	}
	if fetched.Location == "" {
		fetched.Location = location
	}
	tree, err := core.ParseDocument(fetched)
	if err != nil {
		return WSDLResult{}, err
	}

	resolver := core.NewImportGraphResolver(s.Fetcher, s.Events, locator).WithPrefixStem(req.PrefixStem)
	planner := core.NewOutputPlanner("", s.Events)
	if err := core.NewWSDLConsolidator(resolver, planner, s.Events).Consolidate(ctx, tree, location); err != nil {
		return WSDLResult{}, err
	}
	content, err := core.SerializeDocument(tree)
	if err != nil {
		return WSDLResult{}, err
	}
	if err := s.Documents.WriteDocument(output, content); err != nil {
		return WSDLResult{}, err
	}
	s.Events.Informational("WrittenOutput", output)
	log.Ctx(ctx).Debug().Str("input", location).Str("output", output).Msg("wsdl written")
	return WSDLResult{Location: location, Output: output}, nil
}

// DefaultWSDLOutput names the consolidated document after its input. HTTP
// inputs land in the working directory.
func DefaultWSDLOutput(location string) string {
	name := core.DisplayName(location) + processedSuffix
	if strings.Contains(location, "://") {
		return name
	}
	return filepath.Join(filepath.Dir(location), name)
}
