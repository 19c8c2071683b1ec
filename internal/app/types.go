package app

import "apim-schema-import/internal/types"

type WSDLRequest struct {
	Input      string
	Output     string
	BaseDir    string
	PrefixStem string
}

type WSDLResult struct {
	Location string
	Output   string
}

type SchemaPlanRequest struct {
	InputDir       string
	OutputDir      string
	BaseDir        string
	SchemaPath     string
	ManifestFormat string
	ManifestName   string
}

type SchemaPlanResult struct {
	OutputDir    string
	ManifestPath string
	Artifacts    []types.ManifestEntry
}
