package types

type ReferenceKind string

const (
	ReferenceKindInterfaceImport ReferenceKind = "interface-import"
	ReferenceKindSchemaImport    ReferenceKind = "schema-import"
	ReferenceKindSchemaInclude   ReferenceKind = "schema-include"
)

type ManifestFormat string

const (
	ManifestFormatJSON ManifestFormat = "json"
	ManifestFormatYAML ManifestFormat = "yaml"
	ManifestFormatTOML ManifestFormat = "toml"
)

type ErrorKind string

const (
	ErrorKindMalformedReference   ErrorKind = "malformed-reference"
	ErrorKindUnsupportedConstruct ErrorKind = "unsupported-construct"
	ErrorKindCyclicDependency     ErrorKind = "cyclic-dependency"
	ErrorKindFetchFailure         ErrorKind = "fetch-failure"
	ErrorKindIncompatibleMerge    ErrorKind = "incompatible-merge"
)
