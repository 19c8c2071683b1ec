package types

import "github.com/beevik/etree"

// PlanEntry is one artifact of a directory plan.
type PlanEntry struct {
	Location  string
	Source    string
	ShortName string
	// Rank is the dependency height: 0 for leaves, otherwise one more than
	// the highest rank among its dependencies.
	Rank        int
	Descendants int
	Document    *etree.Document
}

// ArtifactPlan is the ordered output of plan mode. Dependencies always
// precede their dependents in Entries.
type ArtifactPlan struct {
	Entries  []PlanEntry
	Manifest Manifest
}

type Manifest struct {
	Artifacts []ManifestEntry `json:"artifacts" yaml:"artifacts" toml:"artifacts"`
}

type ManifestEntry struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Source   string `json:"source" yaml:"source" toml:"source"`
	Location string `json:"location" yaml:"location" toml:"location"`
	Rank     int    `json:"rank" yaml:"rank" toml:"rank"`
}
