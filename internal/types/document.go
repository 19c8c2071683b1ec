package types

import "github.com/beevik/etree"

// Document is the raw result of fetching a location.
type Document struct {
	Location string
	Content  []byte
	// Charset comes from transport metadata (an HTTP Content-Type header).
	// Empty means the XML declaration decides.
	Charset string
}

// Reference is one outgoing import/include edge of a document.
type Reference struct {
	Kind ReferenceKind
	// Location is the value as written in the referencing document.
	Location string
	// Target is Location resolved against the owner or the base directory.
	Target string
	// Namespace is the declared namespace. Includes carry the parent's
	// target namespace.
	Namespace    string
	HasNamespace bool
}

// Node is a fetched artifact in the reference graph. Location is canonical
// and never changes once the node exists.
type Node struct {
	Location        string
	TargetNamespace string
	Document        *etree.Document
	References      []Reference
}

// ResolvedGroup lists the nodes first resolved while walking one root, in
// reverse-postorder.
type ResolvedGroup struct {
	Root    string
	Members []string
}
