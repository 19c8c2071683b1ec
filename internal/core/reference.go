package core

import (
	"strings"

	"github.com/beevik/etree"

	"apim-schema-import/internal/types"
)

// ReferenceMode selects how missing schema locations are treated.
type ReferenceMode int

const (
	// ReferenceModeStrict rejects any reference without a location.
	ReferenceModeStrict ReferenceMode = iota
	// ReferenceModeLenient skips xs:import without schemaLocation, which
	// only declares a namespace dependency.
	ReferenceModeLenient
)

// SchemaReference pairs a parsed reference with the element declaring it.
type SchemaReference struct {
	types.Reference
	Element *etree.Element
}

// ParseSchemaReferences extracts the import/include edges declared directly
// under a schema root, in document order.
func ParseSchemaReferences(schema *etree.Element, owner string, mode ReferenceMode) ([]SchemaReference, error) {
	ownNamespace := targetNamespace(schema)
	var refs []SchemaReference
	for _, child := range schema.ChildElements() {
		if child.NamespaceURI() != XSDNamespace {
			continue
		}
		switch child.Tag {
		case "import":
			location, hasLocation := attrValue(child, "", "schemaLocation")
			location = strings.TrimSpace(location)
			namespace, hasNamespace := attrValue(child, "", "namespace")
			if location == "" {
				if mode == ReferenceModeLenient {
					continue
				}
				return nil, malformedReference(owner, "import", hasLocation, "schemaLocation")
			}
			refs = append(refs, SchemaReference{
				Reference: types.Reference{
					Kind:         types.ReferenceKindSchemaImport,
					Location:     location,
					Namespace:    strings.TrimSpace(namespace),
					HasNamespace: hasNamespace,
				},
				Element: child,
			})
		case "include":
			location, hasLocation := attrValue(child, "", "schemaLocation")
			location = strings.TrimSpace(location)
			if location == "" {
				return nil, malformedReference(owner, "include", hasLocation, "schemaLocation")
			}
			refs = append(refs, SchemaReference{
				Reference: types.Reference{
					Kind:         types.ReferenceKindSchemaInclude,
					Location:     location,
					Namespace:    ownNamespace,
					HasNamespace: true,
				},
				Element: child,
			})
		case "redefine", "override":
			location, _ := attrValue(child, "", "schemaLocation")
			return nil, types.NewResolutionError(
				types.ErrorKindUnsupportedConstruct,
				owner,
				"schema "+child.Tag+" is not supported (schemaLocation="+strings.TrimSpace(location)+")",
			)
		}
	}
	return refs, nil
}

// ParseInterfaceImports extracts wsdl:import edges declared directly under a
// WSDL 1.1 definitions root, in document order.
func ParseInterfaceImports(definitions *etree.Element, owner string) ([]SchemaReference, error) {
	var refs []SchemaReference
	for _, child := range definitions.ChildElements() {
		if child.NamespaceURI() != WSDL11Namespace {
			continue
		}
		switch child.Tag {
		case "import":
			location, hasLocation := attrValue(child, "", "location")
			location = strings.TrimSpace(location)
			if location == "" {
				return nil, malformedReference(owner, "wsdl import", hasLocation, "location")
			}
			namespace, hasNamespace := attrValue(child, "", "namespace")
			refs = append(refs, SchemaReference{
				Reference: types.Reference{
					Kind:         types.ReferenceKindInterfaceImport,
					Location:     location,
					Namespace:    strings.TrimSpace(namespace),
					HasNamespace: hasNamespace,
				},
				Element: child,
			})
		case "include":
			return nil, types.NewResolutionError(
				types.ErrorKindUnsupportedConstruct,
				owner,
				"wsdl include is not supported",
			)
		}
	}
	return refs, nil
}

func malformedReference(owner string, kind string, present bool, attr string) error {
	msg := kind + " is missing the " + attr + " attribute"
	if present {
		msg = kind + " has an empty " + attr + " attribute"
	}
	return types.NewResolutionError(types.ErrorKindMalformedReference, owner, msg)
}
