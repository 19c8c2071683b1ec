package core

import (
	"context"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"

	"apim-schema-import/internal/ports"
	"apim-schema-import/internal/types"
)

// WSDLConsolidator turns a WSDL 1.1 document and everything it references
// into one self-contained document.
type WSDLConsolidator struct {
	resolver ImportGraphResolver
	planner  OutputPlanner
	events   ports.EventLogPort
	stem     string
}

func NewWSDLConsolidator(resolver ImportGraphResolver, planner OutputPlanner, events ports.EventLogPort) WSDLConsolidator {
	return WSDLConsolidator{
		resolver: resolver,
		planner:  planner,
		events:   events,
		stem:     resolver.stem,
	}
}

// DetectWSDLVersion accepts WSDL 1.1 definitions only.
func DetectWSDLVersion(root *etree.Element, location string) error {
	switch root.NamespaceURI() {
	case WSDL11Namespace:
		if root.Tag != "definitions" {
			return types.NewResolutionError(types.ErrorKindMalformedReference, location, "root element is "+root.Tag+", expected definitions")
		}
		return nil
	case WSDL20Namespace:
		return types.NewResolutionError(types.ErrorKindUnsupportedConstruct, location, "WSDL 2.0 is not supported")
	default:
		return types.NewResolutionError(types.ErrorKindMalformedReference, location, "unknown WSDL version (root namespace "+quoteNamespace(root.NamespaceURI())+")")
	}
}

// Consolidate rewrites doc in place. location must be canonical.
func (c WSDLConsolidator) Consolidate(ctx context.Context, doc *etree.Document, location string) error {
	root := doc.Root()
	if root == nil {
		return types.NewResolutionError(types.ErrorKindMalformedReference, location, "document has no root element")
	}
	if err := DetectWSDLVersion(root, location); err != nil {
		return err
	}
	namespace := targetNamespace(root)
	c.events.Informational("WsdlIdentification", "WSDL 1.1 document "+location+" targetNamespace="+quoteNamespace(namespace))

	inlined, err := c.resolver.InlineInterfaceImports(ctx, root, location)
	if err != nil {
		return err
	}

	section := consolidateTypes(root)
	buckets := NewBucketSet(c.stem, c.events)
	if section != nil {
		for _, schema := range childElements(section, XSDNamespace, "schema") {
			schemaNamespace := targetNamespace(schema)
			c.events.Informational("LoadedSchema", "targetNamespace="+quoteNamespace(schemaNamespace))
			if schemaNamespace == "" {
				c.events.Warning("SchemaWithoutTargetNamespace", "inline schema in "+location)
			}
			_, created, err := buckets.Add(schemaNamespace, schema, location)
			if err != nil {
				return err
			}
			if !created {
				section.RemoveChild(schema)
			}
		}
	} else if len(inlined.Schemas) == 0 {
		c.events.Warning("LoadedNoSchemas", location)
	}

	resolved := make([]string, 0, len(inlined.Schemas))
	for _, schema := range inlined.Schemas {
		if _, _, err := buckets.Add(schema.Namespace, schema.Root, schema.Location); err != nil {
			return err
		}
		resolved = append(resolved, schema.Location)
	}
	if err := c.resolver.InlineSchemaReferences(ctx, buckets, location, resolved...); err != nil {
		return err
	}
	if section == nil && buckets.Len() > 0 {
		section = root.CreateElement(qualifiedTag(root, PrefixTableFor(root, c.stem), WSDL11Namespace, "types"))
	}
	c.events.Informational("LoadedSchemas", strconv.Itoa(buckets.Len())+" schema namespace(s)")

	rehomeInterfaceReferences(root, inlined.Absorbed, namespace, c.stem)
	log.Ctx(ctx).Debug().
		Str("location", location).
		Int("buckets", buckets.Len()).
		Int("absorbed", len(inlined.Absorbed)).
		Msg("wsdl consolidated")
	return c.planner.FinalizeInline(ctx, root, section, buckets)
}

// consolidateTypes moves the schemas of every wsdl:types section into the
// first one and returns it, or nil when there is none.
func consolidateTypes(definitions *etree.Element) *etree.Element {
	sections := childElements(definitions, WSDL11Namespace, "types")
	if len(sections) == 0 {
		return nil
	}
	first := sections[0]
	for _, extra := range sections[1:] {
		decls := namespaceDecls(extra)
		for _, child := range extra.ChildElements() {
			for prefix, uri := range decls {
				key := "xmlns"
				if prefix != "" {
					key = "xmlns:" + prefix
				}
				if prefix == "" {
					if _, ok := attrValue(child, "", "xmlns"); !ok {
						child.CreateAttr(key, uri)
					}
					continue
				}
				if _, ok := attrValue(child, "xmlns", prefix); !ok {
					child.CreateAttr(key, uri)
				}
			}
			first.AddChild(child)
		}
		definitions.RemoveChild(extra)
	}
	return first
}

// rehomeInterfaceReferences points message, binding type and port binding
// references at the merged document's target namespace when they name a
// definition that came from an absorbed WSDL document.
func rehomeInterfaceReferences(definitions *etree.Element, absorbed []string, namespace string, stem string) {
	if len(absorbed) == 0 || namespace == "" {
		return
	}
	absorbedSet := map[string]struct{}{}
	for _, uri := range absorbed {
		if uri != namespace {
			absorbedSet[uri] = struct{}{}
		}
	}
	if len(absorbedSet) == 0 {
		return
	}
	table := PrefixTableFor(definitions, stem)
	prefix, ok := table.LookupPrefixed(namespace)
	if !ok {
		prefix = table.Mint(namespace)
		definitions.CreateAttr("xmlns:"+prefix, namespace)
	}

	var visit func(e *etree.Element)
	visit = func(e *etree.Element) {
		if isElement(e, WSDL11Namespace, "types") {
			return
		}
		for i := range e.Attr {
			a := &e.Attr[i]
			if a.Space != "" || !isInterfaceReference(e, a.Key) {
				continue
			}
			valuePrefix, local, qualified := strings.Cut(strings.TrimSpace(a.Value), ":")
			if !qualified {
				local = valuePrefix
				valuePrefix = ""
			}
			uri := inScopeDecls(e)[valuePrefix]
			if _, ok := absorbedSet[uri]; !ok {
				continue
			}
			a.Value = prefix + ":" + local
		}
		for _, child := range e.ChildElements() {
			visit(child)
		}
	}
	visit(definitions)
}

func isInterfaceReference(e *etree.Element, attr string) bool {
	switch attr {
	case "message":
		return true
	case "type":
		return isElement(e, WSDL11Namespace, "binding")
	case "binding":
		return isElement(e, WSDL11Namespace, "port")
	}
	return false
}
