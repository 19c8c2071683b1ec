package core

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/beevik/etree"
	"github.com/dominikbraun/graph"

	"apim-schema-import/internal/ports"
	"apim-schema-import/internal/types"
)

const DefaultSchemaPath = "/schemas/"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9 -]`)

// SanitizeName derives an artifact name from a location's file name.
func SanitizeName(location string) string {
	return unsafeNameChars.ReplaceAllString(DisplayName(location), "-")
}

// OutputPlanner produces the terminal form of a resolution run.
type OutputPlanner struct {
	schemaPath string
	events     ports.EventLogPort
}

func NewOutputPlanner(schemaPath string, events ports.EventLogPort) OutputPlanner {
	if strings.TrimSpace(schemaPath) == "" {
		schemaPath = DefaultSchemaPath
	}
	return OutputPlanner{schemaPath: schemaPath, events: events}
}

// Plan orders the resolved artifacts, names them and rewrites every
// schemaLocation to the uploaded artifact path. Groups are ordered by the
// subtree size of their root, largest first and ties in discovery order;
// any dependency not yet emitted is hoisted before its dependent.
func (p OutputPlanner) Plan(ctx context.Context, g ResolvedGraph) (types.ArtifactPlan, error) {
	adjacency, err := g.Graph.AdjacencyMap()
	if err != nil {
		return types.ArtifactPlan{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read reference graph").
			WithCause(err)
	}
	discovery := map[string]int{}
	for i, location := range g.Discovery {
		discovery[location] = i
	}
	names := assignNames(g.Discovery)

	descendants := map[string]int{}
	for _, location := range g.Discovery {
		count := 0
		err := graph.DFS(g.Graph, location, func(visited string) bool {
			if visited != location {
				count++
			}
			return false
		})
		if err != nil {
			return types.ArtifactPlan{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to walk reference graph").
				WithCause(err)
		}
		descendants[location] = count
	}

	dependencies := func(location string) []string {
		deps := make([]string, 0, len(adjacency[location]))
		for dep := range adjacency[location] {
			deps = append(deps, dep)
		}
		sort.Slice(deps, func(i, j int) bool {
			return discovery[deps[i]] < discovery[deps[j]]
		})
		return deps
	}

	ranks := map[string]int{}
	var rank func(location string) int
	rank = func(location string) int {
		if value, ok := ranks[location]; ok {
			return value
		}
		value := 0
		for _, dep := range dependencies(location) {
			if r := rank(dep) + 1; r > value {
				value = r
			}
		}
		ranks[location] = value
		return value
	}

	groups := append([]types.ResolvedGroup(nil), g.Groups...)
	sort.SliceStable(groups, func(i, j int) bool {
		return descendants[groups[i].Root] > descendants[groups[j].Root]
	})

	emitted := map[string]struct{}{}
	var order []string
	var emit func(location string)
	emit = func(location string) {
		if _, ok := emitted[location]; ok {
			return
		}
		emitted[location] = struct{}{}
		for _, dep := range dependencies(location) {
			emit(dep)
		}
		order = append(order, location)
	}
	for _, group := range groups {
		for _, member := range group.Members {
			emit(member)
		}
	}

	plan := types.ArtifactPlan{}
	for _, location := range order {
		node, ok := g.Node(location)
		if !ok {
			return types.ArtifactPlan{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("resolved graph has no node for " + location)
		}
		name := names[location]
		assert.NotEmpty(ctx, name, "artifact name must be assigned")
		if err := p.rewriteLocations(node, names); err != nil {
			return types.ArtifactPlan{}, err
		}
		entry := types.PlanEntry{
			Location:    location,
			Source:      SourceName(location),
			ShortName:   name,
			Rank:        rank(location),
			Descendants: descendants[location],
			Document:    node.Document,
		}
		plan.Entries = append(plan.Entries, entry)
		plan.Manifest.Artifacts = append(plan.Manifest.Artifacts, types.ManifestEntry{
			Name:     entry.ShortName,
			Source:   entry.Source,
			Location: entry.Location,
			Rank:     entry.Rank,
		})
		p.events.Informational("PlannedArtifact", name+" <- "+location)
	}
	return plan, nil
}

// assignNames gives every location a unique sanitized name in discovery
// order. Names are compared case-insensitively so they stay unique as file
// names on any filesystem.
func assignNames(locations []string) map[string]string {
	names := map[string]string{}
	used := map[string]struct{}{}
	for _, location := range locations {
		base := SanitizeName(location)
		if strings.TrimSpace(base) == "" {
			base = "schema"
		}
		name := base
		for n := 2; ; n++ {
			if _, taken := used[strings.ToLower(name)]; !taken {
				break
			}
			name = base + "-" + strconv.Itoa(n)
		}
		used[strings.ToLower(name)] = struct{}{}
		names[location] = name
	}
	return names
}

func (p OutputPlanner) rewriteLocations(node *types.Node, names map[string]string) error {
	refs, err := ParseSchemaReferences(node.Document.Root(), node.Location, ReferenceModeStrict)
	if err != nil {
		return err
	}
	if len(refs) != len(node.References) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("reference list changed after resolution for " + node.Location)
	}
	for i, ref := range refs {
		name, ok := names[node.References[i].Target]
		if !ok {
			p.events.Warning("NoArtifactName", node.References[i].Target)
			continue
		}
		ref.Element.CreateAttr("schemaLocation", p.schemaPath+name)
	}
	return nil
}

// FinalizeInline attaches the buckets under the types section, injects the
// pending imports, strips elements whose prefix is not declared in scope
// and puts the definitions children in WSDL 1.1 section order.
func (p OutputPlanner) FinalizeInline(ctx context.Context, definitions *etree.Element, section *etree.Element, buckets *BucketSet) error {
	if buckets.Len() > 0 && section == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("schemas resolved without a types section")
	}
	for _, bucket := range buckets.Buckets() {
		if bucket.Root.Parent() != section {
			section.AddChild(bucket.Root)
		}
		injectPendingImports(bucket)
		hoistImports(bucket.Root)
		pruneMintedPrefixes(bucket.Root, bucket.Prefixes)
	}
	pruneMintedPrefixes(definitions, PrefixTableFor(definitions, buckets.stem))
	p.stripOrphans(definitions)
	orderDefinitions(definitions)
	return nil
}

func injectPendingImports(bucket *Bucket) {
	pending := bucket.Pending()
	for i := len(pending) - 1; i >= 0; i-- {
		namespace := pending[i]
		if hasImport(bucket.Root, namespace) {
			continue
		}
		declaration := etree.NewElement(qualifiedTag(bucket.Root, bucket.Prefixes, XSDNamespace, "import"))
		if namespace != "" {
			declaration.CreateAttr("namespace", namespace)
		}
		bucket.Root.InsertChildAt(0, declaration)
	}
}

func hasImport(schema *etree.Element, namespace string) bool {
	for _, child := range childElements(schema, XSDNamespace, "import") {
		if value, _ := attrValue(child, "", "namespace"); value == namespace {
			return true
		}
	}
	return false
}

// hoistImports moves imports to the front of the schema, keeping the first
// import per namespace.
func hoistImports(schema *etree.Element) {
	seen := map[string]struct{}{}
	var kept []*etree.Element
	for _, child := range childElements(schema, XSDNamespace, "import") {
		namespace, _ := attrValue(child, "", "namespace")
		if _, ok := seen[namespace]; ok {
			schema.RemoveChild(child)
			continue
		}
		seen[namespace] = struct{}{}
		kept = append(kept, child)
	}
	for i := len(kept) - 1; i >= 0; i-- {
		schema.InsertChildAt(0, kept[i])
	}
}

// pruneMintedPrefixes drops minted declarations on scope that nothing in
// its subtree uses.
func pruneMintedPrefixes(scope *etree.Element, table *PrefixTable) {
	var unused []string
	for _, a := range scope.Attr {
		if a.Space != "xmlns" || !table.IsMinted(a.Key) {
			continue
		}
		if !prefixUsed(scope, a.Key) {
			unused = append(unused, a.Key)
		}
	}
	for _, prefix := range unused {
		scope.RemoveAttr("xmlns:" + prefix)
		table.Remove(prefix)
	}
}

func prefixUsed(scope *etree.Element, prefix string) bool {
	used := false
	walkElements(scope, func(e *etree.Element) {
		if used {
			return
		}
		if e.Space == prefix {
			used = true
			return
		}
		for _, a := range e.Attr {
			if a.Space == "xmlns" {
				continue
			}
			if a.Space == prefix {
				used = true
				return
			}
			value := strings.TrimSpace(a.Value)
			if strings.Count(value, ":") == 1 && strings.HasPrefix(value, prefix+":") {
				used = true
				return
			}
		}
	})
	return used
}

func (p OutputPlanner) stripOrphans(e *etree.Element) {
	for _, child := range e.ChildElements() {
		if !prefixResolves(child, child.Space) {
			e.RemoveChild(child)
			p.events.Warning("StrippedElement", "removed "+child.FullTag()+": prefix "+child.Space+" is not declared")
			continue
		}
		p.stripOrphans(child)
	}
}

var definitionsOrder = map[string]int{
	"documentation": 0,
	"import":        1,
	"types":         2,
	"message":       3,
	"portType":      4,
	"binding":       5,
	"service":       6,
}

// orderDefinitions stably sorts the definitions children into WSDL 1.1
// section order. Extension elements go last.
func orderDefinitions(definitions *etree.Element) {
	children := definitions.ChildElements()
	position := func(e *etree.Element) int {
		if e.NamespaceURI() == WSDL11Namespace {
			if value, ok := definitionsOrder[e.Tag]; ok {
				return value
			}
		}
		return len(definitionsOrder)
	}
	sorted := append([]*etree.Element(nil), children...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return position(sorted[i]) < position(sorted[j])
	})
	changed := false
	for i := range sorted {
		if sorted[i] != children[i] {
			changed = true
			break
		}
	}
	if !changed {
		return
	}
	for _, child := range children {
		definitions.RemoveChild(child)
	}
	for _, child := range sorted {
		definitions.AddChild(child)
	}
}
