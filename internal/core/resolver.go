package core

import (
	"context"
	"errors"
	"slices"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/beevik/etree"
	"github.com/dominikbraun/graph"
	"github.com/rs/zerolog/log"

	"apim-schema-import/internal/ports"
	"apim-schema-import/internal/types"
)

// ImportGraphResolver walks import/include graphs depth-first. All run state
// lives in values created per call, so one resolver can serve many runs.
type ImportGraphResolver struct {
	fetcher ports.DocumentFetcherPort
	events  ports.EventLogPort
	locator Locator
	stem    string
}

func NewImportGraphResolver(fetcher ports.DocumentFetcherPort, events ports.EventLogPort, locator Locator) ImportGraphResolver {
	return ImportGraphResolver{
		fetcher: fetcher,
		events:  events,
		locator: locator,
		stem:    DefaultPrefixStem,
	}
}

// WithPrefixStem sets the stem used for minted namespace prefixes.
func (r ImportGraphResolver) WithPrefixStem(stem string) ImportGraphResolver {
	if stem != "" {
		r.stem = stem
	}
	return r
}

func (r ImportGraphResolver) Locator() Locator {
	return r.locator
}

// ResolvedGraph is the plan-mode result: nodes in reverse-postorder across
// all roots, the groups each root contributed, and the reference graph with
// edges pointing from dependent to dependency.
type ResolvedGraph struct {
	Nodes     []*types.Node
	Groups    []types.ResolvedGroup
	Discovery []string
	Graph     graph.Graph[string, string]

	index map[string]*types.Node
}

func newResolvedGraph() *ResolvedGraph {
	return &ResolvedGraph{
		Graph: graph.New(graph.StringHash, graph.Directed()),
		index: map[string]*types.Node{},
	}
}

func (g *ResolvedGraph) Node(location string) (*types.Node, bool) {
	node, ok := g.index[location]
	return node, ok
}

func (g *ResolvedGraph) discover(location string) error {
	g.Discovery = append(g.Discovery, location)
	return g.addVertex(location)
}

func (g *ResolvedGraph) addVertex(location string) error {
	if err := g.Graph.AddVertex(location); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	return nil
}

func (g *ResolvedGraph) link(from string, to string) error {
	if err := g.addVertex(to); err != nil {
		return err
	}
	if err := g.Graph.AddEdge(from, to); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return err
	}
	return nil
}

func (g *ResolvedGraph) finish(node *types.Node) {
	g.Nodes = append(g.Nodes, node)
	g.index[node.Location] = node
}

// traversal carries the in-progress stack and the done set of one walk.
type traversal struct {
	path       []string
	inProgress map[string]struct{}
	done       map[string]struct{}
}

func newTraversal() *traversal {
	return &traversal{
		inProgress: map[string]struct{}{},
		done:       map[string]struct{}{},
	}
}

// enter marks location in progress. It reports skip for locations already
// resolved and fails when location is an ancestor on the active path.
func (t *traversal) enter(location string) (bool, error) {
	if _, ok := t.inProgress[location]; ok {
		start := slices.Index(t.path, location)
		cycle := append(append([]string(nil), t.path[start:]...), location)
		return false, &types.ResolutionError{
			Kind:     types.ErrorKindCyclicDependency,
			Location: location,
			Path:     cycle,
			Msg:      "circular reference detected",
		}
	}
	if _, ok := t.done[location]; ok {
		return true, nil
	}
	t.inProgress[location] = struct{}{}
	t.path = append(t.path, location)
	return false, nil
}

func (t *traversal) leave(location string) {
	delete(t.inProgress, location)
	if n := len(t.path); n > 0 && t.path[n-1] == location {
		t.path = t.path[:n-1]
	}
	t.done[location] = struct{}{}
}

func (t *traversal) isDone(location string) bool {
	_, ok := t.done[location]
	return ok
}

// Resolve resolves the schema graph reachable from root in plan mode.
func (r ImportGraphResolver) Resolve(ctx context.Context, root string) (ResolvedGraph, error) {
	return r.ResolveAll(ctx, []string{root})
}

// ResolveAll resolves several roots with one shared done set, so a schema
// reachable from more than one root is resolved once, under the first root
// that reaches it.
func (r ImportGraphResolver) ResolveAll(ctx context.Context, roots []string) (ResolvedGraph, error) {
	g := newResolvedGraph()
	state := newTraversal()
	for _, root := range roots {
		location, err := r.locator.Canonical(root)
		if err != nil {
			return ResolvedGraph{}, err
		}
		assert.NotEmpty(ctx, location, "canonical root location must be set")
		if state.isDone(location) {
			r.events.Verbose("AlreadyResolved", location)
			continue
		}
		before := len(g.Nodes)
		if err := r.visitSchema(ctx, location, state, g); err != nil {
			return ResolvedGraph{}, err
		}
		group := types.ResolvedGroup{Root: location}
		for _, node := range g.Nodes[before:] {
			group.Members = append(group.Members, node.Location)
		}
		g.Groups = append(g.Groups, group)
	}
	return *g, nil
}

func (r ImportGraphResolver) visitSchema(ctx context.Context, location string, state *traversal, g *ResolvedGraph) error {
	skip, err := state.enter(location)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}
	if err := g.discover(location); err != nil {
		return err
	}
	tree, err := r.load(ctx, location)
	if err != nil {
		return err
	}
	root := tree.Root()
	if !isElement(root, XSDNamespace, "schema") {
		return types.NewResolutionError(types.ErrorKindMalformedReference, location, "document is not an XML schema")
	}
	namespace := targetNamespace(root)
	if namespace == "" {
		r.events.Warning("SchemaWithoutTargetNamespace", location)
	}
	refs, err := ParseSchemaReferences(root, location, ReferenceModeStrict)
	if err != nil {
		return err
	}
	node := &types.Node{
		Location:        location,
		TargetNamespace: namespace,
		Document:        tree,
	}
	for _, ref := range refs {
		target, err := r.locator.Resolve(location, ref.Location)
		if err != nil {
			return err
		}
		ref.Target = target
		node.References = append(node.References, ref.Reference)
		if err := g.link(location, target); err != nil {
			return err
		}
		r.events.Verbose("FollowingReference", string(ref.Kind)+" "+location+" -> "+target)
		if err := r.visitSchema(ctx, target, state, g); err != nil {
			return err
		}
	}
	state.leave(location)
	g.finish(node)
	r.events.Informational("ResolvedArtifact", location)
	return nil
}

func (r ImportGraphResolver) load(ctx context.Context, location string) (*etree.Document, error) {
	log.Ctx(ctx).Debug().Str("location", location).Msg("fetching document")
	doc, err := r.fetcher.Fetch(ctx, location)
	if err != nil {
		r.events.Error("FailedToImport", err, location)
		return nil, types.NewResolutionError(types.ErrorKindFetchFailure, location, "failed to fetch document").WithCause(err)
	}
	if doc.Location == "" {
		doc.Location = location
	}
	return ParseDocument(doc)
}

// InlineResult reports what interface-import inlining absorbed.
type InlineResult struct {
	// Absorbed lists the target namespaces of spliced WSDL documents.
	Absorbed []string
	// Schemas holds XSD documents imported directly through wsdl:import.
	Schemas []InlineSchema
}

type InlineSchema struct {
	Location  string
	Namespace string
	Root      *etree.Element
}

// InlineInterfaceImports splices every document reachable through
// wsdl:import into definitions. Imports are handled in reverse discovery
// order and each child's elements are inserted at the front, so earlier
// imports end up nearer the front of the merged document.
func (r ImportGraphResolver) InlineInterfaceImports(ctx context.Context, definitions *etree.Element, location string) (InlineResult, error) {
	state := newTraversal()
	if _, err := state.enter(location); err != nil {
		return InlineResult{}, err
	}
	tables := map[*etree.Element]*PrefixTable{}
	var result InlineResult
	if err := r.inlineInterface(ctx, definitions, location, state, tables, &result); err != nil {
		return InlineResult{}, err
	}
	state.leave(location)
	return result, nil
}

func (r ImportGraphResolver) inlineInterface(
	ctx context.Context,
	parent *etree.Element,
	owner string,
	state *traversal,
	tables map[*etree.Element]*PrefixTable,
	result *InlineResult,
) error {
	refs, err := ParseInterfaceImports(parent, owner)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		parent.RemoveChild(ref.Element)
	}
	for i := len(refs) - 1; i >= 0; i-- {
		ref := refs[i]
		target, err := r.locator.Resolve(owner, ref.Location)
		if err != nil {
			return err
		}
		skip, err := state.enter(target)
		if err != nil {
			return err
		}
		if skip {
			r.events.Verbose("AlreadyImported", target)
			continue
		}
		tree, err := r.load(ctx, target)
		if err != nil {
			return err
		}
		child := tree.Root()
		switch {
		case isElement(child, XSDNamespace, "schema"):
			if err := r.absolutizeSchemaLocations(child, target); err != nil {
				return err
			}
			namespace := targetNamespace(child)
			if namespace == "" {
				namespace = ref.Namespace
			}
			result.Schemas = append(result.Schemas, InlineSchema{Location: target, Namespace: namespace, Root: child})
		default:
			if err := DetectWSDLVersion(child, target); err != nil {
				return err
			}
			if err := r.inlineInterface(ctx, child, target, state, tables, result); err != nil {
				return err
			}
			for _, section := range childElements(child, WSDL11Namespace, "types") {
				for _, schema := range childElements(section, XSDNamespace, "schema") {
					if err := r.absolutizeSchemaLocations(schema, target); err != nil {
						return err
					}
				}
			}
			fragment := child.ChildElements()
			table, ok := tables[parent]
			if !ok {
				table = PrefixTableFor(parent, r.stem)
				tables[parent] = table
			}
			NewReconciler(table, parent).Reconcile(fragment, namespaceDecls(child))
			if namespace := targetNamespace(child); namespace != "" {
				result.Absorbed = append(result.Absorbed, namespace)
			}
			for j := len(fragment) - 1; j >= 0; j-- {
				parent.InsertChildAt(0, fragment[j])
			}
		}
		state.leave(target)
		r.events.Informational("ResolvedArtifact", target)
	}
	return nil
}

// absolutizeSchemaLocations rewrites relative schemaLocation values so they
// survive being moved into a document at another location.
func (r ImportGraphResolver) absolutizeSchemaLocations(schema *etree.Element, owner string) error {
	for _, child := range schema.ChildElements() {
		if child.NamespaceURI() != XSDNamespace {
			continue
		}
		if child.Tag != "import" && child.Tag != "include" {
			continue
		}
		location, ok := attrValue(child, "", "schemaLocation")
		if !ok || location == "" {
			continue
		}
		resolved, err := r.locator.Resolve(owner, location)
		if err != nil {
			return err
		}
		child.CreateAttr("schemaLocation", resolved)
	}
	return nil
}

// InlineSchemaReferences fetches every schema referenced from the buckets
// and merges it into the bucket of its namespace. Includes are removed and
// imports lose their schemaLocation. Locations in resolved are treated as
// already merged.
func (r ImportGraphResolver) InlineSchemaReferences(ctx context.Context, buckets *BucketSet, owner string, resolved ...string) error {
	state := newTraversal()
	for _, location := range resolved {
		state.done[location] = struct{}{}
	}
	for _, bucket := range buckets.Buckets() {
		refs, err := ParseSchemaReferences(bucket.Root, owner, ReferenceModeLenient)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if ref.Kind == types.ReferenceKindSchemaInclude {
				bucket.Root.RemoveChild(ref.Element)
				continue
			}
			ref.Element.RemoveAttr("schemaLocation")
		}
		for _, ref := range refs {
			if err := r.inlineSchema(ctx, ref.Reference, owner, bucket.Namespace, buckets, state); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r ImportGraphResolver) inlineSchema(
	ctx context.Context,
	ref types.Reference,
	owner string,
	parentNamespace string,
	buckets *BucketSet,
	state *traversal,
) error {
	target, err := r.locator.Resolve(owner, ref.Location)
	if err != nil {
		return err
	}
	skip, err := state.enter(target)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}
	tree, err := r.load(ctx, target)
	if err != nil {
		return err
	}
	root := tree.Root()
	if !isElement(root, XSDNamespace, "schema") {
		return types.NewResolutionError(types.ErrorKindMalformedReference, target, "document is not an XML schema")
	}
	own := targetNamespace(root)
	namespace := own
	switch {
	case ref.Kind == types.ReferenceKindSchemaInclude:
		namespace = parentNamespace
	case ref.HasNamespace && ref.Namespace != own:
		r.events.Warning("NamespaceMismatch", "import of "+target+" declares "+quoteNamespace(ref.Namespace)+" but schema targets "+quoteNamespace(own))
	}
	if own == "" {
		r.events.Warning("SchemaWithoutTargetNamespace", target)
	}
	r.events.Verbose("XsdImportInclude", string(ref.Kind)+" "+target)

	nested, err := ParseSchemaReferences(root, target, ReferenceModeLenient)
	if err != nil {
		return err
	}
	pending := detachReferences(root)
	for _, n := range nested {
		if err := r.inlineSchema(ctx, n.Reference, target, namespace, buckets, state); err != nil {
			return err
		}
	}
	bucket, _, err := buckets.Add(namespace, root, target)
	if err != nil {
		return err
	}
	for _, ns := range pending {
		bucket.AddPending(ns)
	}
	state.leave(target)
	r.events.Informational("ResolvedArtifact", target)
	return nil
}

// detachReferences removes every import and include from a fetched schema
// and returns the namespaces its imports declared.
func detachReferences(schema *etree.Element) []string {
	var namespaces []string
	for _, child := range schema.ChildElements() {
		if child.NamespaceURI() != XSDNamespace {
			continue
		}
		switch child.Tag {
		case "import":
			namespace, _ := attrValue(child, "", "namespace")
			namespaces = append(namespaces, namespace)
			schema.RemoveChild(child)
		case "include":
			schema.RemoveChild(child)
		}
	}
	return namespaces
}
