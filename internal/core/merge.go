package core

import (
	"github.com/beevik/etree"

	"apim-schema-import/internal/ports"
	"apim-schema-import/internal/types"
)

// Bucket is the merge target for one target namespace.
type Bucket struct {
	Namespace string
	Root      *etree.Element
	Prefixes  *PrefixTable
	Sources   []string

	pending    []string
	pendingSet map[string]struct{}
}

// AddPending records a namespace the bucket must import at emission time.
// The bucket's own namespace is never recorded.
func (b *Bucket) AddPending(namespace string) {
	if namespace == b.Namespace {
		return
	}
	if _, ok := b.pendingSet[namespace]; ok {
		return
	}
	b.pendingSet[namespace] = struct{}{}
	b.pending = append(b.pending, namespace)
}

// Pending returns the pending import namespaces in insertion order.
func (b *Bucket) Pending() []string {
	return append([]string(nil), b.pending...)
}

// BucketSet owns the namespace buckets of one resolution run.
type BucketSet struct {
	stem    string
	log     ports.EventLogPort
	order   []string
	buckets map[string]*Bucket
}

func NewBucketSet(stem string, log ports.EventLogPort) *BucketSet {
	if stem == "" {
		stem = DefaultPrefixStem
	}
	return &BucketSet{
		stem:    stem,
		log:     log,
		buckets: map[string]*Bucket{},
	}
}

// Add makes fragment the representative of a new bucket for namespace, or
// merges it into the existing one. The returned flag is true when a new
// bucket was created.
func (s *BucketSet) Add(namespace string, fragment *etree.Element, source string) (*Bucket, bool, error) {
	if existing, ok := s.buckets[namespace]; ok {
		if err := MergeSchema(existing, fragment, source, s.log); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if declared, ok := attrValue(fragment, "", "targetNamespace"); ok && declared != namespace {
		return nil, false, types.NewResolutionError(
			types.ErrorKindIncompatibleMerge,
			source,
			"schema declares targetNamespace "+declared+" but is merged into namespace "+quoteNamespace(namespace),
		)
	}
	prefixes := PrefixTableFor(fragment, s.stem)
	if isChameleon(fragment, namespace) {
		NewReconciler(prefixes, fragment).QualifyChameleon(fragment.ChildElements(), namespace)
	}
	if _, ok := attrValue(fragment, "", "targetNamespace"); !ok && namespace != "" {
		fragment.CreateAttr("targetNamespace", namespace)
	}
	bucket := &Bucket{
		Namespace:  namespace,
		Root:       fragment,
		Prefixes:   prefixes,
		Sources:    []string{source},
		pendingSet: map[string]struct{}{},
	}
	s.buckets[namespace] = bucket
	s.order = append(s.order, namespace)
	return bucket, true, nil
}

func (s *BucketSet) Get(namespace string) (*Bucket, bool) {
	bucket, ok := s.buckets[namespace]
	return bucket, ok
}

// Buckets returns the buckets in creation order.
func (s *BucketSet) Buckets() []*Bucket {
	out := make([]*Bucket, 0, len(s.order))
	for _, namespace := range s.order {
		out = append(out, s.buckets[namespace])
	}
	return out
}

func (s *BucketSet) Len() int {
	return len(s.order)
}

// isChameleon reports whether schema has no target namespace of its own and
// takes on namespace, with unprefixed QNames that would otherwise resolve to
// no namespace.
func isChameleon(schema *etree.Element, namespace string) bool {
	if namespace == "" {
		return false
	}
	if _, ok := attrValue(schema, "", "targetNamespace"); ok {
		return false
	}
	return inScopeDecls(schema)[""] == ""
}

// schemaDefaults are root attributes whose effective value changes how the
// children of a schema are interpreted.
var schemaDefaults = map[string]string{
	"elementFormDefault":   "unqualified",
	"attributeFormDefault": "unqualified",
	"blockDefault":         "",
	"finalDefault":         "",
}

// MergeSchema folds incoming into bucket. Namespace declarations are
// reconciled against the bucket's prefix table, other root attributes are
// copied when the bucket lacks them, and every child of incoming is appended
// to the bucket root. The bucket's own attribute values always win; incoming
// content is adapted to keep its meaning. Schema-wide defaults such as
// elementFormDefault are never copied because they would change the meaning
// of content already in the bucket.
func MergeSchema(bucket *Bucket, incoming *etree.Element, source string, log ports.EventLogPort) error {
	if declared, ok := attrValue(incoming, "", "targetNamespace"); ok && declared != bucket.Namespace {
		return types.NewResolutionError(
			types.ErrorKindIncompatibleMerge,
			source,
			"schema declares targetNamespace "+declared+" but bucket namespace is "+quoteNamespace(bucket.Namespace),
		)
	}

	for key, fallback := range schemaDefaults {
		existing, ok := attrValue(bucket.Root, "", key)
		if !ok {
			existing = fallback
		}
		incomingValue, ok := attrValue(incoming, "", key)
		if !ok {
			incomingValue = fallback
		}
		if existing != incomingValue {
			adaptSchemaDefault(incoming, key, incomingValue)
		}
	}

	children := incoming.ChildElements()
	reconciler := NewReconciler(bucket.Prefixes, bucket.Root)
	var renames map[string]string
	if isChameleon(incoming, bucket.Namespace) {
		renames = reconciler.ReconcileChameleon(children, namespaceDecls(incoming), bucket.Namespace)
	} else {
		renames = reconciler.Reconcile(children, namespaceDecls(incoming))
	}

	for _, a := range incoming.Attr {
		if isNamespaceDecl(a) {
			continue
		}
		if _, governed := schemaDefaults[a.Key]; governed && a.Space == "" {
			continue
		}
		space := a.Space
		if renamed, ok := renames[space]; ok && space != "" && renamed != "" {
			space = renamed
		}
		existing, ok := attrValue(bucket.Root, space, a.Key)
		if !ok {
			key := a.Key
			if space != "" {
				key = space + ":" + a.Key
			}
			bucket.Root.CreateAttr(key, rewriteQName(a.Key, a.Value, renames))
			continue
		}
		if existing != a.Value && log != nil {
			log.Verbose("MergeAttributeConflict", "keeping "+a.FullKey()+"="+existing+" over "+a.Value+" from "+source)
		}
	}

	for _, child := range children {
		bucket.Root.AddChild(child)
	}
	bucket.Sources = append(bucket.Sources, source)
	return nil
}

// adaptSchemaDefault writes the incoming schema default explicitly onto the
// declarations it governs so the bucket's own default does not apply.
func adaptSchemaDefault(schema *etree.Element, key string, value string) {
	switch key {
	case "elementFormDefault":
		setOnLocalDeclarations(schema, "element", "form", value)
	case "attributeFormDefault":
		setOnLocalDeclarations(schema, "attribute", "form", value)
	case "blockDefault":
		walkElements(schema, func(e *etree.Element) {
			if e == schema || e.NamespaceURI() != XSDNamespace {
				return
			}
			if e.Tag != "element" && e.Tag != "complexType" {
				return
			}
			if _, ok := attrValue(e, "", "ref"); ok {
				return
			}
			if _, ok := attrValue(e, "", "block"); !ok {
				e.CreateAttr("block", value)
			}
		})
	case "finalDefault":
		for _, e := range schema.ChildElements() {
			if e.NamespaceURI() != XSDNamespace {
				continue
			}
			if e.Tag != "element" && e.Tag != "complexType" && e.Tag != "simpleType" {
				continue
			}
			if _, ok := attrValue(e, "", "final"); !ok {
				e.CreateAttr("final", value)
			}
		}
	}
}

// setOnLocalDeclarations sets attr on named, non-top-level declarations of
// the given kind that lack it. Top-level declarations are always qualified.
func setOnLocalDeclarations(schema *etree.Element, tag string, attr string, value string) {
	for _, top := range schema.ChildElements() {
		for _, child := range top.ChildElements() {
			walkElements(child, func(e *etree.Element) {
				if e.Tag != tag || e.NamespaceURI() != XSDNamespace {
					return
				}
				if _, ok := attrValue(e, "", "name"); !ok {
					return
				}
				if _, ok := attrValue(e, "", attr); !ok {
					e.CreateAttr(attr, value)
				}
			})
		}
	}
}

func quoteNamespace(namespace string) string {
	if namespace == "" {
		return "(none)"
	}
	return namespace
}
