package core

import (
	"maps"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const DefaultPrefixStem = "MS"

// qnameAttributes hold single QName values whose unprefixed form resolves
// through the default namespace.
var qnameAttributes = map[string]struct{}{
	"type":              {},
	"ref":               {},
	"base":              {},
	"itemType":          {},
	"substitutionGroup": {},
	"refer":             {},
	"element":           {},
	"message":           {},
	"binding":           {},
}

// PrefixTable maps namespace URIs to the prefixes used for them in one
// merge target. Minted prefixes use the stem plus a suffix one above the
// highest suffix ever registered; suffixes are never reused.
type PrefixTable struct {
	stem       string
	byURI      map[string]string
	byPrefix   map[string]string
	defaultNS  string
	hasDefault bool
	highWater  int
}

func NewPrefixTable(stem string) *PrefixTable {
	if strings.TrimSpace(stem) == "" {
		stem = DefaultPrefixStem
	}
	return &PrefixTable{
		stem:     stem,
		byURI:    map[string]string{},
		byPrefix: map[string]string{},
	}
}

// PrefixTableFor seeds a table with every declaration in scope at e.
func PrefixTableFor(e *etree.Element, stem string) *PrefixTable {
	table := NewPrefixTable(stem)
	decls := inScopeDecls(e)
	prefixes := make([]string, 0, len(decls))
	for prefix := range decls {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		table.Bind(prefix, decls[prefix])
	}
	return table
}

func (t *PrefixTable) Stem() string {
	return t.stem
}

// Bind registers prefix for uri. The empty prefix sets the default
// namespace. The first prefix bound to a URI stays its preferred prefix.
func (t *PrefixTable) Bind(prefix string, uri string) {
	if prefix == "" {
		t.defaultNS = uri
		t.hasDefault = true
		return
	}
	if previous, ok := t.byPrefix[prefix]; ok && t.byURI[previous] == prefix {
		delete(t.byURI, previous)
	}
	t.byPrefix[prefix] = uri
	if _, ok := t.byURI[uri]; !ok {
		t.byURI[uri] = prefix
	}
	if suffix, ok := t.suffix(prefix); ok && suffix > t.highWater {
		t.highWater = suffix
	}
}

// Lookup returns the prefix bound to uri, falling back to "" when uri is
// the default namespace.
func (t *PrefixTable) Lookup(uri string) (string, bool) {
	if prefix, ok := t.LookupPrefixed(uri); ok {
		return prefix, true
	}
	if t.hasDefault && t.defaultNS == uri && uri != "" {
		return "", true
	}
	return "", false
}

// LookupPrefixed ignores the default namespace.
func (t *PrefixTable) LookupPrefixed(uri string) (string, bool) {
	prefix, ok := t.byURI[uri]
	return prefix, ok
}

func (t *PrefixTable) Namespace(prefix string) (string, bool) {
	if prefix == "" {
		return t.defaultNS, t.hasDefault
	}
	uri, ok := t.byPrefix[prefix]
	return uri, ok
}

func (t *PrefixTable) Default() (string, bool) {
	return t.defaultNS, t.hasDefault
}

// Mint allocates a fresh prefix for uri and binds it.
func (t *PrefixTable) Mint(uri string) string {
	next := t.highWater + 1
	prefix := t.stem + strconv.Itoa(next)
	for {
		if _, taken := t.byPrefix[prefix]; !taken {
			break
		}
		next++
		prefix = t.stem + strconv.Itoa(next)
	}
	t.byPrefix[prefix] = uri
	t.byURI[uri] = prefix
	t.highWater = next
	return prefix
}

// Remove forgets prefix. The high-water mark is kept.
func (t *PrefixTable) Remove(prefix string) {
	uri, ok := t.byPrefix[prefix]
	if !ok {
		return
	}
	delete(t.byPrefix, prefix)
	if t.byURI[uri] != prefix {
		return
	}
	delete(t.byURI, uri)
	others := make([]string, 0)
	for other, otherURI := range t.byPrefix {
		if otherURI == uri {
			others = append(others, other)
		}
	}
	if len(others) > 0 {
		sort.Strings(others)
		t.byURI[uri] = others[0]
	}
}

func (t *PrefixTable) HighWater() int {
	return t.highWater
}

// IsMinted reports whether prefix has the stem-plus-integer shape.
func (t *PrefixTable) IsMinted(prefix string) bool {
	_, ok := t.suffix(prefix)
	return ok
}

func (t *PrefixTable) suffix(prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(prefix, t.stem)
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	value, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Reconciler re-homes incoming fragments into the lexical scope of Scope,
// whose in-scope prefixes are tracked by Table.
type Reconciler struct {
	Table *PrefixTable
	Scope *etree.Element
}

func NewReconciler(table *PrefixTable, scope *etree.Element) Reconciler {
	return Reconciler{Table: table, Scope: scope}
}

// Reconcile maps every namespace the fragment declares onto the parent
// scope and rewrites the fragment in place. It returns the incoming prefix
// to parent prefix renames that were applied.
func (r Reconciler) Reconcile(fragment []*etree.Element, decls map[string]string) map[string]string {
	return r.reconcile(fragment, decls, true)
}

// ReconcileChameleon reconciles a fragment from a schema without a target
// namespace that now belongs to namespace. The fragment keeps the parent's
// default namespace, and its unprefixed QName values are qualified with
// the prefix bound to namespace.
func (r Reconciler) ReconcileChameleon(fragment []*etree.Element, decls map[string]string, namespace string) map[string]string {
	renames := r.reconcile(fragment, decls, false)
	r.QualifyChameleon(fragment, namespace)
	return renames
}

func (r Reconciler) reconcile(fragment []*etree.Element, decls map[string]string, isolateDefault bool) map[string]string {
	prefixes := make([]string, 0, len(decls))
	for prefix := range decls {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	renames := map[string]string{}
	processed := map[string]string{}
	for _, prefix := range prefixes {
		uri := decls[prefix]
		if prefix == "xml" || uri == "" {
			continue
		}
		key := uri
		if prefix == "" {
			key = "\x00default:" + uri
		}
		if target, ok := processed[key]; ok {
			renames[prefix] = target
			continue
		}
		target := r.target(prefix, uri)
		processed[key] = target
		renames[prefix] = target
	}

	if _, incomingDefault := decls[""]; isolateDefault && !incomingDefault {
		if parentDefault, ok := r.Table.Default(); ok && parentDefault != "" {
			for _, e := range fragment {
				if _, declared := attrValue(e, "", "xmlns"); !declared {
					e.CreateAttr("xmlns", "")
				}
			}
		}
	}

	for _, e := range fragment {
		rewriteScoped(e, renames)
	}
	return renames
}

// QualifyChameleon points unprefixed QName values in fragment at
// namespace. A prefix is minted on Scope only when a value needs one.
// Subtrees that declare a non-empty default namespace are left alone.
func (r Reconciler) QualifyChameleon(fragment []*etree.Element, namespace string) {
	if namespace == "" {
		return
	}
	prefix, bound := r.Table.LookupPrefixed(namespace)
	viaDefault := false
	if defaultNS, ok := r.Table.Default(); ok && defaultNS == namespace {
		viaDefault = true
	}
	qualifier := func(emptyDefault bool) string {
		if bound {
			return prefix
		}
		if viaDefault && !emptyDefault {
			return ""
		}
		prefix = r.Table.Mint(namespace)
		r.Scope.CreateAttr("xmlns:"+prefix, namespace)
		bound = true
		return prefix
	}

	var visit func(e *etree.Element, emptyDefault bool)
	visit = func(e *etree.Element, emptyDefault bool) {
		if local, ok := attrValue(e, "", "xmlns"); ok {
			if local != "" {
				return
			}
			emptyDefault = true
		}
		for i := range e.Attr {
			a := &e.Attr[i]
			if a.Space != "" {
				continue
			}
			if _, ok := qnameAttributes[a.Key]; !ok {
				continue
			}
			value := strings.TrimSpace(a.Value)
			if value == "" || strings.Contains(value, ":") || strings.ContainsAny(value, " \t\n\r") {
				continue
			}
			if p := qualifier(emptyDefault); p != "" {
				a.Value = p + ":" + value
			}
		}
		for _, child := range e.ChildElements() {
			visit(child, emptyDefault)
		}
	}
	for _, e := range fragment {
		visit(e, false)
	}
}

func (r Reconciler) target(prefix string, uri string) string {
	if prefix == "" {
		if existing, ok := r.Table.Lookup(uri); ok {
			return existing
		}
	} else if existing, ok := r.Table.LookupPrefixed(uri); ok {
		return existing
	}
	minted := r.Table.Mint(uri)
	r.Scope.CreateAttr("xmlns:"+minted, uri)
	return minted
}

func rewriteScoped(e *etree.Element, renames map[string]string) {
	active := renames
	if local := namespaceDecls(e); len(local) > 0 {
		active = maps.Clone(renames)
		for prefix := range local {
			delete(active, prefix)
		}
	}
	if len(active) == 0 {
		return
	}
	if target, ok := active[e.Space]; ok {
		e.Space = target
	}
	for i := range e.Attr {
		a := &e.Attr[i]
		if isNamespaceDecl(*a) || a.Space == "xml" {
			continue
		}
		if a.Space != "" {
			if target, ok := active[a.Space]; ok && target != "" {
				a.Space = target
			}
		}
		a.Value = rewriteQName(a.Key, a.Value, active)
	}
	for _, child := range e.ChildElements() {
		rewriteScoped(child, active)
	}
}

// rewriteQName rewrites a value holding exactly one prefix:local pair. Values
// that are absolute http(s) URIs are left alone.
func rewriteQName(key string, value string, renames map[string]string) string {
	trimmed := strings.TrimSpace(value)
	switch strings.Count(trimmed, ":") {
	case 1:
		if isAbsoluteHTTP(trimmed) {
			return value
		}
		prefix, local, _ := strings.Cut(trimmed, ":")
		if prefix == "" || local == "" {
			return value
		}
		target, ok := renames[prefix]
		if !ok || target == prefix {
			return value
		}
		if target == "" {
			return local
		}
		return target + ":" + local
	case 0:
		if _, ok := qnameAttributes[key]; !ok || trimmed == "" || strings.ContainsAny(trimmed, " \t\n\r") {
			return value
		}
		if target, ok := renames[""]; ok && target != "" {
			return target + ":" + trimmed
		}
	}
	return value
}

func isAbsoluteHTTP(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
