package core

import (
	"bytes"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/beevik/etree"
	"golang.org/x/text/encoding/htmlindex"

	"apim-schema-import/internal/types"
)

const (
	XSDNamespace    = "http://www.w3.org/2001/XMLSchema"
	WSDL11Namespace = "http://schemas.xmlsoap.org/wsdl/"
	WSDL20Namespace = "http://www.w3.org/ns/wsdl"
)

// ParseDocument builds a content tree from fetched bytes. A transport
// charset takes precedence over the XML declaration; otherwise the
// declaration's encoding is decoded through x/text.
func ParseDocument(doc types.Document) (*etree.Document, error) {
	content := doc.Content
	tree := etree.NewDocument()
	tree.ReadSettings.CharsetReader = charsetReader
	if charset := strings.TrimSpace(doc.Charset); charset != "" && !isUTF8(charset) {
		decoded, err := decodeCharset(charset, content)
		if err != nil {
			return nil, types.NewResolutionError(types.ErrorKindFetchFailure, doc.Location, "invalid charset").WithCause(err)
		}
		content = decoded
		tree.ReadSettings.CharsetReader = passThroughCharset
	}
	if err := tree.ReadFromBytes(content); err != nil {
		return nil, types.NewResolutionError(types.ErrorKindMalformedReference, doc.Location, "document is not well-formed XML").WithCause(err)
	}
	if tree.Root() == nil {
		return nil, types.NewResolutionError(types.ErrorKindMalformedReference, doc.Location, "document has no root element")
	}
	return tree, nil
}

// SerializeDocument renders the tree with two-space indentation.
func SerializeDocument(doc *etree.Document) ([]byte, error) {
	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to serialize document").
			WithCause(err)
	}
	return data, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if isUTF8(charset) {
		return input, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}

func passThroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

func decodeCharset(charset string, content []byte) ([]byte, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(content)))
}

func isUTF8(charset string) bool {
	normalized := strings.ToLower(strings.TrimSpace(charset))
	return normalized == "utf-8" || normalized == "utf8"
}

// isElement reports whether e is the named element in the given namespace,
// resolving its prefix through the element's ancestors.
func isElement(e *etree.Element, namespace string, local string) bool {
	return e != nil && e.Tag == local && e.NamespaceURI() == namespace
}

func childElements(e *etree.Element, namespace string, local string) []*etree.Element {
	var out []*etree.Element
	for _, child := range e.ChildElements() {
		if isElement(child, namespace, local) {
			out = append(out, child)
		}
	}
	return out
}

func firstChild(e *etree.Element, namespace string, local string) *etree.Element {
	for _, child := range e.ChildElements() {
		if isElement(child, namespace, local) {
			return child
		}
	}
	return nil
}

// attrValue looks up an attribute by exact prefix and key. SelectAttr would
// match any prefix for an unprefixed key.
func attrValue(e *etree.Element, space string, key string) (string, bool) {
	for _, a := range e.Attr {
		if a.Space == space && a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// namespaceDecls returns the declarations made directly on e, keyed by
// prefix. The default namespace uses the empty prefix.
func namespaceDecls(e *etree.Element) map[string]string {
	decls := map[string]string{}
	for _, a := range e.Attr {
		switch {
		case a.Space == "xmlns":
			decls[a.Key] = a.Value
		case a.Space == "" && a.Key == "xmlns":
			decls[""] = a.Value
		}
	}
	return decls
}

// inScopeDecls merges declarations from the root of e's tree down to e,
// nearest declaration winning.
func inScopeDecls(e *etree.Element) map[string]string {
	var chain []*etree.Element
	for cur := e; cur != nil; cur = cur.Parent() {
		chain = append(chain, cur)
	}
	decls := map[string]string{}
	for i := len(chain) - 1; i >= 0; i-- {
		for prefix, uri := range namespaceDecls(chain[i]) {
			decls[prefix] = uri
		}
	}
	return decls
}

// prefixResolves reports whether an element prefix is bound in scope.
func prefixResolves(e *etree.Element, prefix string) bool {
	if prefix == "" || prefix == "xml" {
		return true
	}
	for cur := e; cur != nil; cur = cur.Parent() {
		if _, ok := attrValue(cur, "xmlns", prefix); ok {
			return true
		}
	}
	return false
}

func targetNamespace(e *etree.Element) string {
	value, _ := attrValue(e, "", "targetNamespace")
	return strings.TrimSpace(value)
}

// qualifiedTag returns the tag to use for a new element in namespace uri
// under scope, minting a declaration through table when none is in scope.
func qualifiedTag(scope *etree.Element, table *PrefixTable, uri string, local string) string {
	if prefix, ok := table.Lookup(uri); ok {
		if prefix == "" {
			return local
		}
		return prefix + ":" + local
	}
	prefix := table.Mint(uri)
	scope.CreateAttr("xmlns:"+prefix, uri)
	return prefix + ":" + local
}

func walkElements(e *etree.Element, fn func(*etree.Element)) {
	fn(e)
	for _, child := range e.ChildElements() {
		walkElements(child, fn)
	}
}
