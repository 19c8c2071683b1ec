package core

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"apim-schema-import/internal/types"
)

// Locator turns reference locations into canonical keys. URLs (any scheme
// longer than one character, so Windows drive letters stay paths) are
// resolved with RFC 3986 rules; everything else is a filesystem path.
type Locator struct {
	// BaseDir, when set, anchors relative references instead of the
	// referencing document's directory.
	BaseDir string
	// WorkDir anchors relative roots. Empty means the process working
	// directory.
	WorkDir string
}

func NewLocator(baseDir string) Locator {
	return Locator{BaseDir: strings.TrimSpace(baseDir)}
}

// Canonical returns the canonical form of a root location.
func (l Locator) Canonical(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", types.NewResolutionError(types.ErrorKindMalformedReference, "", "location is empty")
	}
	if u, ok := parseURL(location); ok {
		return u.ResolveReference(&url.URL{}).String(), nil
	}
	if filepath.IsAbs(location) {
		return filepath.Clean(location), nil
	}
	workDir := l.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", types.NewResolutionError(types.ErrorKindMalformedReference, location, "cannot resolve relative location").WithCause(err)
		}
		workDir = wd
	}
	return filepath.Clean(filepath.Join(workDir, location)), nil
}

// Resolve resolves ref as written inside the document at owner.
func (l Locator) Resolve(owner string, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", types.NewResolutionError(types.ErrorKindMalformedReference, owner, "reference location is empty")
	}
	if _, ok := parseURL(ref); ok {
		return l.Canonical(ref)
	}
	if l.BaseDir != "" && !filepath.IsAbs(ref) && !strings.HasPrefix(ref, "/") {
		return l.resolveAgainst(l.BaseDir, ref, true)
	}
	if owner != "" {
		return l.resolveAgainst(owner, ref, false)
	}
	return l.Canonical(ref)
}

func (l Locator) resolveAgainst(base string, ref string, baseIsDir bool) (string, error) {
	if u, ok := parseURL(base); ok {
		if baseIsDir && !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		rel, err := url.Parse(filepath.ToSlash(ref))
		if err != nil {
			return "", types.NewResolutionError(types.ErrorKindMalformedReference, base, "invalid reference location "+ref).WithCause(err)
		}
		return u.ResolveReference(rel).String(), nil
	}
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref), nil
	}
	dir := base
	if !baseIsDir {
		dir = filepath.Dir(base)
	}
	return l.Canonical(filepath.Join(dir, filepath.FromSlash(ref)))
}

// DisplayName returns the file name of a location without its extension.
func DisplayName(location string) string {
	name := location
	if u, ok := parseURL(location); ok {
		name = path.Base(u.Path)
	} else {
		name = filepath.Base(location)
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// SourceName returns the file name of a location including its extension.
func SourceName(location string) string {
	if u, ok := parseURL(location); ok {
		return path.Base(u.Path)
	}
	return filepath.Base(location)
}

// IsHTTPLocation reports whether location is fetched over HTTP.
func IsHTTPLocation(location string) bool {
	u, ok := parseURL(location)
	if !ok {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func parseURL(location string) (*url.URL, bool) {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) < 2 {
		return nil, false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, true
}
