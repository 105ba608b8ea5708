// Package images reconciles product image references. A reference is always a
// plain string in one of three shapes: an absolute URL (http/https), a
// server-relative uploads path (/uploads/... ), or a bare filename assumed to
// live under the local products directory. The functions here produce the
// canonical stored form of a product's image list and the fully-qualified
// display form returned to clients.
package images

import (
	"encoding/json"
	"path"
	"regexp"
	"strings"

	"github.com/useandsell/marketplace/internal/forms"
)

// ProductsPrefix is the URL prefix every locally hosted product image is
// served under.
const ProductsPrefix = "/uploads/products/"

var backslashes = regexp.MustCompile(`\\+`)

// Merge builds the stored image list for a create or update: kept references
// first, then externally supplied URLs, then freshly uploaded results. Empty
// entries are dropped; duplicates and order are preserved as given.
func Merge(kept, external, uploaded []string) []string {
	out := make([]string, 0, len(kept)+len(external)+len(uploaded))
	out = append(out, compact(kept)...)
	out = append(out, compact(external)...)
	out = append(out, compact(uploaded)...)
	return out
}

// ParseKept decodes the existingImages field of an update request. A list
// value (JSON array or repeated form values) is taken as-is; a single string
// is treated as a JSON-encoded list. Anything that fails to parse, or parses
// to something other than a list, degrades silently to an empty list.
func ParseKept(v forms.Value) []string {
	if v.IsAbsent() {
		return nil
	}
	if v.IsMany() {
		return v.Strings()
	}

	raw, _ := v.First()
	if raw == "" {
		return nil
	}
	var decoded []any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil
	}
	out := make([]string, 0, len(decoded))
	for _, e := range decoded {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Rewrite turns a stored reference into the URL a client can fetch. baseURL is
// the request's resolved scheme://host. The rewrite is idempotent: absolute
// URLs pass through untouched.
func Rewrite(baseURL, ref string) string {
	s := strings.TrimSpace(backslashes.ReplaceAllString(ref, "/"))

	switch {
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return s
	case strings.HasPrefix(s, ProductsPrefix):
		return baseURL + s
	case strings.HasPrefix(s, "/uploads/"):
		parts := strings.Split(s, "/")
		fname := parts[len(parts)-1]
		return baseURL + ProductsPrefix + fname
	default:
		return baseURL + ProductsPrefix + strings.TrimLeft(s, "/")
	}
}

// RewriteAll maps Rewrite over a stored list, never returning nil so clients
// always see a JSON array.
func RewriteAll(baseURL string, refs []string) []string {
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = Rewrite(baseURL, ref)
	}
	return out
}

// LocalFilename resolves the safe filename component of a locally stored
// reference for filesystem cleanup. Absolute URLs report false: they are not
// ours to delete.
func LocalFilename(ref string) (string, bool) {
	s := strings.TrimSpace(backslashes.ReplaceAllString(ref, "/"))
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return "", false
	}
	name := path.Base(s)
	if name == "" || name == "." || name == "/" {
		return "", false
	}
	return name, true
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
