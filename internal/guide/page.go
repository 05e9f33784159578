package guide

import (
	"net/url"
	"strings"
)

// SamePage reports whether two page identities name the same page. Full URLs
// compare by host and path. When either side is a path or a bare page name,
// only paths are compared. Query strings and fragments are ignored.
func SamePage(a, b string) bool {
	ha, pa, okA := pageIdentity(a)
	hb, pb, okB := pageIdentity(b)
	if !okA || !okB {
		return false
	}
	if ha != "" && hb != "" && ha != hb {
		return false
	}
	return pa == pb
}

func pageIdentity(s string) (host, path string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", "", false
	}
	host = strings.ToLower(u.Host)
	path = u.Path
	if u.Scheme != "" && host == "" {
		// opaque forms such as about:blank
		return "", s, true
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return host, path, true
}
