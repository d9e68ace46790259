package cache

import (
	"net/http"
	"strings"

	"github.com/always-cache/date-probe/rfc9111"
)

// KeyPrefix returns the cache key for a request without the vary headers.
// HEAD shares the key of GET, since a cache answers HEAD from a stored GET.
func KeyPrefix(r *http.Request) string {
	return http.MethodGet + ":" + r.URL.RequestURI() + "\t"
}

// AddVaryKeys returns the full cache key, including the request values of
// the fields the stored response varies on.
func AddVaryKeys(prefix string, req *http.Request, header http.Header) string {
	key := prefix
	for _, name := range rfc9111.GetListHeader(header, "Vary") {
		key = key + "\n" + strings.ToLower(name) + ": " + req.Header.Get(name)
	}
	return key
}
