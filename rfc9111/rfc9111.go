// Package rfc9111 holds the pieces of HTTP Caching (RFC 9111) that a cache
// prober needs to read and the simulated edge needs to write: HTTP-dates,
// the Age field, Cache-Control directives, and the age arithmetic of
// section 4.2.3.
//
// Comments prefixed with § quote the RFC.
package rfc9111

import (
	"net/http"
	"strings"
)

// GetListHeader returns the members of a list-based header field,
// across all field lines, in order.
func GetListHeader(header http.Header, field string) []string {
	list := make([]string, 0)
	for _, hdr := range header.Values(field) {
		for _, item := range strings.Split(hdr, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}

// StorableHeader returns a copy of the header with hop-by-hop fields removed.
//
// §     *  The Connection header field and fields whose names are listed in
// §        it are required by Section 7.6.1 of [HTTP] to be removed before
// §        forwarding the message.  This MAY be implemented by doing so
// §        before storage.
func StorableHeader(header http.Header) http.Header {
	if header == nil {
		return nil
	}
	h := header.Clone()
	for _, name := range GetListHeader(header, "Connection") {
		h.Del(name)
	}
	for _, name := range []string{"Connection", "Proxy-Connection", "Keep-Alive", "TE", "Transfer-Encoding", "Upgrade"} {
		h.Del(name)
	}
	return h
}
