package classify

import (
	"sort"
	"strings"

	"github.com/always-cache/date-probe/probe"
)

type providerKeywords struct {
	name   string
	names  []string
	values []string
}

var providers = []providerKeywords{
	{"akamai", []string{"x-akamai-", "akamai-"}, []string{"akamai", "akamaitechnologies", "akamaiedge", "akamaighost"}},
	{"cdn77", []string{"x-cdn77", "x-77"}, []string{"cdn77"}},
	{"cloudflare", []string{"cf-cache-status", "cf-ray", "cf-request-id"}, []string{"cloudflare"}},
	{"cloudfront", []string{"x-amz-cf-pop", "x-amz-cf-id", "x-amz-"}, []string{"cloudfront"}},
	{"fastly", nil, []string{"fastly"}},
	{"google", []string{"x-google-", "x-goog-"}, []string{"1.1 google"}},
	{"keycdn", nil, []string{"keycdn"}},
	{"azure", []string{"x-msedge-"}, []string{"azure"}},
	{"apache-ats", nil, []string{"apache", "ats/"}},
	{"nginx", []string{"x-nginx"}, []string{"nginx"}},
	{"rack-cache", []string{"x-rack-cache"}, []string{"rack-cache"}},
	{"squid", nil, []string{"squid"}},
	{"varnish", []string{"x-varnish"}, []string{"varnish"}},
}

// Header values of these fields often name third parties and say nothing
// about the caches in the path.
var providerDenylist = map[string]bool{
	"content-security-policy":             true,
	"content-security-policy-report-only": true,
	"access-control-allow-origin":         true,
}

// IdentifyProviders guesses the caching products in the response path from
// header names and values. The result is sorted and has no duplicates.
func IdentifyProviders(headers probe.Headers) []string {
	found := map[string]bool{}
	for _, f := range headers.Fields() {
		name := strings.ToLower(f.Name)
		if providerDenylist[name] {
			continue
		}
		value := strings.ToLower(f.Value)
		for _, p := range providers {
			if containsAny(name, p.names) || containsAny(value, p.values) {
				found[p.name] = true
			}
		}
	}
	list := make([]string, 0, len(found))
	for name := range found {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
