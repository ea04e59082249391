package server

import (
	"net/http"
	"strings"
)

// DefaultAPIVersion is served when the client does not negotiate one.
const DefaultAPIVersion = "v1"

// vendorMediaPrefix is the Accept-header prefix for versioned responses,
// e.g. application/vnd.gatherlens.v1+json.
const vendorMediaPrefix = "application/vnd.gatherlens."

var supportedAPIVersions = map[string]struct{}{
	"v1": {},
}

// negotiateAPIVersion picks the API version from the Accept header.
// Unknown or malformed versions fall back to the default.
func negotiateAPIVersion(r *http.Request) string {
	accept := r.Header.Get("Accept")
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, vendorMediaPrefix) {
			continue
		}
		rest := strings.TrimPrefix(part, vendorMediaPrefix)
		version, _, _ := strings.Cut(rest, "+")
		if isValidAPIVersion(version) {
			return version
		}
	}
	return DefaultAPIVersion
}

func isValidAPIVersion(version string) bool {
	_, ok := supportedAPIVersions[version]
	return ok
}
