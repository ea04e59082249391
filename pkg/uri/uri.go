// Package uri implements the capture:// addressing scheme used to refer
// to resources inside a parsed capture:
//
//	capture://<capture-id>                         the capture itself
//	capture://<capture-id>/<resource-type>         all resources of a type
//	capture://<capture-id>/<resource-type>/<ns>    scoped to a namespace
package uri

import (
	"net/url"
	"strings"

	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
)

// Scheme is the URI scheme for capture references.
const Scheme = "capture"

// Ref is a parsed capture reference. ResourceType and Namespace are
// optional and empty when the reference addresses the whole capture.
type Ref struct {
	CaptureID    string
	ResourceType string
	Namespace    string
}

// Parse validates and decomposes a capture URI.
func Parse(raw string) (Ref, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, glerrors.Wrap(glerrors.ErrCodeInvalidRequest, "invalid capture URI", err)
	}
	if u.Scheme != Scheme {
		return Ref{}, glerrors.Newf(glerrors.ErrCodeInvalidRequest,
			"unsupported URI scheme %q, expected %q", u.Scheme, Scheme)
	}
	if u.Host == "" {
		return Ref{}, glerrors.New(glerrors.ErrCodeInvalidRequest, "capture URI has no capture id")
	}

	ref := Ref{CaptureID: u.Host}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "":
		// Capture-level reference.
	case len(parts) == 1:
		ref.ResourceType = parts[0]
	case len(parts) == 2:
		ref.ResourceType = parts[0]
		ref.Namespace = parts[1]
	default:
		return Ref{}, glerrors.Newf(glerrors.ErrCodeInvalidRequest,
			"capture URI has too many path segments: %q", u.Path)
	}

	return ref, nil
}

// String renders the reference back into URI form.
func (r Ref) String() string {
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString("://")
	b.WriteString(r.CaptureID)
	if r.ResourceType != "" {
		b.WriteByte('/')
		b.WriteString(r.ResourceType)
		if r.Namespace != "" {
			b.WriteByte('/')
			b.WriteString(r.Namespace)
		}
	}
	return b.String()
}
