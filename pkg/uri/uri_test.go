package uri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	glerrors "github.com/gatherlens/gatherlens/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Ref
	}{
		{
			name: "capture only",
			raw:  "capture://abc-123",
			want: Ref{CaptureID: "abc-123"},
		},
		{
			name: "resource type",
			raw:  "capture://abc-123/pods",
			want: Ref{CaptureID: "abc-123", ResourceType: "pods"},
		},
		{
			name: "resource type and namespace",
			raw:  "capture://abc-123/pods/kube-system",
			want: Ref{CaptureID: "abc-123", ResourceType: "pods", Namespace: "kube-system"},
		},
		{
			name: "trailing slash",
			raw:  "capture://abc-123/",
			want: Ref{CaptureID: "abc-123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, raw := range []string{
		"http://abc-123/pods",
		"capture://",
		"capture://abc-123/pods/ns/extra",
		"pods/kube-system",
	} {
		_, err := Parse(raw)
		require.Error(t, err, "uri %q", raw)
		assert.True(t, glerrors.HasCode(err, glerrors.ErrCodeInvalidRequest), "uri %q", raw)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, raw := range []string{
		"capture://abc-123",
		"capture://abc-123/nodes",
		"capture://abc-123/pods/kube-system",
	} {
		ref, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, ref.String())
	}
}
