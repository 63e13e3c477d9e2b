package realm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRealmName(t *testing.T) {
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"/auth/realms/foo/bars/baz", "foo", true},
		{"/auth/realms/foo", "foo", true},
		{"/realms/demo/", "demo", true},
		{"/auth/admin/console", "", false},
		{"/auth/realms/", "", false},
		{"/auth/realms//account", "", false},
		{"", "", false},
		{"/auth/realms/foo/realms/bar/x", "bar", true},
		{"/auth/realms/foo/realms/", "foo", true},
		{"/realms/realms/x", "x", true},
		{"/auth/realmsfoo/bar", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ParseRealmName(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
