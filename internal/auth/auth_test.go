package auth

import (
	"net/http"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer tok-1", want: "tok-1"},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "empty token", header: "Bearer   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := ExtractBearerToken(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractBearerToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractBearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	tokens := []TokenConfig{
		{Token: "scoped", Scopes: []string{"script:rw"}},
	}

	p, ok := Authenticate("admin-key", "admin-key", tokens)
	if !ok {
		t.Fatal("legacy key rejected")
	}
	if !HasAnyScope(p, "anything") {
		t.Error("admin principal should match any scope")
	}

	p, ok = Authenticate("scoped", "admin-key", tokens)
	if !ok {
		t.Fatal("scoped token rejected")
	}
	if !HasAnyScope(p, "script:ro") {
		t.Error("script:rw should imply script:ro")
	}
	if HasAnyScope(p, "journal:ro") {
		t.Error("scoped token must not gain unrelated scopes")
	}

	if _, ok := Authenticate("wrong", "admin-key", tokens); ok {
		t.Error("unknown token accepted")
	}
	if _, ok := Authenticate("", "", nil); ok {
		t.Error("empty token accepted against empty config")
	}
}
