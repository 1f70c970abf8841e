package config

import (
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("K2_HOST", "kartenleser.praxis.local")
	t.Setenv("K2_PORT", "8089")
	t.Setenv("K2_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set var", "host: ${K2_HOST}", "host: kartenleser.praxis.local"},
		{"unset var", "host: ${K2_UNSET_12345}", "host: "},
		{"default when unset", "host: ${K2_UNSET_12345:-localhost}", "host: localhost"},
		{"default ignored when set", "port: ${K2_PORT:-9999}", "port: 8089"},
		{"default when empty", "host: ${K2_EMPTY:-localhost}", "host: localhost"},
		{"empty default", "host: ${K2_UNSET_12345:-}", "host: "},
		{"multiple vars", "${K2_HOST}:${K2_PORT}", "kartenleser.praxis.local:8089"},
		{"escaped", "token: $${K2_HOST}", "token: ${K2_HOST}"},
		{"escaped next to expanded", "$${K2_PORT}=${K2_PORT}", "${K2_PORT}=8089"},
		{"no vars", "output:\n  path: /var/lib/k2", "output:\n  path: /var/lib/k2"},
		{"bare dollar untouched", "price: $5 and $K2_HOST", "price: $5 and $K2_HOST"},
		{"invalid name untouched", "${1ABC}", "${1ABC}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_NestedInYAML(t *testing.T) {
	t.Setenv("HOOK_TOKEN", "secret")

	input := `adapter:
  type: webhook
  headers:
    Authorization: Bearer ${HOOK_TOKEN}`

	got := ExpandEnv(input)
	want := `adapter:
  type: webhook
  headers:
    Authorization: Bearer secret`

	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
