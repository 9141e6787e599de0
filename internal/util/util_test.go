package util

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestNewProxyFunc_NoProxyBypass(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "localhost, .internal.example")

	tests := []struct {
		url    string
		direct bool
	}{
		{"http://localhost:11434/api/tags", true},
		{"http://llm.internal.example/v1", true},
		{"http://api.openai.com/v1", false},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("proxy(%s): %v", tt.url, err)
		}
		if tt.direct && got != nil {
			t.Errorf("%s: expected direct connection, got %v", tt.url, got)
		}
		if !tt.direct && (got == nil || got.Host != "proxy.local:3128") {
			t.Errorf("%s: expected proxy, got %v", tt.url, got)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")

	if err := WriteFileAtomic(path, []byte(`{"version":1}`), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte(`{"version":2}`), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"version":2}` {
		t.Errorf("unexpected content %s", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}
