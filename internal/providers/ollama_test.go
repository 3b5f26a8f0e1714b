package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveOllamaEmbedModel_Default(t *testing.T) {
	t.Setenv("NOTEBOOK_OLLAMA_EMBED_MODEL", "")
	got := resolveOllamaEmbedModel("")
	if got != "nomic-embed-text" {
		t.Fatalf("expected default nomic-embed-text, got %q", got)
	}
	if got := resolveOllamaEmbedModel("all-minilm"); got != "all-minilm" {
		t.Fatalf("expected direct model name, got %q", got)
	}
	if got := resolveOllamaEmbedModel("mxbai"); got != "mxbai-embed-large" {
		t.Fatalf("expected alias lookup, got %q", got)
	}
	t.Setenv("NOTEBOOK_OLLAMA_EMBED_MODEL_MY_MODEL", "custom")
	if got := resolveOllamaEmbedModel("my.model"); got != "custom" {
		t.Fatalf("expected per-alias override, got %q", got)
	}
}

func TestMatchDimension(t *testing.T) {
	src := []float32{1, 2, 3}
	a := matchDimension(src, 2)
	if len(a) != 2 || a[0] != 1 || a[1] != 2 {
		t.Fatalf("truncate failed: %#v", a)
	}
	b := matchDimension(src, 5)
	if len(b) != 5 || b[0] != 1 || b[2] != 3 || b[3] != 0 || b[4] != 0 {
		t.Fatalf("pad failed: %#v", b)
	}
}

func TestOllamaEmbedPadsToDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		vecs := make([][]float32, len(body.Input))
		for i := range vecs {
			vecs[i] = []float32{0.5, 0.5}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vecs})
	}))
	defer srv.Close()
	t.Setenv("NOTEBOOK_OLLAMA_BASE_URL", srv.URL)

	p := NewOllamaEmbeddingProvider("", 0)
	vecs, info, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}, Dimension: 4})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if info.Name != "ollama" || len(vecs) != 2 || len(vecs[0]) != 4 {
		t.Fatalf("unexpected result: %+v %#v", info, vecs)
	}
}
