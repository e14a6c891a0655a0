package config

import (
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Pinecone.IndexName != "drupal_articles" {
		t.Errorf("expected IndexName='drupal_articles', got %q", cfg.Pinecone.IndexName)
	}
	if cfg.Pinecone.ControlPlaneURL != "https://api.pinecone.io" {
		t.Errorf("expected ControlPlaneURL='https://api.pinecone.io', got %q", cfg.Pinecone.ControlPlaneURL)
	}
	if cfg.Pinecone.TimeoutSec != 30 {
		t.Errorf("expected TimeoutSec=30, got %d", cfg.Pinecone.TimeoutSec)
	}
	if cfg.Embedding.Provider != "pinecone" {
		t.Errorf("expected Provider='pinecone', got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Model != "multilingual-e5-large" {
		t.Errorf("expected Model='multilingual-e5-large', got %q", cfg.Embedding.Model)
	}
	if cfg.Search.DefaultTopK != 10 {
		t.Errorf("expected DefaultTopK=10, got %d", cfg.Search.DefaultTopK)
	}
	if cfg.Search.MaxTopK != 100 {
		t.Errorf("expected MaxTopK=100, got %d", cfg.Search.MaxTopK)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 5, WriteTimeoutSec: 60, ShutdownSec: 5},
		Pinecone: PineconeConfig{IndexName: "articles", ControlPlaneURL: "https://pinecone.test", TimeoutSec: 5},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Search: SearchConfig{DefaultTopK: 3, MaxTopK: 50},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("expected ReadTimeoutSec=5, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Pinecone.IndexName != "articles" {
		t.Errorf("expected IndexName='articles', got %q", cfg.Pinecone.IndexName)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("expected Provider='openai', got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected Model='text-embedding-3-small', got %q", cfg.Embedding.Model)
	}
	if cfg.Search.DefaultTopK != 3 {
		t.Errorf("expected DefaultTopK=3, got %d", cfg.Search.DefaultTopK)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := Config{HTTP: HTTPConfig{Port: port}}
		cfg.ApplyDefaults()

		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for port %d", port)
		}
	}
}

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Embedding: EmbeddingConfig{Provider: "cohere"},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}

	expected := `embedding.provider must be "pinecone" or "openai", got "cohere"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidProviders(t *testing.T) {
	for _, provider := range []string{"pinecone", "openai"} {
		t.Run("provider="+provider, func(t *testing.T) {
			cfg := Config{
				HTTP:      HTTPConfig{Port: 8080},
				Embedding: EmbeddingConfig{Provider: provider},
			}
			cfg.ApplyDefaults()

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for provider %q: %v", provider, err)
			}
		})
	}
}

func TestValidate_DefaultTopKAboveMax(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 8080},
		Search: SearchConfig{DefaultTopK: 200, MaxTopK: 100},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default_top_k exceeds max_top_k")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PINEBRIDGE_TEST_KEY", "secret")

	in := []byte("api_key: ${PINEBRIDGE_TEST_KEY}\nindex_name: ${PINEBRIDGE_TEST_INDEX:-drupal_articles}\n")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nindex_name: drupal_articles\n"
	if out != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, want)
	}
}

func TestExpandEnvVars_SetVarBeatsDefault(t *testing.T) {
	t.Setenv("PINEBRIDGE_TEST_INDEX", "articles")

	in := []byte("index_name: ${PINEBRIDGE_TEST_INDEX:-drupal_articles}\n")
	out := string(expandEnvVars(in))

	if out != "index_name: articles\n" {
		t.Errorf("unexpected expansion: %q", out)
	}
}
