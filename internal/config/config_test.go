package config

import "testing"

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
}

func TestEnvFloatValid(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.55")
	v, err := envFloat("TEST_FLOAT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.55 {
		t.Fatalf("expected 0.55, got %v", v)
	}
}

func TestEnvStrSliceSplitsAndTrims(t *testing.T) {
	t.Setenv("TEST_SLICE", "a, b ,c")
	got := envStrSlice("TEST_SLICE", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLoadAppliesFloors(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x/y")
	t.Setenv("HEADKEY_SEARCH_TIMEOUT_MS", "10")
	t.Setenv("HEADKEY_MAX_RESULTS", "0")
	t.Setenv("HEADKEY_STREAM_PAGE_SIZE", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SearchTimeoutMS != 1000 {
		t.Fatalf("expected floor 1000, got %d", cfg.SearchTimeoutMS)
	}
	if cfg.MaxResults != 1 {
		t.Fatalf("expected floor 1, got %d", cfg.MaxResults)
	}
	if cfg.StreamPageSize != 10 {
		t.Fatalf("expected floor 10, got %d", cfg.StreamPageSize)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("HEADKEY_BACKEND", "bogus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadDefaultsAvailableCategories(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x/y")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AvailableCategories) != 11 {
		t.Fatalf("expected 11 default categories, got %d", len(cfg.AvailableCategories))
	}
}
