package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/titanite07/TechVault/internal/domain"
)

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("VAULTCTL_CONFIG", filepath.Join(t.TempDir(), "nested", "config.json"))

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load missing config: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL || cfg.AccessToken != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	cfg.AccessToken = "token-1"
	cfg.Username = "admin"
	if err := saveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := loadConfig()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.AccessToken != "token-1" || got.Username != "admin" {
		t.Fatalf("unexpected reloaded config %+v", got)
	}
}

func TestAuthedClientRequiresLogin(t *testing.T) {
	t.Setenv("VAULTCTL_CONFIG", filepath.Join(t.TempDir(), "config.json"))
	if _, _, err := authedClient(); err == nil || !strings.Contains(err.Error(), "login") {
		t.Fatalf("expected login hint, got %v", err)
	}
	if err := saveConfig(cliConfig{AccessToken: "t", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, _, err := authedClient(); err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestParseTypeFlag(t *testing.T) {
	cases := map[string]domain.AssetType{"": "", "all": "", "monitor": domain.AssetTypeMonitor, "License": domain.AssetTypeLicense}
	for raw, want := range cases {
		got, err := parseTypeFlag(raw)
		if err != nil || got != want {
			t.Fatalf("parseTypeFlag(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := parseTypeFlag("tablet"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestFilterAndPrintAssets(t *testing.T) {
	who := "alice"
	assets := []domain.Asset{
		{ID: "1", Name: "LG 27", Type: domain.AssetTypeMonitor, Status: domain.AssetStatusAssigned, AssignedTo: &who},
		{ID: "2", Name: "Latitude", Type: domain.AssetTypeLaptop, Status: domain.AssetStatusAvailable},
	}
	filtered := filterAssets(assets, domain.AssetTypeMonitor)
	if len(filtered) != 1 || filtered[0].ID != "1" {
		t.Fatalf("unexpected filter result %+v", filtered)
	}
	if len(filterAssets(assets, "")) != 2 {
		t.Fatalf("empty filter must keep everything")
	}

	var buf bytes.Buffer
	printAssets(&buf, filtered)
	out := buf.String()
	if !strings.Contains(out, "LG 27") || !strings.Contains(out, "alice") || strings.Contains(out, "Latitude") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestPrintAnalytics(t *testing.T) {
	a := domain.NewAnalytics()
	a.Total = 1
	a.ByType[domain.AssetTypeLaptop] = 1
	a.ByStatus[domain.AssetStatusAvailable] = 1
	a.RecentAssets = []domain.RecentAsset{{Name: "Latitude", Type: domain.AssetTypeLaptop}}

	var buf bytes.Buffer
	printAnalytics(&buf, a)
	out := buf.String()
	for _, want := range []string{"Total assets: 1", "Laptop", "Maintenance", "Latitude (Laptop)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
