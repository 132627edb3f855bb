package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/amishk599/jobalert/internal/config"
	"github.com/amishk599/jobalert/internal/model"
	"github.com/amishk599/jobalert/internal/store"
)

const testConfig = `
gateway:
  type: log
harvester:
  sources:
    - name: linkedin
      type: linkedin
      enabled: true
`

func TestLoadConfig_EnvFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alt.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JOBALERT_CONFIG", path)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Gateway.Type != "log" {
		t.Errorf("Gateway.Type = %q", cfg.Gateway.Type)
	}
}

func TestLoadConfig_ExplicitPathWins(t *testing.T) {
	t.Setenv("JOBALERT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
}

func TestSeedPostingsAreValid(t *testing.T) {
	for _, p := range seedPostings {
		if err := p.Validate(); err != nil {
			t.Errorf("%q: %v", p.Title, err)
		}
	}
}

func TestCreateHarvester_KnownTypes(t *testing.T) {
	cfg := &config.Config{}
	for _, typ := range []string{config.SourceLinkedIn, config.SourceInternshala, config.SourceGreenhouse, config.SourceLever, config.SourceAshby, config.SourceGem} {
		src := config.SourceConfig{Name: typ, Type: typ, Boards: []string{"acme"}}
		if _, ok := createHarvester(src, cfg, nil); !ok {
			t.Errorf("createHarvester(%q) not supported", typ)
		}
	}
	if _, ok := createHarvester(config.SourceConfig{Type: "indeed"}, cfg, nil); ok {
		t.Error("unknown type should not be supported")
	}
}

func TestRunStart_ReturnsConfigError(t *testing.T) {
	old := cfgPath
	cfgPath = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { cfgPath = old })

	if err := runStart(startCmd, nil); err == nil {
		t.Fatal("expected runStart to return the config error")
	}
}

func TestRunBroadcast_ReachesActiveSubscribers(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "jobalert.db")
	cfgFile := filepath.Join(dir, "config.yaml")
	data := testConfig + "store:\n  driver: sqlite\n  dsn: " + dbPath + "\n"
	if err := os.WriteFile(cfgFile, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, store.DriverSQLite, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []int64{1, 2} {
		sub := model.Subscriber{ID: id, Category: model.CategoryJob, Mode: model.ModeRemote, Topics: []string{"DevOps"}, Active: true}
		if err := st.UpsertSubscriber(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}
	st.Close()

	oldPath, oldMsg := cfgPath, broadcastMessage
	cfgPath, broadcastMessage = cfgFile, "New jobs available"
	t.Cleanup(func() { cfgPath, broadcastMessage = oldPath, oldMsg })

	if err := runBroadcast(broadcastCmd, nil); err != nil {
		t.Fatalf("runBroadcast: %v", err)
	}
}
