package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func createTestConfigDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	return dir
}

func createValidPreset() *Preset {
	return &Preset{
		Name:            "Test Preset",
		Description:     "Test configuration",
		MaxPlayers:      4,
		TotalTokens:     11,
		MaxPlayersLimit: 6,
		MaxTokensLimit:  40,
		Bot: BotSettings{
			Phase1DelayMS: 100,
			Phase2DelayMS: 50,
			Names:         []string{"Zed", "Yan"},
			Avatars:       []string{"👾", "🐙"},
		},
	}
}

func writePresetFile(t *testing.T, dir, name string, preset *Preset) {
	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal preset: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write preset file: %v", err)
	}
}

// Count reports how many presets are cached.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := createTestConfigDir(t)
		defer os.RemoveAll(dir)

		classic := createValidPreset()
		classic.Name = "Classic"
		writePresetFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Classic" {
			t.Errorf("Expected classic as default, got %q", got)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		dir := createTestConfigDir(t)
		defer os.RemoveAll(dir)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("NewManager should succeed without preset files, got error: %v", err)
		}

		def := manager.GetDefault()
		if def == nil || def.Name != "default" {
			t.Fatalf("Expected the built-in default preset, got %+v", def)
		}
		if def.TotalTokens != 21 || def.Phase1Delay() != time.Second || def.Phase2Delay() != 850*time.Millisecond {
			t.Errorf("Unexpected built-in defaults %+v", def)
		}
	})

	t.Run("first valid preset when classic is missing", func(t *testing.T) {
		dir := createTestConfigDir(t)
		defer os.RemoveAll(dir)

		other := createValidPreset()
		other.Name = "Other"
		writePresetFile(t, dir, "other", other)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Other" {
			t.Errorf("Expected Other as default, got %q", got)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	blitz := createValidPreset()
	blitz.Name = "Blitz"
	blitz.TotalTokens = 9
	writePresetFile(t, dir, "blitz", blitz)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing preset", func(t *testing.T) {
		preset, err := manager.LoadConfig("blitz")
		if err != nil {
			t.Fatalf("Failed to load preset: %v", err)
		}
		if preset.Name != "Blitz" || preset.TotalTokens != 9 {
			t.Errorf("Unexpected preset %+v", preset)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		preset, err := manager.LoadConfig("blitz.json")
		if err != nil {
			t.Fatalf("Failed to load preset with extension: %v", err)
		}
		if preset.Name != "Blitz" {
			t.Errorf("Expected Blitz, got %q", preset.Name)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		first, _ := manager.LoadConfig("blitz")
		second, err := manager.LoadConfig("blitz")
		if err != nil {
			t.Fatalf("Failed to load preset from cache: %v", err)
		}
		if first != second {
			t.Error("Expected the cached pointer to be returned")
		}
	})

	t.Run("load non-existent preset", func(t *testing.T) {
		_, err := manager.LoadConfig("nope")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("reject path traversal", func(t *testing.T) {
		_, err := manager.LoadConfig("../etc/passwd")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid preset", func(t *testing.T) {
		invalid := createValidPreset()
		invalid.MaxPlayers = 12
		writePresetFile(t, dir, "invalid", invalid)

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
			t.Fatalf("Failed to write malformed preset: %v", err)
		}

		if _, err := manager.LoadConfig("broken"); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	for _, name := range []string{"classic", "blitz", "party"} {
		p := createValidPreset()
		p.Name = name
		writePresetFile(t, dir, name, p)
	}
	bad := createValidPreset()
	bad.MaxTokensLimit = 1
	writePresetFile(t, dir, "bad", bad)
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list presets: %v", err)
	}
	if len(configs) != 3 {
		t.Fatalf("Expected 3 presets, got %d", len(configs))
	}

	want := []string{"blitz", "classic", "party"}
	for i, info := range configs {
		if info.ConfigID != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, info.ConfigID)
		}
		if info.Filename != want[i]+".json" || info.TotalTokens != 11 {
			t.Errorf("Unexpected info %+v", info)
		}
	}
}

func TestManager_SetDefaultAndResolve(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	classic := createValidPreset()
	classic.Name = "Classic"
	writePresetFile(t, dir, "classic", classic)
	blitz := createValidPreset()
	blitz.Name = "Blitz"
	writePresetFile(t, dir, "blitz", blitz)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("blitz"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	p, err := manager.Resolve("")
	if err != nil || p.Name != "Blitz" {
		t.Errorf("Expected Blitz as default, got %v (%v)", p, err)
	}
	p, err = manager.Resolve("classic")
	if err != nil || p.Name != "Classic" {
		t.Errorf("Expected Classic, got %v (%v)", p, err)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	classic := createValidPreset()
	classic.TotalTokens = 10
	writePresetFile(t, dir, "classic", classic)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if got := manager.GetDefault().TotalTokens; got != 10 {
		t.Fatalf("Expected 10 tokens, got %d", got)
	}

	classic.TotalTokens = 30
	writePresetFile(t, dir, "classic", classic)

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("Failed to refresh cache: %v", err)
	}
	if got := manager.GetDefault().TotalTokens; got != 30 {
		t.Errorf("Expected 30 tokens after refresh, got %d", got)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	p := createValidPreset()
	p.Name = "Saved"
	if err := manager.SaveConfig("saved", p); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Errorf("Expected saved.json on disk: %v", err)
	}

	loaded, err := manager.LoadConfig("saved")
	if err != nil || loaded.Name != "Saved" {
		t.Errorf("Expected saved preset, got %v (%v)", loaded, err)
	}

	invalid := createValidPreset()
	invalid.Name = ""
	if err := manager.SaveConfig("invalid", invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	for _, name := range []string{"", "..", "../escape", `sub\escape`, "nested/escape.json"} {
		t.Run("Rejects "+name, func(t *testing.T) {
			if err := manager.SaveConfig(name, createValidPreset()); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig for %q, got %v", name, err)
			}
		})
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.json")); !os.IsNotExist(err) {
		t.Error("No file may be written outside the configs directory")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	for i := 1; i <= 5; i++ {
		p := createValidPreset()
		p.Name = "Preset" + string(rune('0'+i))
		writePresetFile(t, dir, "preset"+string(rune('0'+i)), p)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			name := "preset" + string(rune('0'+((id%5)+1)))
			if _, err := manager.LoadConfig(name); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() < 5 {
		t.Errorf("Expected at least 5 presets in cache, got %d", manager.Count())
	}
}

func TestShippedPresets(t *testing.T) {
	manager, err := NewManager(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for _, name := range []string{"classic", "blitz"} {
		p, err := manager.LoadConfig(name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if name == "classic" && (p.TotalTokens != 21 || p.MaxPlayers != 6) {
			t.Errorf("classic should hold 21 tokens for 6 players, got %d/%d", p.TotalTokens, p.MaxPlayers)
		}
	}
}
