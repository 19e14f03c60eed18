package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"romdex/internal/config"
	"romdex/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("GAMEDB_CLIENT_ID", "")
	t.Setenv("GAMEDB_CLIENT_SECRET", "")

	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.RomDir, 0o755); err != nil {
		t.Fatalf("mkdir rom dir: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "romdex", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
rom_dir = %q
output_dir = %q
log_dir = %q
image_dir = %q

[gamedb]
client_id = %q
client_secret = %q

[logging]
format = "json"
level = "error"
`,
		cfg.Paths.RomDir,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Paths.ImageDir,
		cfg.GameDB.ClientID,
		cfg.GameDB.ClientSecret,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
