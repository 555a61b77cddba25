package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestInitStepsBuildFullState(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`server:
  ip: 127.0.0.1
  port: 18090
log:
  log_level: error
  log_dir: %q
database:
  path: %q
jwt:
  secret: bootstrap-test-secret
`, filepath.Join(dir, "logs"), filepath.Join(dir, "app.db"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	state := &appState{configPath: cfgPath}
	for _, step := range initSteps() {
		if err := step.Execute(context.Background(), state); err != nil {
			t.Fatalf("step %s failed: %v", step.ID, err)
		}
	}
	t.Cleanup(func() {
		_ = state.refresh.Close(context.Background())
		_ = state.logger.Close()
	})

	if state.config == nil || state.engine == nil || state.hub == nil {
		t.Fatalf("incomplete state after init: %+v", state)
	}
	if state.config.Server.Port != 18090 {
		t.Fatalf("config file not applied: %+v", state.config.Server)
	}

	// the seeded admin account must exist
	admin, err := state.users.FindByUsername(context.Background(), "admin")
	if err != nil || admin == nil {
		t.Fatalf("seeded admin missing: %v", err)
	}
}
