package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9000"
avatar:
  speed: 5.0
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != ":9000" {
		t.Fatalf("listen_addr: got %q", c.ListenAddr)
	}
	if c.Avatar.Speed != 5.0 {
		t.Fatalf("avatar speed: got %v", c.Avatar.Speed)
	}
	// Untouched fields keep their defaults.
	if c.TickRateHz != 30 {
		t.Fatalf("tick_rate_hz: got %d want 30", c.TickRateHz)
	}
	if c.IDs.LoginManager != 1562641 {
		t.Fatalf("login manager id: got %d", c.IDs.LoginManager)
	}
	if c.Avatar.RotationSpeedDeg != 90.0 {
		t.Fatalf("rotation speed: got %v", c.Avatar.RotationSpeedDeg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero tick rate", "tick_rate_hz: 0\n"},
		{"negative frame rate", "client_frame_hz: -1\n"},
		{"inverted avatar range", "avatar:\n  id_range_start: 20\n  id_range_end: 10\n"},
		{"negative precision", "avatar:\n  pos_precision: -1\n"},
		{"not yaml", "{{{\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDefaults_GuestAccount(t *testing.T) {
	c := Defaults()
	if len(c.Accounts) != 1 || c.Accounts[0].Username != "guest" || c.Accounts[0].Password != "guest" {
		t.Fatalf("default accounts: %+v", c.Accounts)
	}
}
