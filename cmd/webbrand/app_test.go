package main

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/battlewithbytes/webbrand/internal/config"
	"github.com/battlewithbytes/webbrand/internal/logo"
)

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"https://media.example.com", "http://10.0.0.5:8096", ""})
	want := []string{"media.example.com", "10.0.0.5:8096"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pattern %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	l := newLogger(config.LogConfig{Level: "warn", Format: config.LogFormatJSON})
	if l.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level = %v", l.GetLevel())
	}
	l = newLogger(config.LogConfig{Level: "bogus", Format: config.LogFormatConsole})
	if l.GetLevel() != zerolog.InfoLevel {
		t.Errorf("fallback level = %v", l.GetLevel())
	}
}

func TestRoleArgs(t *testing.T) {
	a := &app{store: logo.NewStore(t.TempDir(), logo.DefaultTable())}
	roles, err := a.roleArgs([]string{"icon", "banner-light"})
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 || roles[0] != logo.RoleIcon || roles[1] != logo.RoleBannerLight {
		t.Errorf("roles = %v", roles)
	}
	if _, err := a.roleArgs([]string{"favicon"}); logo.KindOf(err) != logo.KindValidation {
		t.Errorf("unknown role err = %v", err)
	}
}
