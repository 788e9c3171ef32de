package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// tempProfiles points the profile file at a fresh temp dir.
func tempProfiles(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "remotes.toml")
	saved := profilesPath
	profilesPath = func() (string, error) { return path, nil }
	t.Cleanup(func() { profilesPath = saved })
	return path
}

func TestProfiles_SaveLoad(t *testing.T) {
	path := tempProfiles(t)

	in := Profiles{
		Active: "office",
		Profiles: map[string]Profile{
			"office": {URL: "http://office:7391", GRPCAddr: "office:7392", Token: "tok_abc"},
			"laptop": {URL: "http://localhost:7391"},
		},
	}
	if err := saveProfiles(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := loadProfiles()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Active != "office" || got.Profiles["office"] != in.Profiles["office"] {
		t.Errorf("loaded %+v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("profile file permissions = %04o, want 0600", perm)
	}
}

func TestProfiles_MissingFile(t *testing.T) {
	tempProfiles(t)
	p, err := loadProfiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Active != "" || p.Profiles == nil || len(p.Profiles) != 0 {
		t.Errorf("expected empty profiles, got %+v", p)
	}
}

func TestRemoteCommands(t *testing.T) {
	tempProfiles(t)
	var buf bytes.Buffer
	remoteAddCmd.SetOut(&buf)
	remoteListCmd.SetOut(&buf)
	remoteShowCmd.SetOut(&buf)
	remoteUseCmd.SetOut(&buf)
	remoteRemoveCmd.SetOut(&buf)

	run := func(fn func() error) {
		t.Helper()
		if err := fn(); err != nil {
			t.Fatal(err)
		}
	}

	// The first profile added becomes active.
	run(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"laptop", "http://localhost:7391"}) })
	run(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"office", "http://office:7391"}) })
	if p, _ := loadProfiles(); p.Active != "laptop" {
		t.Fatalf("Active = %q, want laptop", p.Active)
	}

	run(func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"office"}) })
	buf.Reset()
	run(func() error { return remoteListCmd.RunE(remoteListCmd, nil) })
	out := buf.String()
	if !strings.Contains(out, "* office") || !strings.Contains(out, "  laptop") {
		t.Errorf("list output:\n%s", out)
	}
	if strings.Index(out, "laptop") > strings.Index(out, "office") {
		t.Errorf("list should be sorted by name:\n%s", out)
	}

	buf.Reset()
	run(func() error { return remoteShowCmd.RunE(remoteShowCmd, nil) })
	if !strings.Contains(buf.String(), "http://office:7391") || !strings.Contains(buf.String(), "(active)") {
		t.Errorf("show output:\n%s", buf.String())
	}

	run(func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"office"}) })
	if p, _ := loadProfiles(); p.Active != "" || len(p.Profiles) != 1 {
		t.Errorf("after remove: %+v", p)
	}

	if err := remoteUseCmd.RunE(remoteUseCmd, []string{"nope"}); err == nil {
		t.Error("use of unknown remote should fail")
	}
	if err := remoteShowCmd.RunE(remoteShowCmd, nil); err == nil {
		t.Error("show without an active remote should fail")
	}
}

func TestMaskToken(t *testing.T) {
	for in, want := range map[string]string{
		"":             "",
		"short":        "short",
		"tok_abcdefgh": "tok_abcd****",
	} {
		if got := maskToken(in); got != want {
			t.Errorf("maskToken(%q) = %q, want %q", in, got, want)
		}
	}
}
