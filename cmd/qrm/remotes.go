package main

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Profiles holds the named coordinator profiles and which one is active.
type Profiles struct {
	Active   string             `toml:"active"`
	Profiles map[string]Profile `toml:"remotes"`
}

// Profile is a named coordinator the CLI can talk to.
type Profile struct {
	URL      string `toml:"url"`
	GRPCAddr string `toml:"grpc_addr,omitempty"`
	Token    string `toml:"token,omitempty"`
}

// profilesPath is a variable so tests can point it at a temp dir.
var profilesPath = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "quickreply", "remotes.toml"), nil
}

func loadProfiles() (Profiles, error) {
	path, err := profilesPath()
	if err != nil {
		return Profiles{}, err
	}
	var p Profiles
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Profiles{Profiles: map[string]Profile{}}, nil
		}
		return Profiles{}, err
	}
	if p.Profiles == nil {
		p.Profiles = map[string]Profile{}
	}
	return p, nil
}

// saveProfiles writes the file with owner-only permissions since it holds tokens.
func saveProfiles(p Profiles) error {
	path, err := profilesPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var (
	activeOnce    sync.Once
	activeProfile Profile
)

func active() Profile {
	activeOnce.Do(func() {
		p, err := loadProfiles()
		if err != nil || p.Active == "" {
			return
		}
		activeProfile = p.Profiles[p.Active]
	})
	return activeProfile
}

func activeRemoteURL() string   { return active().URL }
func activeRemoteToken() string { return active().Token }
func activeGRPCAddr() string    { return active().GRPCAddr }
