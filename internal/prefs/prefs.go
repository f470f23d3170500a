// Package prefs handles the device preferences and stored credentials of the planner CLI.
// Preferences are stored in ~/.config/gymplanner/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal/remote"
)

const (
	defaultPrefsPath = "~/.config/gymplanner/prefs.toml"
	defaultDataDir   = "~/.local/share/gymplanner"
	defaultServerURL = "http://localhost:9000"
	defaultLogLevel  = "info"
)

type Prefs struct {
	ServerURL string  `toml:"server_url"`
	DataDir   string  `toml:"data_dir"`
	Catalog   string  `toml:"catalog"`
	LogLevel  string  `toml:"log_level"`
	// Template is the selected workout template, 0 based
	Template  int     `toml:"template"`
	Account   Account `toml:"account"`
}

// Account holds the session of the signed-in user, if any.
type Account struct {
	UserID   string `toml:"user_id"`
	Username string `toml:"username"`
	Token    string `toml:"token"`
}

func Defaults() Prefs {
	return Prefs{
		ServerURL: defaultServerURL,
		DataDir:   defaultDataDir,
		LogLevel:  defaultLogLevel,
	}
}

func DefaultPath() string {
	return defaultPrefsPath
}

// Identity returns the stored session; the zero Identity when signed out.
func (p Prefs) Identity() remote.Identity {
	return remote.Identity{
		UserID:   p.Account.UserID,
		Username: p.Account.Username,
		Token:    p.Account.Token,
	}
}

func (p *Prefs) SetIdentity(id remote.Identity) {
	p.Account = Account{
		UserID:   id.UserID,
		Username: id.Username,
		Token:    id.Token,
	}
}

// Load reads preferences from path, falling back to defaults when the file is
// missing or unreadable.
func Load(path string) Prefs {
	prefs := Defaults()

	resolved, err := resolvePath(path)
	if err != nil {
		log.Warnf("prefs: %s", err)
		return prefs
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("prefs: read %s: %s", resolved, err)
		}
		return prefs
	}

	if err := toml.Unmarshal(data, &prefs); err != nil {
		log.Warnf("prefs: invalid %s, using defaults: %s", resolved, err)
		return Defaults()
	}

	if strings.TrimSpace(prefs.ServerURL) == "" {
		prefs.ServerURL = defaultServerURL
	}
	if strings.TrimSpace(prefs.DataDir) == "" {
		prefs.DataDir = defaultDataDir
	}
	if strings.TrimSpace(prefs.LogLevel) == "" {
		prefs.LogLevel = defaultLogLevel
	}
	return prefs
}

// Save writes preferences to path, creating directories as needed.
// The file holds a session token, so it is private to the user.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, data, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultPrefsPath)
	}
	return ExpandPath(path)
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
