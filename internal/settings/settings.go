package settings

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"FormulaBoard/internal/recognize"
)

const (
	DefaultEndpoint    = "https://apis.iflow.cn/v1/chat/completions"
	DefaultModel       = "TBStars2-200B-A13B"
	DefaultInstruction = "Recognize the handwritten mathematical formula and convert it to standard LaTeX code. " +
		"Return only the LaTeX code itself without any explanation."
	DefaultRelayHost = "127.0.0.1"
	DefaultRelayPort = "8000"
)

// Settings is the persisted user configuration. Every field is a string, as
// entered in the settings form.
type Settings struct {
	Endpoint    string `toml:"endpoint"`
	APIKey      string `toml:"api_key"`
	Model       string `toml:"model"`
	Instruction string `toml:"instruction"`
	RelayHost   string `toml:"relay_host"`
	RelayPort   string `toml:"relay_port"`
}

// Defaults returns the settings used before anything was saved.
func Defaults() Settings {
	return Settings{
		Endpoint:    DefaultEndpoint,
		Model:       DefaultModel,
		Instruction: DefaultInstruction,
		RelayHost:   DefaultRelayHost,
		RelayPort:   DefaultRelayPort,
	}
}

// withDefaults fills absent fields. The API key has no default.
func (s Settings) withDefaults() Settings {
	d := Defaults()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&s.Endpoint, d.Endpoint)
	fill(&s.Model, d.Model)
	fill(&s.Instruction, d.Instruction)
	fill(&s.RelayHost, d.RelayHost)
	fill(&s.RelayPort, d.RelayPort)
	return s
}

func (s Settings) trimmed() Settings {
	for _, v := range []*string{&s.Endpoint, &s.APIKey, &s.Model, &s.Instruction, &s.RelayHost, &s.RelayPort} {
		*v = strings.TrimSpace(*v)
	}
	return s
}

// RecognizeConfig projects the settings onto a recognition request config.
func (s Settings) RecognizeConfig() recognize.Config {
	return recognize.Config{
		Endpoint:    s.Endpoint,
		APIKey:      s.APIKey,
		Model:       s.Model,
		Instruction: s.Instruction,
	}
}

// DefaultPath is ~/.formulaboard/settings.toml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".formulaboard", "settings.toml"), nil
}

// Store persists Settings as TOML and caches the last loaded or saved value.
type Store struct {
	path    string
	mu      sync.RWMutex
	current Settings
}

// NewStore returns a store for path, expanding a leading "~". An empty path
// keeps settings in memory only.
func NewStore(path string) (*Store, error) {
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expand settings path: %w", err)
		}
		path = expanded
	}
	return &Store{path: path, current: Defaults()}, nil
}

func (st *Store) Path() string { return st.path }

// Load reads the file. A missing file yields defaults; absent fields fall
// back to their defaults.
func (st *Store) Load() (Settings, error) {
	loaded := Settings{}
	if st.path != "" {
		data, err := os.ReadFile(st.path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return Defaults(), fmt.Errorf("read settings: %w", err)
		default:
			if err := toml.Unmarshal(data, &loaded); err != nil {
				return Defaults(), fmt.Errorf("parse settings %s: %w", st.path, err)
			}
		}
	}
	s := loaded.trimmed().withDefaults()

	st.mu.Lock()
	st.current = s
	st.mu.Unlock()
	return s, nil
}

// Get returns the cached settings.
func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Save trims, fills defaults and writes the settings atomically.
func (st *Store) Save(s Settings) (Settings, error) {
	s = s.trimmed().withDefaults()
	if st.path != "" {
		data, err := toml.Marshal(s)
		if err != nil {
			return s, fmt.Errorf("encode settings: %w", err)
		}
		if err := writeAtomic(st.path, data); err != nil {
			return s, err
		}
		log.Printf("[SETTINGS] Saved to %s", st.path)
	}

	st.mu.Lock()
	st.current = s
	st.mu.Unlock()
	return s, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
