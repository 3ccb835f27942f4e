package app

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Constants
const (
	AssignmentsFile = "assignments.json"
	FeedCacheFile   = "feed_cache.json"
	StateFile       = "state.json"
	TmpSuffix       = ".tmp"
	FilePermissions = 0644

	DefaultDisplayCap    = 3
	DefaultRefreshCron   = "*/30 * * * *"
	DefaultTrackedPerson = "Kayla"

	// Error messages
	ErrEditModeDisabled  = "Edit mode disabled"
	ErrInvalidDateFormat = "Invalid date format"
	ErrInvalidMonth      = "Invalid month"
	ErrInvalidYear       = "Invalid year"
	ErrInvalidFormat     = "Invalid format"
	ErrInvalidMode       = "Invalid filter mode"
	ErrInternalServer    = "Internal server error"
	ErrFailedToSave      = "Failed to save assignments"
	ErrRelayUnconfigured = "No relay endpoint configured"

	// Mode strings
	ModeServe = "serve"
	ModeEdit  = "edit"

	// ICS constants
	ICSProductID = "-//Klabast//Shift Calendar//EN"
	ICSTimezone  = "America/New_York"
	ICSUIDDomain = "shift-calendar.klabast.de"
)

// Global variables
var (
	Conf       *Config
	DataDir    = "."
	Store      = AssignmentStore{}
	Feed       = ShiftFeed{}
	StoreMutex sync.RWMutex
	EditMode   bool

	// Log is replaced by main with a real zap logger.
	Log = zap.NewNop().Sugar()

	// Embedded files (set by main)
	StaticFiles interface{}
	IndexHTML   []byte
	EditHTML    []byte
)

// Config is the YAML application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// DataDir holds assignments.json, feed_cache.json and state.json.
	DataDir string `yaml:"data_dir"`

	// FeedURL is the imported shift feed endpoint (JSON keyed by date).
	FeedURL string `yaml:"feed_url"`

	// RefreshCron is the cron schedule for background feed refresh.
	RefreshCron string `yaml:"refresh"`

	// TrackedPerson is the one person whose imported entries are subject
	// to the work/off view filter.
	TrackedPerson string `yaml:"tracked_person"`

	// TrayPeople are the named cards offered for manual placement.
	// The Note card is always available and is not listed here.
	TrayPeople []string `yaml:"tray_people"`

	// Classifier keyword lists (case-insensitive substring match).
	WorkKeywords []string `yaml:"work_keywords"`
	PTOKeywords  []string `yaml:"pto_keywords"`
	OffKeywords  []string `yaml:"off_keywords"`

	// RelayURL, if set, receives the assignment diff summary on submit.
	RelayURL string `yaml:"relay_url,omitempty"`

	// DisplayCap is the number of manual assignments shown per day before
	// the remainder collapses behind a "+N" toggle.
	DisplayCap int `yaml:"display_cap"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        "127.0.0.1:8080",
		DataDir:       ".",
		FeedURL:       "",
		RefreshCron:   DefaultRefreshCron,
		TrackedPerson: DefaultTrackedPerson,
		TrayPeople:    []string{"Nonnie", "Sophia"},
		WorkKeywords:  []string{"work", "weekend", "nora"},
		PTOKeywords:   []string{"pto", "vacation", "leave"},
		OffKeywords:   []string{"off"},
		DisplayCap:    DefaultDisplayCap,
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// from older versions still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.TrackedPerson == "" {
		c.TrackedPerson = def.TrackedPerson
	}
	if c.TrayPeople == nil {
		c.TrayPeople = def.TrayPeople
	}
	if c.WorkKeywords == nil {
		c.WorkKeywords = def.WorkKeywords
	}
	if c.PTOKeywords == nil {
		c.PTOKeywords = def.PTOKeywords
	}
	if c.OffKeywords == nil {
		c.OffKeywords = def.OffKeywords
	}
	if c.DisplayCap <= 0 {
		c.DisplayCap = def.DisplayCap
	}
}

// LoadConfig loads configuration from the given YAML path. If the file
// does not exist, a default config is written there (0600) and returned.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := SaveConfig(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// SaveConfig writes the configuration atomically (temp file + rename)
// with 0600 permissions.
func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".shift-calendar-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// ApplyConfig installs the configuration into the package globals. The
// classifier keyword lists are copied so that classify.go never reads a
// possibly-nil Conf.
func ApplyConfig(cfg *Config) {
	cfg.Normalize()
	Conf = cfg
	DataDir = cfg.DataDir

	workKeywords = cfg.WorkKeywords
	ptoKeywords = cfg.PTOKeywords
	offKeywords = cfg.OffKeywords
}

func assignmentsPath() string {
	return filepath.Join(DataDir, AssignmentsFile)
}

func feedCachePath() string {
	return filepath.Join(DataDir, FeedCacheFile)
}

func statePath() string {
	return filepath.Join(DataDir, StateFile)
}
