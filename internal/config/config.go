// Package config provides configuration structures and defaults for DiaryDB.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultObjectIDFile     = "objectid.txt"
	defaultClassIDFile      = "classid.txt"
	defaultAppointmentsName = "appointments"
	defaultRemindersName    = "reminders"
	defaultContactsName     = "contacts"
)

// Key index backends.
const (
	IndexText = "text"
	IndexBolt = "bolt"
)

// Config holds the persistence layout and tunables for DiaryDB.
type Config struct {
	// Dir is the persistence folder. Open's dir argument takes precedence.
	Dir string `yaml:"dir"`

	ObjectIDFile string `yaml:"object_id_file"`
	ClassIDFile  string `yaml:"class_id_file"`

	// Base names of the per-kind data (.dat) and key (.ids) files.
	AppointmentsName string `yaml:"appointments"`
	RemindersName    string `yaml:"reminders"`
	ContactsName     string `yaml:"contacts"`

	IndexBackend string `yaml:"index_backend"`

	// SyncWrites fsyncs the data file after every append.
	SyncWrites *bool `yaml:"sync_writes"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a Config struct populated with default values.
func DefaultConfig() *Config {
	sync := true
	return &Config{
		ObjectIDFile:     defaultObjectIDFile,
		ClassIDFile:      defaultClassIDFile,
		AppointmentsName: defaultAppointmentsName,
		RemindersName:    defaultRemindersName,
		ContactsName:     defaultContactsName,
		IndexBackend:     IndexText,
		SyncWrites:       &sync,
		Logger:           slog.Default(),
	}
}

// FillDefaults sets any zero-value fields in the Config to their default values.
func (c *Config) FillDefaults() {
	def := DefaultConfig()
	if c.ObjectIDFile == "" {
		c.ObjectIDFile = def.ObjectIDFile
	}
	if c.ClassIDFile == "" {
		c.ClassIDFile = def.ClassIDFile
	}
	if c.AppointmentsName == "" {
		c.AppointmentsName = def.AppointmentsName
	}
	if c.RemindersName == "" {
		c.RemindersName = def.RemindersName
	}
	if c.ContactsName == "" {
		c.ContactsName = def.ContactsName
	}
	if c.IndexBackend == "" {
		c.IndexBackend = def.IndexBackend
	}
	if c.SyncWrites == nil {
		c.SyncWrites = def.SyncWrites
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
}

// Sync reports whether appends are fsynced.
func (c *Config) Sync() bool {
	return c.SyncWrites == nil || *c.SyncWrites
}

// Validate checks values FillDefaults can't fix.
func (c *Config) Validate() error {
	switch c.IndexBackend {
	case IndexText, IndexBolt:
	default:
		return fmt.Errorf("unknown index backend %q", c.IndexBackend)
	}
	names := map[string]string{
		"appointments": c.AppointmentsName,
		"reminders":    c.RemindersName,
		"contacts":     c.ContactsName,
	}
	seen := make(map[string]string, len(names))
	for field, name := range names {
		if other, dup := seen[name]; dup {
			return fmt.Errorf("%s and %s share the file name %q", field, other, name)
		}
		seen[name] = field
	}
	return nil
}

// LoadFile reads a YAML config file. Missing keys keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
