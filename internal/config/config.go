// Package config provides the two configuration sources of the release
// tooling.
//
// Settings are workspace conventions read from artifacts.yaml in the
// repository root. A missing file returns sane defaults without error.
//
// RunConfig is the per-run input taken from the CI environment. It is built
// once at process entry and passed by value; nothing below cmd reads the
// environment directly. CLI flags (bound via cobra) override both at the
// highest precedence by mutating the returned structs after loading.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up in the repository root.
const FileName = "artifacts.yaml"

// Default values for Settings fields.
const (
	DefaultNxCommand       = "npx nx"
	DefaultE2ESuffix       = "-e2e"
	DefaultInternalPrefix  = "api-"
	DefaultPublicAPIFile   = "public_api.ts"
	DefaultLicenseListFile = "cplace-foss-list.json"
	DefaultCommentsFile    = "githubCommentsForPR.txt"
	DefaultAuthor          = "squad-fe"
	DefaultRetentionMonths = 4
	DefaultRegistryAPI     = RegistryAPICLI
)

// Registry query backends.
const (
	RegistryAPICLI  = "cli"
	RegistryAPIHTTP = "http"
)

// Settings holds the workspace conventions the release tooling relies on.
type Settings struct {
	NxCommand       string `yaml:"nx_command"`
	E2ESuffix       string `yaml:"e2e_suffix"`
	InternalPrefix  string `yaml:"internal_prefix"`
	PublicAPIFile   string `yaml:"public_api_file"`
	LicenseListFile string `yaml:"license_list_file"`
	CommentsFile    string `yaml:"comments_file"`
	Author          string `yaml:"author"`
	RetentionMonths int    `yaml:"retention_months"`
	RegistryAPI     string `yaml:"registry_api"`
}

// Defaults returns Settings populated with the workspace defaults.
func Defaults() Settings {
	return Settings{
		NxCommand:       DefaultNxCommand,
		E2ESuffix:       DefaultE2ESuffix,
		InternalPrefix:  DefaultInternalPrefix,
		PublicAPIFile:   DefaultPublicAPIFile,
		LicenseListFile: DefaultLicenseListFile,
		CommentsFile:    DefaultCommentsFile,
		Author:          DefaultAuthor,
		RetentionMonths: DefaultRetentionMonths,
		RegistryAPI:     DefaultRegistryAPI,
	}
}

// partialSettings is used during YAML parsing to distinguish between a field
// being absent (nil pointer) and a field being explicitly set to its zero value.
type partialSettings struct {
	NxCommand       *string `yaml:"nx_command"`
	E2ESuffix       *string `yaml:"e2e_suffix"`
	InternalPrefix  *string `yaml:"internal_prefix"`
	PublicAPIFile   *string `yaml:"public_api_file"`
	LicenseListFile *string `yaml:"license_list_file"`
	CommentsFile    *string `yaml:"comments_file"`
	Author          *string `yaml:"author"`
	RetentionMonths *int    `yaml:"retention_months"`
	RegistryAPI     *string `yaml:"registry_api"`
}

// LoadSettings reads artifacts.yaml at path. If the file does not exist,
// defaults are returned without error. Fields absent from the file keep
// their default value.
func LoadSettings(path string) (*Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &s, nil
		}
		return nil, err
	}

	var partial partialSettings
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if partial.NxCommand != nil {
		s.NxCommand = *partial.NxCommand
	}
	if partial.E2ESuffix != nil {
		s.E2ESuffix = *partial.E2ESuffix
	}
	if partial.InternalPrefix != nil {
		s.InternalPrefix = *partial.InternalPrefix
	}
	if partial.PublicAPIFile != nil {
		s.PublicAPIFile = *partial.PublicAPIFile
	}
	if partial.LicenseListFile != nil {
		s.LicenseListFile = *partial.LicenseListFile
	}
	if partial.CommentsFile != nil {
		s.CommentsFile = *partial.CommentsFile
	}
	if partial.Author != nil {
		s.Author = *partial.Author
	}
	if partial.RetentionMonths != nil {
		s.RetentionMonths = *partial.RetentionMonths
	}
	if partial.RegistryAPI != nil {
		s.RegistryAPI = *partial.RegistryAPI
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// Validate rejects settings the tooling cannot work with.
func (s Settings) Validate() error {
	if s.NxCommand == "" {
		return errors.New("nx_command must not be empty")
	}
	if s.E2ESuffix == "" {
		return errors.New("e2e_suffix must not be empty")
	}
	if s.InternalPrefix == "" {
		return errors.New("internal_prefix must not be empty")
	}
	if s.RetentionMonths < 1 {
		return fmt.Errorf("retention_months must be at least 1, got %d", s.RetentionMonths)
	}
	switch s.RegistryAPI {
	case RegistryAPICLI, RegistryAPIHTTP:
	default:
		return fmt.Errorf("registry_api must be %q or %q, got %q", RegistryAPICLI, RegistryAPIHTTP, s.RegistryAPI)
	}
	return nil
}

// Marshal renders s as artifacts.yaml content.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
