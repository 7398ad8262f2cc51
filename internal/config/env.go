package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Environment variables recognized by FromEnv.
const (
	EnvTag                 = "TAG"
	EnvBase                = "BASE"
	EnvPRNumber            = "PR_NUMBER"
	EnvOnlyBumpVersion     = "ONLY_BUMP_VERSION"
	EnvOnlyDeleteArtifacts = "ONLY_DELETE_ARTIFACTS"
	EnvSnapshot            = "SNAPSHOT"
	EnvEventName           = "GITHUB_EVENT_NAME"
	EnvHeadRef             = "GITHUB_HEAD_REF"
	EnvRefName             = "GITHUB_REF_NAME"
	EnvJfrogURL            = "JFROG_URL"
	EnvJfrogUser           = "JFROG_USER"
	EnvJfrogToken          = "JFROG_BASE64_TOKEN"
	EnvNpmRegistry         = "NPM_REGISTRY"
)

// DefaultBase is the branch affected projects are computed against when BASE is unset.
const DefaultBase = "main"

// DefaultRegistryRepo is the Artifactory npm repository used when NPM_REGISTRY is unset.
const DefaultRegistryRepo = "cplace-npm-local"

// ErrNoScope is returned when the root package.json name carries no npm scope.
var ErrNoScope = errors.New("no npm scope in root package.json (expected a name like @YourScope/yourAppOrLib)")

// EnvError reports an environment variable whose value cannot be parsed.
type EnvError struct {
	Name  string
	Value string
	Err   error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("environment variable %s=%q: %v", e.Name, e.Value, e.Err)
}

func (e *EnvError) Unwrap() error {
	return e.Err
}

// Credentials are the registry connection parameters.
type Credentials struct {
	URL         string
	User        string
	Base64Token string
}

// URLNoScheme returns the registry URL without its "https:" scheme, the form
// npm expects as a key prefix in .npmrc.
func (c Credentials) URLNoScheme() string {
	return strings.Replace(c.URL, "https:", "", 1)
}

// RunConfig is the immutable per-run input from the CI environment.
type RunConfig struct {
	Tag                 string
	Base                string
	PRNumber            string
	OnlyBumpVersion     bool
	OnlyDeleteArtifacts bool
	Snapshot            bool

	// GitHub Actions event signals used to derive the current branch.
	EventName string
	HeadRef   string
	RefName   string

	Credentials  Credentials
	RegistryRepo string
}

// LookupFunc has the signature of os.LookupEnv so tests can inject a map.
type LookupFunc func(key string) (string, bool)

// FromEnv builds a RunConfig from lookup. Boolean variables accept "true"
// and "false"; an empty value counts as unset. Any other value is an
// *EnvError.
func FromEnv(lookup LookupFunc) (RunConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := RunConfig{
		Tag:       get(EnvTag),
		Base:      get(EnvBase),
		PRNumber:  get(EnvPRNumber),
		Snapshot:  true,
		EventName: get(EnvEventName),
		HeadRef:   get(EnvHeadRef),
		RefName:   get(EnvRefName),
		Credentials: Credentials{
			URL:         get(EnvJfrogURL),
			User:        get(EnvJfrogUser),
			Base64Token: get(EnvJfrogToken),
		},
		RegistryRepo: get(EnvNpmRegistry),
	}
	if cfg.Base == "" {
		cfg.Base = DefaultBase
	}
	if cfg.RegistryRepo == "" {
		cfg.RegistryRepo = DefaultRegistryRepo
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{EnvOnlyBumpVersion, &cfg.OnlyBumpVersion},
		{EnvOnlyDeleteArtifacts, &cfg.OnlyDeleteArtifacts},
		{EnvSnapshot, &cfg.Snapshot},
	}
	for _, b := range bools {
		raw := get(b.name)
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), b.dst); err != nil {
			return RunConfig{}, &EnvError{Name: b.name, Value: raw, Err: errors.New("expected true or false")}
		}
	}

	return cfg, nil
}

// CurrentBranch derives the branch the CI run is about. On pull_request
// events that is the PR head branch; on pushes it is the pushed ref name.
func (c RunConfig) CurrentBranch() string {
	if strings.EqualFold(c.EventName, "pull_request") {
		return c.HeadRef
	}
	return c.RefName
}

var scopePattern = regexp.MustCompile(`^(@[^\s/]+)/`)

// ParseScope reads the npm scope (e.g. "@cplace-next") from the name of the
// package.json in rootDir. It returns ErrNoScope when the name is unscoped.
func ParseScope(rootDir string) (string, error) {
	path := filepath.Join(rootDir, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	m := scopePattern.FindStringSubmatch(pkg.Name)
	if m == nil {
		return "", fmt.Errorf("%s: %w", path, ErrNoScope)
	}
	return m[1], nil
}
