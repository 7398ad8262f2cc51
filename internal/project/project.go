package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/package-url/packageurl-go"

	"github.com/collaborationFactory/github-actions/internal/log"
	"github.com/collaborationFactory/github-actions/internal/types"
	"github.com/collaborationFactory/github-actions/internal/version"
)

const (
	manifestFile = "package.json"
	npmrcFile    = ".npmrc"
)

// Project is the descriptor of one Nx project taking part in a release run.
type Project struct {
	Name    string
	Kind    types.ProjectKind
	Task    types.Task
	Version version.Version
	Scope   string

	Publishable bool
	// HasManifest reports whether the project ships its own package.json
	// in the source tree.
	HasManifest bool

	// NpmrcContent is the last .npmrc written by WriteNpmrc.
	NpmrcContent string

	ws       *Workspace
	source   *Manifest
	path     string
	resolved bool
}

// Resolve finds the project's directory among the workspace project.json
// files and stores it. It returns the slash-separated path relative to the
// workspace root, or "" when nothing matched. Only the first call searches.
//
// A candidate must lie under the project's category (apps or libs). End-to-end
// projects match on their name; all others must end in
// -{category}-{name}-project so "cf-core" never picks up "cf-core-e2e".
func (p *Project) Resolve() string {
	if p.resolved {
		return p.path
	}
	p.resolved = true

	category := p.Kind.Category()
	exact := "-" + category + "-" + p.Name + "-project"
	for _, file := range p.ws.projectFiles {
		normalized := "-" + strings.ReplaceAll(strings.TrimSuffix(file, ".json"), "/", "-")
		if !strings.Contains(normalized, category) {
			continue
		}
		if p.isE2E() {
			if strings.Contains(normalized, p.Name) {
				p.path = strings.TrimSuffix(file, "/project.json")
				break
			}
			continue
		}
		if strings.HasSuffix(normalized, exact) {
			p.path = strings.TrimSuffix(file, "/project.json")
			break
		}
	}
	return p.path
}

func (p *Project) isE2E() bool {
	return strings.HasSuffix(p.Name, p.ws.Settings.E2ESuffix)
}

// relSourcePath is the resolved path or {category}/{name}.
func (p *Project) relSourcePath() string {
	if rel := p.Resolve(); rel != "" {
		return rel
	}
	return path.Join(p.Kind.Category(), p.Name)
}

// SourcePath is the absolute project directory in the source tree.
func (p *Project) SourcePath() string {
	return filepath.Join(p.ws.Root, filepath.FromSlash(p.relSourcePath()))
}

// DistPath is the absolute build output directory. The source path is split
// at its category: frontend/libs/cf-core-lib builds into
// frontend/dist/libs/cf-core-lib.
func (p *Project) DistPath() string {
	category := p.Kind.Category()
	prefix, rest, _ := strings.Cut(p.relSourcePath(), category)
	return filepath.Join(p.ws.Root, filepath.FromSlash(path.Join(prefix, "dist", category, rest)))
}

func (p *Project) loadSourceManifest() error {
	if p.Kind != types.KindLibrary {
		return nil
	}
	manifestPath := filepath.Join(p.SourcePath(), manifestFile)
	data, err := os.ReadFile(manifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", manifestPath, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return fmt.Errorf("%s: %w", manifestPath, err)
	}
	p.HasManifest = true
	p.source = m
	return nil
}

// decidePublishable applies the publish rules: libraries opt in with
// "publishable": true; e2e applications need a public API file; every other
// application is published.
func (p *Project) decidePublishable() bool {
	if p.Kind == types.KindLibrary {
		if p.source == nil {
			return false
		}
		raw, ok := p.source.Get("publishable")
		return ok && string(raw) == "true"
	}
	if p.isE2E() {
		_, err := os.Stat(filepath.Join(p.SourcePath(), "src", p.ws.Settings.PublicAPIFile))
		return err == nil
	}
	return true
}

// DistTag is the npm distribution tag the project is published under.
func (p *Project) DistTag() string {
	switch p.Task {
	case types.TaskPRSnapshot:
		return "latest-pr-snapshot"
	case types.TaskRelease:
		return p.Version.DistTag()
	default:
		return "snapshot"
	}
}

// PackageName is @scope/name.
func (p *Project) PackageName() string {
	return p.Scope + "/" + p.Name
}

// InstallSpec is @scope/name@version, as accepted by npm install and unpublish.
func (p *Project) InstallSpec(v version.Version) string {
	return p.PackageName() + "@" + v.String()
}

// PackageURL is the purl of the published artifact.
func (p *Project) PackageURL() string {
	return packageurl.NewPackageURL(packageurl.TypeNPM, p.Scope, p.Name, p.Version.String(), nil, "").ToString()
}

// ArtifactURL is the tarball location of the published version in the registry.
func (p *Project) ArtifactURL() string {
	v := p.Version.String()
	return fmt.Sprintf("%s/%s/%s/-/%s/%s-%s.tgz", p.ws.RegistryURL(), p.Scope, p.Name, p.Scope, p.Name, v)
}

// MarkdownLink is the PR-comment line announcing the published artifact.
func (p *Project) MarkdownLink() string {
	return fmt.Sprintf("[%s](%s)", p.InstallSpec(p.Version), p.ArtifactURL())
}

// WriteNpmrc writes registry and auth settings for the project's scope into
// the dist directory, creating it if needed.
func (p *Project) WriteNpmrc() error {
	creds := p.ws.Credentials
	noScheme := creds.URLNoScheme()
	content := fmt.Sprintf("%s:registry=%s \n", p.Scope, creds.URL) +
		fmt.Sprintf("%s:_auth=%s \n", noScheme, creds.Base64Token) +
		fmt.Sprintf("%s:always-auth=true \n", noScheme) +
		fmt.Sprintf("%s:email=%s", noScheme, creds.User)

	dist := p.DistPath()
	if err := os.MkdirAll(dist, 0o755); err != nil {
		return fmt.Errorf("WriteNpmrc: create %s: %w", dist, err)
	}
	target := filepath.Join(dist, npmrcFile)
	if err := os.WriteFile(target, []byte(content), 0o600); err != nil {
		return fmt.Errorf("WriteNpmrc: %w", err)
	}
	p.NpmrcContent = content
	log.Info("wrote .npmrc to " + target)
	return nil
}

// CopyLicenseList copies the workspace licence list into the dist directory.
// A missing list is reported as a warning and is not an error.
func (p *Project) CopyLicenseList() error {
	name := p.ws.Settings.LicenseListFile
	src := filepath.Join(p.ws.Root, name)
	data, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warning(fmt.Sprintf("%s not found! Please generate the %s!", src, name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("CopyLicenseList: read %s: %w", src, err)
	}
	dst := filepath.Join(p.DistPath(), name)
	log.Info(fmt.Sprintf("Copying %s to %s", src, dst))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("CopyLicenseList: %w", err)
	}
	return nil
}

// SetVersion writes the dist package.json for v. Projects with their own
// manifest get author, version and publishConfig updated in the built copy;
// all others get a minimal manifest generated. The write is atomic and the
// diff against the previous dist content is logged.
func (p *Project) SetVersion(v version.Version) error {
	dist := p.DistPath()
	target := filepath.Join(dist, manifestFile)

	previous, err := os.ReadFile(target)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("SetVersion: read %s: %w", target, err)
	}

	m, err := p.distManifest(previous)
	if err != nil {
		return fmt.Errorf("SetVersion: %w", err)
	}
	cfg := publishConfig{Registry: p.ws.Credentials.URL, Access: "restricted", Tag: p.DistTag()}
	fields := []struct {
		key   string
		value any
	}{
		{"author", p.ws.Settings.Author},
		{"name", p.PackageName()},
		{"version", v.String()},
		{"publishConfig", cfg},
	}
	for _, f := range fields {
		if f.key == "name" && p.HasManifest {
			continue
		}
		if err := m.Set(f.key, f.value); err != nil {
			return fmt.Errorf("SetVersion: %w", err)
		}
	}

	data, err := m.Pretty()
	if err != nil {
		return fmt.Errorf("SetVersion: render manifest: %w", err)
	}
	if err := os.MkdirAll(dist, 0o755); err != nil {
		return fmt.Errorf("SetVersion: create %s: %w", dist, err)
	}
	if err := atomicWrite(target, data); err != nil {
		return fmt.Errorf("SetVersion: %w", err)
	}

	log.Info("wrote package.json to " + target)
	log.Block("package.json changes", manifestDiff(manifestFile, previous, data))
	return nil
}

// distManifest picks the document SetVersion edits: the built dist copy when
// the project has its own manifest, else an empty one.
func (p *Project) distManifest(previous []byte) (*Manifest, error) {
	if !p.HasManifest {
		return NewManifest(), nil
	}
	if len(previous) > 0 {
		return ParseManifest(previous)
	}
	log.Warning(fmt.Sprintf("no built package.json for %s in %s, starting from the source manifest", p.Name, p.DistPath()))
	data, err := p.source.Pretty()
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}
