// Package registry talks to the npm registry (Artifactory) that workspace
// artifacts are published to.
//
// Publishing and unpublishing always go through the npm CLI so the .npmrc
// written into each dist directory supplies the credentials. Read-only
// queries (version lookup, scope search) go through an Index, which is either
// the npm CLI as well or the registry's HTTP API.
package registry

import (
	"context"
	"errors"
	"slices"
)

// ErrNotFound is returned by Index implementations when a package is unknown
// to the registry. Lookup folds it into Lookup{Found: false}.
var ErrNotFound = errors.New("package not found")

// Lookup is the result of asking the registry about one package. A package
// the registry does not know is a regular outcome, not an error.
type Lookup struct {
	Name     string
	Found    bool
	Versions []string
}

// Has reports whether version was published for the package.
func (l Lookup) Has(version string) bool {
	return l.Found && slices.Contains(l.Versions, version)
}

// Index answers read-only registry queries.
type Index interface {
	Lookup(ctx context.Context, name string) (Lookup, error)
	Search(ctx context.Context, scope string) ([]string, error)
}

// Client combines the npm CLI publisher with an Index for queries.
type Client struct {
	npm   *NpmCLI
	index Index
}

// NewClient wires npm for publish/unpublish and index for queries. A nil
// index falls back to the npm CLI.
func NewClient(npm *NpmCLI, index Index) *Client {
	if index == nil {
		index = npm
	}
	return &Client{npm: npm, index: index}
}

// Publish runs npm publish in distDir.
func (c *Client) Publish(ctx context.Context, distDir string) (string, error) {
	return c.npm.Publish(ctx, distDir)
}

// Unpublish force-removes spec ("@scope/name@version") using the .npmrc in distDir.
func (c *Client) Unpublish(ctx context.Context, spec, distDir string) (string, error) {
	return c.npm.Unpublish(ctx, spec, distDir)
}

// Lookup reports the published versions of name.
func (c *Client) Lookup(ctx context.Context, name string) (Lookup, error) {
	return c.index.Lookup(ctx, name)
}

// Search lists the package names published under scope.
func (c *Client) Search(ctx context.Context, scope string) ([]string, error) {
	return c.index.Search(ctx, scope)
}
