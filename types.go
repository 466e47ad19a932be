// Package gitver derives version strings for source trees from git describe
// output, falling back to installed package metadata when no checkout exists.
package gitver

import (
	"fmt"

	"github.com/blang/semver"
)

// Source identifies where a resolved version came from
type Source string

const (
	// SourceGit means the version was built from git describe output
	SourceGit Source = "git"

	// SourceInstalled means the version was read from installed package metadata
	SourceInstalled Source = "installed"
)

// FormatOptions controls how a parsed describe is rendered
type FormatOptions struct {
	// Prefix is prepended to the tag unless the tag already starts with it
	Prefix string `json:"prefix"`

	// Suffix separates the tag from the number of commits since the tag (e.g. ".post", ".dev", "rc")
	Suffix string `json:"suffix"`

	// IncludeLocalID appends "+<object id>" as a local version identifier
	IncludeLocalID bool `json:"include_local_id"`
}

// DefaultFormatOptions returns the documented defaults: no prefix, ".post"
// suffix and the local identifier included.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		Prefix:         "",
		Suffix:         ".post",
		IncludeLocalID: true,
	}
}

func (o FormatOptions) String() string {
	return fmt.Sprintf("prefix=%q suffix=%q local-id=%t", o.Prefix, o.Suffix, o.IncludeLocalID)
}

// Describe is the structured form of git describe output
type Describe struct {
	Tag             string `json:"tag"`
	CommitsSinceTag uint64 `json:"commits_since_tag"`
	ObjectID        string `json:"object_id"`
	Dirty           bool   `json:"dirty"`
}

// InstalledMetadata is what the fallback recovered from an installed package
type InstalledMetadata struct {
	PackageName string `json:"package_name"`
	Version     string `json:"version"`

	// Source is the path segment or metadata file the version was read from
	Source string `json:"source"`
}

// Resolution describes how a version was resolved
type Resolution struct {
	Version string `json:"version"`
	Source  Source `json:"source"`

	// Root is the repository root, empty for installed packages
	Root string `json:"root,omitempty"`

	// DescribeOutput is the raw describe output
	DescribeOutput string    `json:"describe_output,omitempty"`
	Parsed         *Describe `json:"parsed,omitempty"`

	Installed *InstalledMetadata `json:"installed,omitempty"`

	// Tag is the describe tag parsed as a semantic version, when it is one
	Tag *semver.Version `json:"tag_semver,omitempty"`
}
