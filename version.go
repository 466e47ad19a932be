package gitver

import (
	"strconv"
	"strings"

	"github.com/blang/semver"
)

// Format renders d as <prefix><tag>[<suffix><count>][+<object id>][(+|.)dirty].
//
// The prefix is not doubled when the tag already carries it, the suffix only
// appears when there are commits since the tag, and the dirty marker joins an
// existing local version segment with "." or opens one with "+". The result is
// not validated against any version grammar.
func Format(d Describe, opts FormatOptions) string {
	version := d.Tag
	if !strings.HasPrefix(version, opts.Prefix) {
		version = opts.Prefix + version
	}

	if d.CommitsSinceTag > 0 {
		version += opts.Suffix + strconv.FormatUint(d.CommitsSinceTag, 10)
	}

	if opts.IncludeLocalID {
		version += "+" + d.ObjectID
	}

	if d.Dirty {
		separator := "+"
		if strings.Contains(version, "+") {
			separator = "."
		}
		version += separator + DirtyMarker
	}

	return version
}

// TagSemver parses a describe tag as a semantic version, tolerating a leading
// "v" and a path-style module prefix (e.g. "sdk/v1.2.0"). It returns nil when
// the tag is not a version.
func TagSemver(tag string) *semver.Version {
	v, err := semver.ParseTolerant(stripModuleTagPrefixes(tag))
	if err != nil {
		return nil
	}
	return &v
}

func stripModuleTagPrefixes(tag string) string {
	if i := strings.LastIndex(tag, "/"); i >= 0 {
		tag = tag[i+1:]
	}
	return strings.TrimPrefix(tag, "v")
}
