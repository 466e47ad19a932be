package gitver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"
)

// Resolver resolves versions for paths. The zero value reads the host
// filesystem, shells out to git and logs nothing.
type Resolver struct {
	// FS is the filesystem searched for .git entries and package metadata
	FS billy.Filesystem

	// Describer produces describe output (default: ExecDescriber{})
	Describer Describer

	// Logger receives one event per resolution step
	Logger logrus.FieldLogger

	// InstallMarkers overrides DefaultInstallMarkers
	InstallMarkers []string
}

// Resolve returns the version for path using a zero Resolver
func Resolve(ctx context.Context, path string, opts FormatOptions) (string, error) {
	return Resolver{}.Resolve(ctx, path, opts)
}

// Resolve returns the formatted version for path
func (r Resolver) Resolve(ctx context.Context, path string, opts FormatOptions) (string, error) {
	res, err := r.ResolveDetailed(ctx, path, opts)
	if err != nil {
		return "", err
	}
	return res.Version, nil
}

// ResolveDetailed locates the git root above path and formats its describe
// output. Only a missing repository leads to the installed package fallback;
// describe and parse failures are returned as they are.
func (r Resolver) ResolveDetailed(ctx context.Context, path string, opts FormatOptions) (*Resolution, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	log := r.logger().WithField("path", path)

	root, err := FindRoot(r.filesystem(), path)
	if err != nil {
		var notFound *RootNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Debug("no git repository found, reading installed package metadata")
		return r.fromInstalled(path, log)
	}
	log = log.WithField("root", root)
	log.Debug("found git repository")

	output, err := r.describer().Describe(ctx, root)
	if err != nil {
		return nil, err
	}
	log = log.WithField("describe", output)

	parsed, err := ParseDescribe(output)
	if err != nil {
		return nil, err
	}

	version := Format(*parsed, opts)
	log.WithFields(logrus.Fields{
		"options": opts.String(),
		"tag":     parsed.Tag,
		"commits": parsed.CommitsSinceTag,
		"dirty":   parsed.Dirty,
		"version": version,
	}).Debug("formatted version")

	return &Resolution{
		Version:        version,
		Source:         SourceGit,
		Root:           root,
		DescribeOutput: output,
		Parsed:         parsed,
		Tag:            TagSemver(parsed.Tag),
	}, nil
}

func (r Resolver) fromInstalled(path string, log logrus.FieldLogger) (*Resolution, error) {
	meta, err := FromInstalledPath(r.filesystem(), path, r.InstallMarkers...)
	if err != nil {
		var noVersion *NoVersionFoundError
		if errors.As(err, &noVersion) {
			return nil, err
		}
		return nil, &NoVersionFoundError{Path: path, Reason: err.Error()}
	}

	log.WithFields(logrus.Fields{
		"package": meta.PackageName,
		"source":  meta.Source,
		"version": meta.Version,
	}).Debug("read version from installed package")

	return &Resolution{
		Version:   meta.Version,
		Source:    SourceInstalled,
		Installed: meta,
		Tag:       TagSemver(meta.Version),
	}, nil
}

func (r Resolver) filesystem() billy.Filesystem {
	if r.FS != nil {
		return r.FS
	}
	return osfs.New("/")
}

func (r Resolver) describer() Describer {
	if r.Describer != nil {
		return r.Describer
	}
	return ExecDescriber{}
}

func (r Resolver) logger() logrus.FieldLogger {
	if r.Logger != nil {
		return r.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
