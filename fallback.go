package gitver

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// DefaultInstallMarkers are directory names package installers install into
var DefaultInstallMarkers = []string{"site-packages", "dist-packages"}

// metadataKinds maps a metadata entry suffix to the file holding the fields
// when the entry is a directory.
var metadataKinds = map[string]string{
	".egg-info":  "PKG-INFO",
	".dist-info": "METADATA",
}

// IsInstalledPath reports whether p has one of markers (default:
// DefaultInstallMarkers) as a path segment.
func IsInstalledPath(p string, markers ...string) bool {
	if len(markers) == 0 {
		markers = DefaultInstallMarkers
	}
	_, _, ok := splitAtMarker(p, markers)
	return ok
}

// FromInstalledPath recovers a version for a file installed under an
// installed-packages directory. The segment after the marker either carries
// the version itself (mypkg-1.4.0-py3.egg-info) or names a module whose
// sibling .egg-info/.dist-info entry holds a "Version:" line.
//
// When several metadata entries match, the lexicographically first is used.
func FromInstalledPath(fs billy.Filesystem, p string, markers ...string) (*InstalledMetadata, error) {
	if len(markers) == 0 {
		markers = DefaultInstallMarkers
	}

	installDir, infoSegment, ok := splitAtMarker(p, markers)
	if !ok {
		return nil, &NoVersionFoundError{Path: p, Reason: "not inside an installed-packages directory"}
	}
	if infoSegment == "" {
		return nil, &NoVersionFoundError{Path: p, Reason: "no entry follows the installed-packages directory"}
	}

	// The metadata extension itself contains "-", drop it before splitting
	nameVersion := infoSegment
	if ext := path.Ext(nameVersion); metadataKinds[strings.ToLower(ext)] != "" {
		nameVersion = strings.TrimSuffix(nameVersion, ext)
	}

	fields := strings.Split(nameVersion, "-")
	if len(fields) > 1 {
		return &InstalledMetadata{
			PackageName: fields[0],
			Version:     fields[1],
			Source:      infoSegment,
		}, nil
	}

	packageName := infoSegment
	if i := strings.Index(packageName, "."); i > 0 {
		packageName = packageName[:i]
	}

	metadataPath, err := findMetadataFile(fs, installDir, packageName)
	if err != nil {
		return nil, err
	}
	if metadataPath == "" {
		return nil, &NoVersionFoundError{
			Path:   p,
			Reason: fmt.Sprintf("no package metadata for %q in %s", packageName, installDir),
		}
	}

	version, err := readMetadataVersion(fs, metadataPath)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return nil, &NoVersionFoundError{Path: p, Reason: "no version line in " + metadataPath}
	}

	return &InstalledMetadata{
		PackageName: packageName,
		Version:     version,
		Source:      metadataPath,
	}, nil
}

// splitAtMarker returns the installed-packages directory and the segment that
// follows it, using the first marker segment in p.
func splitAtMarker(p string, markers []string) (string, string, bool) {
	segments := strings.Split(filepath.ToSlash(p), "/")
	for i, segment := range segments {
		for _, marker := range markers {
			if segment != marker {
				continue
			}
			dir := filepath.FromSlash(strings.Join(segments[:i+1], "/"))
			if dir == "" {
				dir = string(filepath.Separator)
			}
			var next string
			if i+1 < len(segments) {
				next = segments[i+1]
			}
			return dir, next, true
		}
	}
	return "", "", false
}

func findMetadataFile(fs billy.Filesystem, installDir, packageName string) (string, error) {
	entries, err := fs.ReadDir(installDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("listing %s: %w", installDir, err)
	}

	want := strings.ToLower(packageName)
	var candidates []os.FileInfo
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if metadataKind(name) == "" || !strings.HasPrefix(name, want) {
			continue
		}
		rest := name[len(want):]
		if strings.HasPrefix(rest, "-") || strings.HasPrefix(rest, ".") {
			candidates = append(candidates, entry)
		}
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name() < candidates[j].Name()
	})

	entry := candidates[0]
	entryPath := filepath.Join(installDir, entry.Name())
	if entry.IsDir() {
		return filepath.Join(entryPath, metadataKind(strings.ToLower(entry.Name()))), nil
	}
	return entryPath, nil
}

func metadataKind(name string) string {
	return metadataKinds[path.Ext(name)]
}

// readMetadataVersion returns the value of the first line starting with
// "version", or "" when there is none.
func readMetadataVersion(fs billy.Filesystem, metadataPath string) (string, error) {
	f, err := fs.Open(metadataPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &NoVersionFoundError{Path: metadataPath, Reason: "metadata file does not exist"}
		}
		return "", fmt.Errorf("opening %s: %w", metadataPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(strings.ToLower(line), "version") {
			continue
		}
		parts := strings.Split(line, ":")
		return strings.TrimSpace(parts[len(parts)-1]), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", metadataPath, err)
	}

	return "", nil
}
