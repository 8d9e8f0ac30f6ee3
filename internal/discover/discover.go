// Package discover finds problem files on disk and reads them, looking
// through gzip compression and into tar bundles.
package discover

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrMemberNotFound is returned when a bundle has no member with the given name.
var ErrMemberNotFound = errors.New("discover: bundle member not found")

// Source is one readable problem file: a plain or gzipped file, or a member
// of a tar bundle.
type Source struct {
	Path string
	// Member is the entry name inside the bundle at Path, empty otherwise.
	Member string
}

func (s Source) String() string {
	if s.Member == "" {
		return s.Path
	}
	return s.Path + ":" + s.Member
}

// Name is the file name with any .gz suffix removed.
func (s Source) Name() string {
	name := filepath.Base(s.Path)
	if s.Member != "" {
		name = path.Base(s.Member)
	}
	return strings.TrimSuffix(name, ".gz")
}

// IsBundle reports whether name looks like a tar archive.
func IsBundle(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") || strings.HasSuffix(lower, ".tar")
}

// Matches reports whether the base name of name matches any include pattern.
func Matches(name string, include []string) bool {
	base := filepath.Base(name)
	for _, pattern := range include {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Find expands roots into sources. Files named directly are always taken;
// directories are walked and filtered by include. Bundles are expanded
// into their matching members.
func Find(roots []string, include []string) ([]Source, error) {
	var sources []Source
	add := func(p string) error {
		if !IsBundle(p) {
			sources = append(sources, Source{Path: p})
			return nil
		}
		members, err := bundleMembers(p, include)
		if err != nil {
			return err
		}
		sources = append(sources, members...)
		return nil
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("finding %s: %w", root, err)
		}
		if !info.IsDir() {
			if err := add(root); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !Matches(p, include) {
				return nil
			}
			return add(p)
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].Path != sources[j].Path {
			return sources[i].Path < sources[j].Path
		}
		return sources[i].Member < sources[j].Member
	})
	return sources, nil
}

func bundleMembers(bundle string, include []string) ([]Source, error) {
	var members []Source
	err := walkBundle(bundle, func(hdr *tar.Header, _ io.Reader) (bool, error) {
		if hdr.Typeflag == tar.TypeReg && Matches(hdr.Name, include) && !IsBundle(hdr.Name) {
			members = append(members, Source{Path: bundle, Member: hdr.Name})
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// walkBundle calls fn for each entry until fn returns false.
func walkBundle(bundle string, fn func(hdr *tar.Header, r io.Reader) (bool, error)) error {
	file, err := os.Open(bundle)
	if err != nil {
		return fmt.Errorf("opening bundle: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if !strings.HasSuffix(strings.ToLower(bundle), ".tar") {
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("decompressing bundle %s: %w", bundle, err)
		}
		defer gzReader.Close()
		r = gzReader
	}

	tarReader := tar.NewReader(r)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading bundle %s: %w", bundle, err)
		}
		more, err := fn(header, tarReader)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// ReadText returns the decompressed contents of src.
func ReadText(src Source) (string, error) {
	if src.Member != "" {
		return readMember(src)
	}

	file, err := os.Open(src.Path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src.Path, err)
	}
	defer file.Close()
	return readMaybeGzip(file, src.Path)
}

func readMember(src Source) (string, error) {
	var (
		text  string
		found bool
	)
	err := walkBundle(src.Path, func(hdr *tar.Header, r io.Reader) (bool, error) {
		if hdr.Name != src.Member {
			return true, nil
		}
		found = true
		var err error
		text, err = readMaybeGzip(r, src.Member)
		return false, err
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrMemberNotFound, src)
	}
	return text, nil
}

func readMaybeGzip(r io.Reader, name string) (string, error) {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return "", fmt.Errorf("decompressing %s: %w", name, err)
		}
		defer gzReader.Close()
		r = gzReader
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}
