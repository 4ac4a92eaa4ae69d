package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arc-language/bake/pkg/core"
	"github.com/arc-language/bake/pkg/logging"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
	"zombiezen.com/go/nix/nar"
)

// Extractor unpacks source archives and resolves the directory the
// sources live in
type Extractor struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// NewExtractor creates an extractor on fs. A nil fs uses the OS filesystem.
func NewExtractor(fs afero.Fs) *Extractor {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Extractor{
		fs:     fs,
		logger: logging.GetLogger("archive"),
	}
}

// stats counts what an extraction produced
type stats struct {
	files    int
	dirs     int
	symlinks int
	skipped  int
}

// Extract unpacks archivePath into target and returns the absolute path of
// the source root: target/<folder> when every member sits under one
// top-level folder, target otherwise.
func (e *Extractor) Extract(archivePath, target string) (string, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return "", err
	}

	e.logger.Info().
		Str("archive", filepath.Base(archivePath)).
		Str("format", format.String()).
		Str("target", target).
		Msg("Extracting archive")

	if err := e.fs.MkdirAll(target, 0755); err != nil {
		return "", fmt.Errorf("creating extraction directory: %w", err)
	}

	f, err := e.fs.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var (
		roots rootTracker
		st    stats
	)

	switch format {
	case FormatZip:
		err = e.extractZip(f, target, &roots, &st)
	case FormatNar, FormatNarXz:
		err = e.extractNAR(f, format, target, &st)
	default:
		err = e.extractTar(f, format, target, &roots, &st)
	}
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", filepath.Base(archivePath), err)
	}

	e.logger.Debug().
		Int("files", st.files).
		Int("dirs", st.dirs).
		Int("symlinks", st.symlinks).
		Int("skipped", st.skipped).
		Msg("Extraction complete")

	root := target
	if folder := roots.folder(); folder != "" {
		candidate := filepath.Join(target, filepath.FromSlash(folder))
		if info, err := e.fs.Stat(candidate); err == nil && info.IsDir() {
			root = candidate
		}
	}

	return e.verifyRoot(root)
}

// verifyRoot makes root absolute and checks it is an existing directory
func (e *Extractor) verifyRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", core.ErrExtractionInvariant, root, err)
	}
	info, err := e.fs.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: source root %s: %v", core.ErrExtractionInvariant, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: source root %s is not a directory", core.ErrExtractionInvariant, abs)
	}
	return abs, nil
}

func (e *Extractor) extractZip(f afero.File, target string, roots *rootTracker, st *stats) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return fmt.Errorf("reading zip: %w", err)
	}

	for _, zf := range zr.File {
		rel, err := sanitize(zf.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		mode := zf.Mode()
		roots.observe(zf.Name, mode.IsDir())

		switch {
		case mode.IsDir():
			if err := e.writeDir(target, rel); err != nil {
				return err
			}
			st.dirs++
		case mode&os.ModeSymlink != 0:
			linkname, err := readZipText(zf)
			if err != nil {
				return err
			}
			ok, err := e.writeSymlink(target, rel, linkname)
			if err != nil {
				return err
			}
			if ok {
				st.symlinks++
			} else {
				st.skipped++
			}
		default:
			rc, err := zf.Open()
			if err != nil {
				return fmt.Errorf("opening %s: %w", zf.Name, err)
			}
			err = e.writeFile(target, rel, rc, mode.Perm(), int64(zf.UncompressedSize64))
			rc.Close()
			if err != nil {
				return err
			}
			st.files++
		}
	}
	return nil
}

func readZipText(zf *zip.File) (string, error) {
	rc, err := zf.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", zf.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", zf.Name, err)
	}
	return string(data), nil
}

// tarStream wraps r in the decompressor for format
func tarStream(r io.Reader, format Format) (io.Reader, func(), error) {
	noop := func() {}
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("creating gzip reader: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	case FormatTarBz2:
		return bzip2.NewReader(r), noop, nil
	case FormatTarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("creating xz reader: %w", err)
		}
		return xr, noop, nil
	case FormatTarZst:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("creating zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	case FormatTar:
		return r, noop, nil
	}
	return nil, noop, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, format)
}

func (e *Extractor) extractTar(f io.Reader, format Format, target string, roots *rootTracker, st *stats) error {
	stream, closeStream, err := tarStream(bufio.NewReader(f), format)
	if err != nil {
		return err
	}
	defer closeStream()

	tr := tar.NewReader(stream)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		if header.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		rel, err := sanitize(header.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		roots.observe(header.Name, header.Typeflag == tar.TypeDir)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := e.writeDir(target, rel); err != nil {
				return err
			}
			st.dirs++
		case tar.TypeReg:
			if err := e.writeFile(target, rel, tr, os.FileMode(header.Mode).Perm(), header.Size); err != nil {
				return err
			}
			st.files++
		case tar.TypeSymlink:
			ok, err := e.writeSymlink(target, rel, header.Linkname)
			if err != nil {
				return err
			}
			if ok {
				st.symlinks++
			} else {
				st.skipped++
			}
		case tar.TypeLink:
			if err := e.copyHardlink(target, rel, header.Linkname); err != nil {
				return err
			}
			st.files++
		default:
			e.logger.Debug().
				Str("entry", rel).
				Str("type", string(header.Typeflag)).
				Msg("Skipping unsupported tar entry")
			st.skipped++
		}
	}
	return nil
}

// extractNAR unpacks a Nix archive. The NAR root maps onto target, so a
// directory NAR always resolves to target itself.
func (e *Extractor) extractNAR(f io.Reader, format Format, target string, st *stats) error {
	var r io.Reader = bufio.NewReader(f)
	if format == FormatNarXz {
		xr, err := xz.NewReader(r)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		r = xr
	}

	nr := nar.NewReader(r)
	for {
		hdr, err := nr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading NAR entry: %w", err)
		}

		rel, err := sanitize(hdr.Path)
		if err != nil {
			return err
		}
		if rel == "" {
			if !hdr.Mode.IsDir() {
				return fmt.Errorf("%w: NAR root is not a directory", core.ErrExtractionInvariant)
			}
			continue
		}

		switch hdr.Mode.Type() {
		case os.ModeDir:
			if err := e.writeDir(target, rel); err != nil {
				return err
			}
			st.dirs++
		case os.ModeSymlink:
			ok, err := e.writeSymlink(target, rel, hdr.LinkTarget)
			if err != nil {
				return err
			}
			if ok {
				st.symlinks++
			} else {
				st.skipped++
			}
		case 0:
			perm := os.FileMode(0644)
			if hdr.Mode&0111 != 0 {
				perm = 0755
			}
			if err := e.writeFile(target, rel, nr, perm, hdr.Size); err != nil {
				return err
			}
			st.files++
		default:
			st.skipped++
		}
	}
	return nil
}

func (e *Extractor) writeDir(target, rel string) error {
	if err := e.checkParents(target, rel, true); err != nil {
		return err
	}
	p := filepath.Join(target, filepath.FromSlash(rel))
	if err := e.fs.MkdirAll(p, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", p, err)
	}
	return nil
}

// writeFile creates or truncates target/rel with the contents of r
func (e *Extractor) writeFile(target, rel string, r io.Reader, perm os.FileMode, size int64) error {
	if err := e.checkParents(target, rel, false); err != nil {
		return err
	}
	p := filepath.Join(target, filepath.FromSlash(rel))
	if err := e.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if perm == 0 {
		perm = 0644
	}

	// A symlink left by an earlier extraction must not redirect the write.
	if info, err := lstat(e.fs, p); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := e.fs.Remove(p); err != nil {
			return fmt.Errorf("replacing %s: %w", p, err)
		}
	}

	out, err := e.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", p, err)
	}
	written, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing file %s: %w", p, err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("file size mismatch for %s: expected %d, got %d", rel, size, written)
	}
	return nil
}

// writeSymlink recreates a symlink member. Links pointing outside the
// extraction directory fail the extraction. It reports false when the
// filesystem cannot hold links.
func (e *Extractor) writeSymlink(target, rel, linkname string) (bool, error) {
	if err := checkLinkTarget(rel, linkname); err != nil {
		return false, err
	}
	if err := e.checkParents(target, rel, false); err != nil {
		return false, err
	}
	linker, ok := e.fs.(afero.Linker)
	if !ok {
		e.logger.Debug().Str("entry", rel).Msg("Filesystem does not support symlinks, skipping")
		return false, nil
	}
	p := filepath.Join(target, filepath.FromSlash(rel))
	if err := e.fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		e.logger.Warn().Err(err).Str("entry", rel).Msg("Cannot create symlink parent")
		return false, nil
	}
	if err := e.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Warn().Err(err).Str("entry", rel).Msg("Cannot replace existing entry")
		return false, nil
	}
	if err := linker.SymlinkIfPossible(linkname, p); err != nil {
		e.logger.Warn().Err(err).Str("entry", rel).Str("target", linkname).Msg("Cannot create symlink")
		return false, nil
	}
	return true, nil
}

// checkParents fails when a directory between target and rel is a symlink,
// so no member is written through a link. With self set, rel itself is
// checked too.
func (e *Extractor) checkParents(target, rel string, self bool) error {
	parts := strings.Split(rel, "/")
	if !self {
		parts = parts[:len(parts)-1]
	}
	p := target
	for _, part := range parts {
		if part == "" {
			continue
		}
		p = filepath.Join(p, part)
		info, err := lstat(e.fs, p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("checking %s: %w", p, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("archive member %q is written through symlink %s", rel, p)
		}
	}
	return nil
}

// copyHardlink materializes a tar hard link as a copy of an entry that
// was already extracted
func (e *Extractor) copyHardlink(target, rel, linkname string) error {
	src, err := sanitize(linkname)
	if err != nil {
		return err
	}
	if err := e.checkParents(target, src, false); err != nil {
		return err
	}
	in, err := e.fs.Open(filepath.Join(target, filepath.FromSlash(src)))
	if err != nil {
		return fmt.Errorf("hard link %s -> %s: %w", rel, linkname, err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("hard link %s -> %s: %w", rel, linkname, err)
	}
	return e.writeFile(target, rel, in, info.Mode().Perm(), info.Size())
}

func lstat(fs afero.Fs, p string) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(p)
		return info, err
	}
	return fs.Stat(p)
}
