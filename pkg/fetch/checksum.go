package fetch

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arc-language/bake/pkg/core"
	"zombiezen.com/go/nix"
)

// ChecksumError provides details about a checksum verification failure.
// It wraps core.ErrChecksumMismatch so callers can use errors.Is.
type ChecksumError struct {
	Filename string
	Expected string
	Got      string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s: expected %s, got %s", e.Filename, e.Expected, e.Got)
}

func (e *ChecksumError) Unwrap() error { return core.ErrChecksumMismatch }

// ParseChecksum accepts a bare hex digest (sha256 or sha512 by length), a
// typed digest such as "sha256:<base16|base32|base64>", or an SRI string
// such as "sha256-<base64>".
func ParseChecksum(s string) (nix.Hash, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nix.Hash{}, fmt.Errorf("%w: empty checksum", core.ErrInvalidRecipe)
	}

	if typ, ok := bareHexType(s); ok {
		bits, err := hex.DecodeString(s)
		if err != nil {
			return nix.Hash{}, fmt.Errorf("%w: checksum %q: %v", core.ErrInvalidRecipe, s, err)
		}
		return nix.NewHash(typ, bits), nil
	}

	h, err := nix.ParseHash(s)
	if err != nil {
		return nix.Hash{}, fmt.Errorf("%w: checksum %q: %v", core.ErrInvalidRecipe, s, err)
	}
	return h, nil
}

func bareHexType(s string) (nix.HashType, bool) {
	if strings.ContainsAny(s, ":-") {
		return 0, false
	}
	switch len(s) {
	case 64:
		return nix.SHA256, true
	case 128:
		return nix.SHA512, true
	}
	return 0, false
}

// ComputeFileHash streams the file at path through a hasher of the given type
func ComputeFileHash(path string, typ nix.HashType) (nix.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return nix.Hash{}, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	hasher := nix.NewHasher(typ)
	if _, err := io.Copy(hasher, f); err != nil {
		return nix.Hash{}, fmt.Errorf("computing hash: %w", err)
	}
	return hasher.SumHash(), nil
}

// VerifyFile checks the file at path against the declared checksum
func VerifyFile(path, checksum string) error {
	want, err := ParseChecksum(checksum)
	if err != nil {
		return err
	}

	got, err := ComputeFileHash(path, want.Type())
	if err != nil {
		return err
	}

	if got.String() != want.String() {
		return &ChecksumError{
			Filename: path,
			Expected: want.SRI(),
			Got:      got.SRI(),
		}
	}
	return nil
}
