package chromestore

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrInvalidPackage is returned for files that are neither CRX nor zip.
	ErrInvalidPackage = errors.New("invalid crx package")

	// ErrMissingManifest is returned when the package has no usable manifest.json.
	ErrMissingManifest = errors.New("missing manifest")
)

var (
	crxMagic = []byte("Cr24")
	zipMagic = []byte("PK\x03\x04")
)

// Manifest holds the manifest.json fields the catalog cares about.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HashFile returns the SRI sha256 hash of a file ("sha256-" + base64 digest),
// the format Nix fetchers expect.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return "sha256-" + base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// ReadManifest reads manifest.json from a CRX (version 2 or 3) or a plain
// zip file.
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	offset, err := payloadOffset(f, info.Size())
	if err != nil {
		return nil, err
	}

	size := info.Size() - offset
	zr, err := zip.NewReader(io.NewSectionReader(f, offset, size), size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPackage, err)
	}

	for _, file := range zr.File {
		if file.Name != "manifest.json" {
			continue
		}
		return decodeManifest(file)
	}

	return nil, fmt.Errorf("%w: no manifest.json in %s", ErrMissingManifest, path)
}

func decodeManifest(file *zip.File) (*Manifest, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	// Some packages ship the manifest with a UTF-8 byte order mark.
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingManifest, err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("%w: manifest.json has no version", ErrMissingManifest)
	}

	return &m, nil
}

// payloadOffset returns where the zip archive starts inside a package.
//
// CRX3: "Cr24", version 3, header length, header.
// CRX2: "Cr24", version 2, public key length, signature length, key, signature.
func payloadOffset(r io.ReaderAt, size int64) (int64, error) {
	head := make([]byte, 16)
	n, err := r.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	head = head[:n]

	if bytes.HasPrefix(head, zipMagic) {
		return 0, nil
	}
	if !bytes.HasPrefix(head, crxMagic) || len(head) < 12 {
		return 0, ErrInvalidPackage
	}

	var offset int64
	switch version := binary.LittleEndian.Uint32(head[4:8]); version {
	case 3:
		offset = 12 + int64(binary.LittleEndian.Uint32(head[8:12]))
	case 2:
		if len(head) < 16 {
			return 0, ErrInvalidPackage
		}
		keyLen := int64(binary.LittleEndian.Uint32(head[8:12]))
		sigLen := int64(binary.LittleEndian.Uint32(head[12:16]))
		offset = 16 + keyLen + sigLen
	default:
		return 0, fmt.Errorf("%w: unsupported crx version %d", ErrInvalidPackage, version)
	}

	if offset >= size {
		return 0, fmt.Errorf("%w: header exceeds file size", ErrInvalidPackage)
	}
	return offset, nil
}
