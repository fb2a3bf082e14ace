// Package volio reads and writes volumes as a YAML header next to a raw
// little-endian payload, optionally xz-compressed. The header records a
// BLAKE3 digest of the uncompressed payload, which is checked on load.
package volio

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"volreslice/pkg/volume"
)

// Compression names stored in headers.
const (
	CompressionNone = "none"
	CompressionXZ   = "xz"
)

// HeaderExt is the file extension of volume headers.
const HeaderExt = ".vol.yaml"

var (
	// ErrDigestMismatch is returned when a payload does not hash to the
	// digest recorded in its header.
	ErrDigestMismatch = errors.New("volio: payload digest mismatch")

	// ErrPayloadSize is returned when a payload is shorter or longer than
	// its header describes.
	ErrPayloadSize = errors.New("volio: payload size mismatch")
)

// Header describes a stored volume.
type Header struct {
	Kind        volume.ScalarKind `yaml:"kind"`
	Components  int               `yaml:"components"`
	Extent      [6]int            `yaml:"extent,flow"`
	Spacing     [3]float64        `yaml:"spacing,flow"`
	Origin      [3]float64        `yaml:"origin,flow"`
	ByteOrder   string            `yaml:"byteOrder"`
	DataFile    string            `yaml:"dataFile"`
	Compression string            `yaml:"compression"`
	BLAKE3      string            `yaml:"blake3"`
}

// Volume returns an empty volume matching the header geometry.
func (h *Header) Volume() (*volume.Volume, error) {
	v, err := volume.New(h.Kind, volume.Extent(h.Extent), h.Components)
	if err != nil {
		return nil, err
	}
	v.Spacing = h.Spacing
	v.Origin = h.Origin
	return v, nil
}

// Digest returns the hex BLAKE3 digest of the little-endian payload of v.
func Digest(v *volume.Volume) (string, error) {
	payload, err := Encode(v)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Encode returns the little-endian payload of v.
func Encode(v *volume.Volume) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(v.SizeInBytes())
	if err := binary.Write(&buf, binary.LittleEndian, v.Scalars); err != nil {
		return nil, fmt.Errorf("volio: encoding payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode fills v from a little-endian payload.
func Decode(v *volume.Volume, payload []byte) error {
	if len(payload) != v.SizeInBytes() {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrPayloadSize, len(payload), v.SizeInBytes())
	}
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, v.Scalars); err != nil {
		return fmt.Errorf("volio: decoding payload: %w", err)
	}
	return nil
}

// Write stores v as headerPath plus a payload file beside it. The payload
// is xz-compressed when compress is set.
func Write(headerPath string, v *volume.Volume, compress bool) error {
	payload, err := Encode(v)
	if err != nil {
		return err
	}
	sum := blake3.Sum256(payload)

	h := Header{
		Kind:        v.Kind(),
		Components:  v.Components,
		Extent:      v.Extent,
		Spacing:     v.Spacing,
		Origin:      v.Origin,
		ByteOrder:   "little",
		DataFile:    dataFileName(headerPath, compress),
		Compression: CompressionNone,
		BLAKE3:      hex.EncodeToString(sum[:]),
	}
	if compress {
		h.Compression = CompressionXZ
	}

	dir := filepath.Dir(headerPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	if err := writePayload(filepath.Join(dir, h.DataFile), payload, compress); err != nil {
		return err
	}

	data, err := yaml.Marshal(&h)
	if err != nil {
		return fmt.Errorf("error marshaling header: %w", err)
	}
	if err := os.WriteFile(headerPath, data, 0644); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	return nil
}

func writePayload(path string, payload []byte, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating payload file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var xw *xz.Writer
	if compress {
		if xw, err = xz.NewWriter(f); err != nil {
			return fmt.Errorf("failed to create xz writer: %w", err)
		}
		w = xw
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("error writing payload: %w", err)
	}
	if xw != nil {
		if err := xw.Close(); err != nil {
			return fmt.Errorf("error closing xz stream: %w", err)
		}
	}
	return f.Close()
}

// ReadHeader parses a header file.
func ReadHeader(headerPath string) (*Header, error) {
	data, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}
	var h Header
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("error parsing header %s: %w", headerPath, err)
	}
	if h.ByteOrder != "" && h.ByteOrder != "little" {
		return nil, fmt.Errorf("volio: unsupported byte order %q", h.ByteOrder)
	}
	if h.DataFile == "" {
		return nil, fmt.Errorf("volio: header %s names no data file", headerPath)
	}
	return &h, nil
}

// Read loads the volume described by headerPath and verifies its digest.
func Read(headerPath string) (*volume.Volume, error) {
	h, err := ReadHeader(headerPath)
	if err != nil {
		return nil, err
	}
	v, err := h.Volume()
	if err != nil {
		return nil, err
	}

	payload, err := readPayload(filepath.Join(filepath.Dir(headerPath), h.DataFile), h.Compression)
	if err != nil {
		return nil, err
	}
	if h.BLAKE3 != "" {
		sum := blake3.Sum256(payload)
		if got := hex.EncodeToString(sum[:]); got != h.BLAKE3 {
			return nil, fmt.Errorf("%w: %s has %s, header says %s", ErrDigestMismatch, h.DataFile, got, h.BLAKE3)
		}
	}
	if err := Decode(v, payload); err != nil {
		return nil, err
	}
	return v, nil
}

func readPayload(path, compression string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening payload: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch compression {
	case "", CompressionNone:
	case CompressionXZ:
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xr
	default:
		return nil, fmt.Errorf("volio: unsupported compression: %s", compression)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading payload: %w", err)
	}
	return data, nil
}

func dataFileName(headerPath string, compress bool) string {
	base := filepath.Base(headerPath)
	if strings.HasSuffix(base, HeaderExt) {
		base = strings.TrimSuffix(base, HeaderExt)
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	name := base + ".raw"
	if compress {
		name += ".xz"
	}
	return name
}
