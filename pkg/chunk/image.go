package chunk

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

const (
	imageMagic   = "GKC"
	imageVersion = 1
)

// image is the on-disk envelope of a compiled chunk (.gkc).
type image struct {
	Magic   string `cbor:"magic"`
	Version int    `cbor:"version"`
	Chunk   *Chunk `cbor:"chunk"`
}

var cborEncMode cbor.EncMode

func init() {
	// canonical mode keeps images byte-for-byte reproducible
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("chunk: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode serializes a chunk tree into a CBOR image
func Encode(c *Chunk) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("chunk: encode nil chunk")
	}
	return cborEncMode.Marshal(image{Magic: imageMagic, Version: imageVersion, Chunk: c})
}

// Decode deserializes and verifies a CBOR image
func Decode(data []byte) (*Chunk, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("chunk: decode image: %w", err)
	}

	if img.Magic != imageMagic {
		return nil, fmt.Errorf("chunk: not a gecko image (magic %q)", img.Magic)
	}
	if img.Version != imageVersion {
		return nil, fmt.Errorf("chunk: unsupported image version %d (want %d)", img.Version, imageVersion)
	}
	if img.Chunk == nil {
		return nil, fmt.Errorf("chunk: image has no code")
	}

	if err := Verify(img.Chunk); err != nil {
		return nil, err
	}

	return img.Chunk, nil
}

// WriteFile encodes c and writes it to path
func WriteFile(path string, c *Chunk) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("chunk: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and decodes the image at path
func ReadFile(path string) (*Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunk: read %s: %w", path, err)
	}
	return Decode(data)
}
