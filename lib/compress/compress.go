// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies the codec applied to a stored blob. Tags are
// persisted in the content table; the numeric values must not change.
type Tag uint8

const (
	// None stores bytes as-is.
	None Tag = 0

	// LZ4 is block-mode LZ4: fast, modest ratio.
	LZ4 Tag = 1

	// Zstd is zstd at the default level: better ratio on text, which
	// is what most schemas are.
	Zstd Tag = 2

	// Auto is a configuration value only, never stored. [Compress]
	// resolves it with [Select].
	Auto Tag = 255
)

func (tag Tag) String() string {
	switch tag {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case Auto:
		return "auto"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseTag parses a codec name as written in configuration.
func ParseTag(name string) (Tag, error) {
	switch strings.ToLower(name) {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	case "auto":
		return Auto, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

var errIncompressible = errors.New("data is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress encodes data with the requested codec and returns the bytes
// together with the codec actually used. Data that does not get
// smaller comes back unchanged tagged None.
func Compress(data []byte, tag Tag, contentType string) ([]byte, Tag, error) {
	if tag == Auto {
		tag = Select(data, contentType)
	}
	var (
		compressed []byte
		err        error
	)
	switch tag {
	case None:
		return data, None, nil
	case LZ4:
		compressed, err = compressLZ4(data)
	case Zstd:
		compressed, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("compress: unsupported codec %s", tag)
	}
	if errors.Is(err, errIncompressible) {
		return data, None, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return compressed, tag, nil
}

// Decompress reverses Compress. size is the original length and is
// verified.
func Decompress(data []byte, tag Tag, size int) ([]byte, error) {
	switch tag {
	case None:
		if len(data) != size {
			return nil, fmt.Errorf("compress: stored size %d does not match expected %d", len(data), size)
		}
		return data, nil
	case LZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(data, destination)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("compress: lz4: got %d bytes, expected %d", read, size)
		}
		return destination, nil
	case Zstd:
		result, err := zstdDecoder.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("compress: zstd: got %d bytes, expected %d", len(result), size)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("compress: unsupported codec %s", tag)
	}
}

// Select chooses a codec for data. Text media types go straight to
// zstd. Otherwise a zstd probe decides: a ratio above 1.5 keeps zstd,
// above 1.1 picks the cheaper LZ4, anything less stores raw.
func Select(data []byte, contentType string) Tag {
	if len(data) == 0 {
		return None
	}
	if isText(contentType) {
		return Zstd
	}
	probe := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(max(len(probe), 1))
	switch {
	case ratio > 1.5:
		return Zstd
	case ratio > 1.1:
		return LZ4
	default:
		return None
	}
}

func isText(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/json", mediaType == "application/x-yaml",
		mediaType == "application/yaml", mediaType == "application/xml",
		mediaType == "application/x-protobuf", mediaType == "application/graphql":
		return true
	case strings.HasSuffix(mediaType, "+json"), strings.HasSuffix(mediaType, "+xml"):
		return true
	}
	return false
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("compress: lz4: %w", err)
	}
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

// NewWriter returns a streaming zstd writer. Close flushes the final
// frame but does not close w.
func NewWriter(w io.Writer) (io.WriteCloser, error) {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("compress: zstd writer: %w", err)
	}
	return encoder, nil
}

// NewReader returns a streaming zstd reader. The caller must Close it
// to release decoder goroutines.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("compress: zstd reader: %w", err)
	}
	return decoder.IOReadCloser(), nil
}
