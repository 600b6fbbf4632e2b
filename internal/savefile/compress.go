package savefile

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how backups are stored.
type Compression uint8

const (
	// CompressionNone keeps the backup byte-identical to the original.
	CompressionNone Compression = iota
	// CompressionLZ4 writes an LZ4 frame at level 9.
	CompressionLZ4
	// CompressionZstd writes a zstd frame at the best-compression level.
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses the String form.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown backup compression: %q", name)
	}
}

// Ext is the file suffix a backup gets for this compression.
func (c Compression) Ext() string {
	switch c {
	case CompressionLZ4:
		return ".lz4"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

func compressionForPath(path string) Compression {
	switch {
	case strings.HasSuffix(path, CompressionLZ4.Ext()):
		return CompressionLZ4
	case strings.HasSuffix(path, CompressionZstd.Ext()):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// encodeTo writes data to w using c.
func (c Compression) encodeTo(w io.Writer, data []byte) error {
	switch c {
	case CompressionNone:
		_, err := w.Write(data)
		return err

	case CompressionLZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return fmt.Errorf("lz4 options: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("lz4 compress: %w", err)
		}
		return zw.Close()

	case CompressionZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("zstd compress: %w", err)
		}
		return zw.Close()

	default:
		return fmt.Errorf("unsupported backup compression: %s", c)
	}
}

// decode reads everything from r, undoing c.
func (c Compression) decode(r io.Reader) ([]byte, error) {
	switch c {
	case CompressionNone:
		return io.ReadAll(r)

	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(r))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out, nil

	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported backup compression: %s", c)
	}
}
