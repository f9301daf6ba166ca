package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/freeeve/fmtrends/internal/table"
)

// Artifact format: a fixed header followed by a zstd-compressed msgpack payload.
//
// File structure:
//   Header (32 bytes):
//     - Magic (4): "FMCT"
//     - Version (2): 1
//     - Flags (2): reserved
//     - Rows (4): row count
//     - Columns (4): column count
//     - Checksum (4): CRC32 of uncompressed payload
//     - RawSize (8): uncompressed payload size
//     - Reserved (4)
//   Body (compressed with zstd):
//     - msgpack array of columns: name, kind, and the one populated value slice

const (
	Magic      = "FMCT"
	Version    = 1
	HeaderSize = 32
)

// ErrCorrupt is returned when an artifact fails header, checksum or payload checks.
var ErrCorrupt = errors.New("corrupt cache artifact")

// Header is the artifact file header.
type Header struct {
	Magic    [4]byte
	Version  uint16
	Flags    uint16
	Rows     uint32
	Columns  uint32
	Checksum uint32
	RawSize  uint64
	Reserved [4]byte
}

// WriteStats contains statistics from writing an artifact.
type WriteStats struct {
	CompressTime     time.Duration
	UncompressedSize int
	CompressedSize   int
}

type columnPayload struct {
	Name    string     `msgpack:"n"`
	Kind    table.Kind `msgpack:"k"`
	Strings []string   `msgpack:"s,omitempty"`
	Ints    []int64    `msgpack:"i,omitempty"`
	Floats  []float64  `msgpack:"f,omitempty"`
	Tags    [][]string `msgpack:"t,omitempty"`
}

func encodeHeader(h *Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.Rows)
	binary.LittleEndian.PutUint32(buf[12:16], h.Columns)
	binary.LittleEndian.PutUint32(buf[16:20], h.Checksum)
	binary.LittleEndian.PutUint64(buf[20:28], h.RawSize)
	copy(buf[28:32], h.Reserved[:])
	return buf
}

func decodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: header too short", ErrCorrupt)
	}
	h := &Header{}
	copy(h.Magic[:], buf[0:4])
	if string(h.Magic[:]) != Magic {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrCorrupt, h.Magic)
	}
	h.Version = binary.LittleEndian.Uint16(buf[4:6])
	if h.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	h.Flags = binary.LittleEndian.Uint16(buf[6:8])
	h.Rows = binary.LittleEndian.Uint32(buf[8:12])
	h.Columns = binary.LittleEndian.Uint32(buf[12:16])
	h.Checksum = binary.LittleEndian.Uint32(buf[16:20])
	h.RawSize = binary.LittleEndian.Uint64(buf[20:28])
	copy(h.Reserved[:], buf[28:32])
	return h, nil
}

// Codec reads and writes artifacts. Its encoder and decoder are reused across calls.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec.
func NewCodec() (*Codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Codec{encoder: encoder, decoder: decoder}, nil
}

// Close releases the zstd encoder and decoder.
func (c *Codec) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}

// Write stores tbl at path. The file is written to path+".tmp" and renamed.
func (c *Codec) Write(path string, tbl *table.Table) (WriteStats, error) {
	var stats WriteStats

	cols := tbl.Columns()
	payload := make([]columnPayload, len(cols))
	for i, col := range cols {
		payload[i] = columnPayload{
			Name:    col.Name,
			Kind:    col.Kind,
			Strings: col.Strings,
			Ints:    col.Ints,
			Floats:  col.Floats,
			Tags:    col.Tags,
		}
	}
	body, err := msgpack.Marshal(payload)
	if err != nil {
		return stats, fmt.Errorf("encode payload: %w", err)
	}
	stats.UncompressedSize = len(body)

	header := Header{
		Version:  Version,
		Rows:     uint32(tbl.Rows()),
		Columns:  uint32(len(cols)),
		Checksum: crc32.ChecksumIEEE(body),
		RawSize:  uint64(len(body)),
	}
	copy(header.Magic[:], Magic)

	compressStart := time.Now()
	compressed := c.encoder.EncodeAll(body, nil)
	stats.CompressTime = time.Since(compressStart)
	stats.CompressedSize = len(compressed)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return stats, err
	}

	// Write to temp file then rename for atomicity
	tmpPath := path + ".tmp"
	data := append(encodeHeader(&header), compressed...)
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return stats, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return stats, err
	}
	return stats, nil
}

// ReadHeader reads just the header of the artifact at path.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return decodeHeader(buf)
}

// Read loads the artifact at path.
func (c *Codec) Read(path string) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	body, err := c.decoder.DecodeAll(data[HeaderSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}
	if uint64(len(body)) != header.RawSize {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorrupt, len(body), header.RawSize)
	}
	if crc32.ChecksumIEEE(body) != header.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	var payload []columnPayload
	if err := msgpack.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrCorrupt, err)
	}
	if uint32(len(payload)) != header.Columns {
		return nil, fmt.Errorf("%w: %d columns, header says %d", ErrCorrupt, len(payload), header.Columns)
	}

	cols := make([]*table.Column, len(payload))
	for i, p := range payload {
		cols[i] = &table.Column{
			Name:    p.Name,
			Kind:    p.Kind,
			Strings: p.Strings,
			Ints:    p.Ints,
			Floats:  p.Floats,
			Tags:    p.Tags,
		}
	}
	tbl, err := table.FromColumns(cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if uint32(tbl.Rows()) != header.Rows {
		return nil, fmt.Errorf("%w: %d rows, header says %d", ErrCorrupt, tbl.Rows(), header.Rows)
	}
	return tbl, nil
}
