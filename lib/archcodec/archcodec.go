// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archcodec provides the compression codec abstraction shared
// by the tar writer, restore engine, verifier, repairer, and merger: a
// single capability interface with five concrete variants, dispatched
// by a tag rather than deep inheritance.
package archcodec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Name identifies a compression algorithm. It is the exact string
// stored in the index header's "compression" field.
type Name string

const (
	None  Name = "none"
	Gzip  Name = "gzip"
	Zstd  Name = "zstd"
	Bzip2 Name = "bzip2"
	Lz4   Name = "lz4"
)

// Extension returns the part filename extension for the codec,
// following the {base}.part{NNN}.{ext} convention.
func (n Name) Extension() string {
	switch n {
	case None:
		return "tar"
	case Gzip:
		return "tar.gz"
	case Zstd:
		return "tar.zst"
	case Bzip2:
		return "tar.bz2"
	case Lz4:
		return "tar.lz4"
	default:
		return "tar"
	}
}

// Valid reports whether n is one of the five recognized codec names.
func (n Name) Valid() bool {
	switch n {
	case None, Gzip, Zstd, Bzip2, Lz4:
		return true
	default:
		return false
	}
}

// Codec is the polymorphic compression capability every part stream
// goes through. Readers are always streaming: no implementation
// buffers an entire decompressed part in memory.
type Codec interface {
	// OpenWriter wraps w so that bytes written to the result are
	// compressed into w. The caller must Close the result to flush
	// trailing codec state before closing w itself.
	OpenWriter(w io.Writer) (io.WriteCloser, error)

	// OpenReader wraps r so that reads from the result are decompressed
	// from r.
	OpenReader(r io.Reader) (io.ReadCloser, error)
}

// New returns the Codec for the given name and zstd compression level
// (ignored by every codec except zstd). Returns an error for an
// unrecognized name.
func New(name Name, zstdLevel int) (Codec, error) {
	switch name {
	case None, "":
		return identityCodec{}, nil
	case Gzip:
		return gzipCodec{}, nil
	case Zstd:
		return zstdCodec{level: zstdLevel}, nil
	case Bzip2:
		return bzip2Codec{}, nil
	case Lz4:
		return lz4Codec{}, nil
	default:
		return nil, fmt.Errorf("archcodec: unrecognized compression %q", name)
	}
}

// identityCodec passes bytes through unchanged.
type identityCodec struct{}

func (identityCodec) OpenWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (identityCodec) OpenReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// gzipCodec uses klauspost/compress's drop-in-faster gzip at the
// library's default compression level.
type gzipCodec struct{}

func (gzipCodec) OpenWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, gzip.DefaultCompression)
}

func (gzipCodec) OpenReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(bufio.NewReader(r))
}

// zstdCodec wraps klauspost/compress/zstd, parameterized by the level
// carried in the index header.
type zstdCodec struct{ level int }

func (c zstdCodec) OpenWriter(w io.Writer) (io.WriteCloser, error) {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstdSpeedFromLevel(c.level)))
	if err != nil {
		return nil, fmt.Errorf("opening zstd writer: %w", err)
	}
	return encoder, nil
}

// zstdSpeedFromLevel maps the 1-22 zstd levels stored in the index
// header onto klauspost/compress's four-bucket EncoderLevel enum.
func zstdSpeedFromLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 3:
		return zstd.SpeedDefault
	case level <= 9:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func (zstdCodec) OpenReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening zstd reader: %w", err)
	}
	return decoder.IOReadCloser(), nil
}

// bzip2Codec writes via dsnet/compress/bzip2 — the standard library's
// compress/bzip2 has no encoder.
type bzip2Codec struct{}

func (bzip2Codec) OpenWriter(w io.Writer) (io.WriteCloser, error) {
	writer, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	if err != nil {
		return nil, fmt.Errorf("opening bzip2 writer: %w", err)
	}
	return writer, nil
}

func (bzip2Codec) OpenReader(r io.Reader) (io.ReadCloser, error) {
	reader, err := bzip2.NewReader(r, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bzip2 reader: %w", err)
	}
	return reader, nil
}

// lz4Codec uses pierrec/lz4's frame format for unbounded streaming
// (the teacher's own lz4 usage is block mode, sized for fixed content
// chunks; a tar part has no known size up front).
type lz4Codec struct{}

func (lz4Codec) OpenWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (lz4Codec) OpenReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
