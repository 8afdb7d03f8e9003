package fastq

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
)

// Codec is the compression applied to an output FASTQ file.
type Codec int

const (
	// Plain writes uncompressed FASTQ.
	Plain Codec = iota
	// Gzip writes a single gzip stream.
	Gzip
	// BGZF writes blocked gzip, readable by any gzip reader and by
	// htslib tools.
	BGZF
	// Snappy writes a framed snappy stream.
	Snappy
)

// CodecAuto is the codec name that selects a codec from the output path.
const CodecAuto = "auto"

var codecNames = []string{
	Plain:  "none",
	Gzip:   "gzip",
	BGZF:   "bgzf",
	Snappy: "snappy",
}

func (c Codec) String() string {
	if c < 0 || int(c) >= len(codecNames) {
		return fmt.Sprintf("Codec(%d)", int(c))
	}
	return codecNames[c]
}

// ParseCodec returns the codec with the given name. Name CodecAuto
// picks the codec from the extension of path; see CodecFromPath.
func ParseCodec(name, path string) (Codec, error) {
	if name == CodecAuto {
		return CodecFromPath(path), nil
	}
	for c, n := range codecNames {
		if n == name {
			return Codec(c), nil
		}
	}
	return Plain, errors.E(errors.Invalid, fmt.Sprintf("unknown compression %q, want one of %s or %s",
		name, strings.Join(codecNames, ", "), CodecAuto))
}

// CodecFromPath guesses the codec from the extension of path: ".gz"
// is Gzip, ".bgz" and ".bgzf" are BGZF, ".sz" is Snappy. Anything else
// is Plain.
func CodecFromPath(path string) Codec {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return Gzip
	case strings.HasSuffix(path, ".bgz"), strings.HasSuffix(path, ".bgzf"):
		return BGZF
	case strings.HasSuffix(path, ".sz"):
		return Snappy
	}
	return Plain
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	// snappyMagic starts every framed snappy stream.
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

// Source is an input FASTQ file. Compression is detected from the
// file contents: gzip (including BGZF), framed snappy, and bzip2 and
// the other formats known to grailbio/base/compress. Anything else is
// read as is.
type Source struct {
	path string
	f    file.File
	r    io.Reader
}

// Open opens the FASTQ file at path for reading. The path may name
// any file implementation registered with grailbio/base/file.
func Open(ctx context.Context, path string) (*Source, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	s := &Source{path: path, f: f}
	br := bufio.NewReader(f.Reader(ctx))
	magic, _ := br.Peek(len(snappyMagic))
	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		// Gzip and BGZF. The reader fails with io.ErrUnexpectedEOF if the
		// stream was cut short.
		zr, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close(ctx)
			return nil, errors.E(err, "open", path)
		}
		s.r = zr
	case bytes.Equal(magic, snappyMagic):
		s.r = snappy.NewReader(br)
	default:
		s.r, _ = compress.NewReader(br)
	}
	log.Debug.Printf("opened %s for reading", path)
	return s, nil
}

// Read implements io.Reader. It returns uncompressed FASTQ data.
// Decompression errors, including a truncated stream, are reported
// with the path of the file.
func (s *Source) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = errors.E(err, "read", s.path)
	}
	return n, err
}

// Close closes the source. It must be called exactly once.
func (s *Source) Close(ctx context.Context) error {
	var once errors.Once
	if c, ok := s.r.(io.Closer); ok {
		once.Set(c.Close())
	}
	once.Set(s.f.Close(ctx))
	if err := once.Err(); err != nil {
		return errors.E(err, "close", s.path)
	}
	return nil
}

const sinkBufferSize = 1 << 20

// Sink is an output FASTQ file, compressed with a Codec. Writes are
// buffered; the data is complete only after Close.
type Sink struct {
	path string
	f    file.File
	zw   io.WriteCloser
	w    *bufio.Writer
}

// Create creates (or truncates) the file at path and returns a Sink
// that compresses its input with codec.
func Create(ctx context.Context, path string, codec Codec) (*Sink, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	s := &Sink{path: path, f: f}
	w := f.Writer(ctx)
	switch codec {
	case Plain:
	case Gzip:
		s.zw = gzip.NewWriter(w)
	case BGZF:
		s.zw = bgzf.NewWriter(w, 1)
	case Snappy:
		s.zw = snappy.NewBufferedWriter(w)
	default:
		_ = f.Close(ctx)
		return nil, errors.E(errors.Invalid, fmt.Sprintf("create %s: unknown codec %v", path, codec))
	}
	if s.zw != nil {
		w = s.zw
	}
	s.w = bufio.NewWriterSize(w, sinkBufferSize)
	log.Debug.Printf("created %s (compression: %v)", path, codec)
	return s, nil
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Close flushes buffered data, finishes the compressed stream, and
// closes the file. It must be called exactly once, including after
// a failed run.
func (s *Sink) Close(ctx context.Context) error {
	var once errors.Once
	once.Set(s.w.Flush())
	if s.zw != nil {
		once.Set(s.zw.Close())
	}
	once.Set(s.f.Close(ctx))
	if err := once.Err(); err != nil {
		return errors.E(err, "close", s.path)
	}
	return nil
}

// SubsampleFile runs Subsample from the FASTQ file at inPath to a new
// file at outPath, compressed with codec. The files are closed on
// every return path; the first error encountered is returned.
func SubsampleFile(ctx context.Context, inPath, outPath string, codec Codec, opts SubsampleOpts) (stats Stats, err error) {
	if err = opts.Validate(); err != nil {
		return
	}
	var (
		in  *Source
		out *Sink
	)
	defer func() {
		var once errors.Once
		once.Set(err)
		if in != nil {
			once.Set(in.Close(ctx))
		}
		if out != nil {
			once.Set(out.Close(ctx))
		}
		err = once.Err()
	}()
	if in, err = Open(ctx, inPath); err != nil {
		return
	}
	if out, err = Create(ctx, outPath, codec); err != nil {
		return
	}
	return Subsample(in, out, opts)
}

// SubsamplePairFiles runs SubsamplePairs over the FASTQ files at
// r1InPath and r2InPath, writing new files at r1OutPath and r2OutPath
// compressed with codec. All files are opened before any read is
// processed, and all are closed on every return path, including a
// *PairingError.
func SubsamplePairFiles(ctx context.Context, r1InPath, r2InPath, r1OutPath, r2OutPath string, codec Codec, opts SubsampleOpts) (stats Stats, err error) {
	if err = opts.Validate(); err != nil {
		return
	}
	var (
		ins  [2]*Source
		outs [2]*Sink
	)
	defer func() {
		var once errors.Once
		once.Set(err)
		for _, in := range ins {
			if in != nil {
				once.Set(in.Close(ctx))
			}
		}
		for _, out := range outs {
			if out != nil {
				once.Set(out.Close(ctx))
			}
		}
		err = once.Err()
	}()
	for i, path := range [...]string{r1InPath, r2InPath} {
		if ins[i], err = Open(ctx, path); err != nil {
			return
		}
	}
	for i, path := range [...]string{r1OutPath, r2OutPath} {
		if outs[i], err = Create(ctx, path, codec); err != nil {
			return
		}
	}
	return SubsamplePairs(ins[0], ins[1], outs[0], outs[1], opts)
}
