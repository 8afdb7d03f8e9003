package fastq

import (
	"io"

	farm "github.com/dgryski/go-farm"
	gunsafe "github.com/grailbio/base/unsafe"
)

var newline = []byte{'\n'}

// Writer is a FASTQ file writer. It does no buffering of its own;
// wrap the underlying writer (or use a Sink) for that.
//
// Writer keeps a running fingerprint of the reads it has written, so
// that two outputs can be compared without rereading them.
type Writer struct {
	w   io.Writer
	n   int64
	fp  uint64
	err error
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes the read r in FASTQ format, each of its four lines
// followed by "\n". An error is returned if the write failed; once a
// write fails, every later call returns the same error.
func (w *Writer) Write(r *Read) error {
	for _, line := range [...]string{r.ID, r.Seq, r.Unk, r.Qual} {
		w.writeln(line)
	}
	if w.err == nil {
		w.n++
	}
	return w.err
}

// Count returns the number of reads written successfully.
func (w *Writer) Count() int64 { return w.n }

// Fingerprint returns an order-sensitive hash of every line written
// successfully. It is 0 if nothing was written.
func (w *Writer) Fingerprint() uint64 { return w.fp }

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	if _, w.err = io.WriteString(w.w, line); w.err != nil {
		return
	}
	if _, w.err = w.w.Write(newline); w.err != nil {
		return
	}
	w.fp = farm.Hash64WithSeed(gunsafe.StringToBytes(line), w.fp)
}
