package fastq

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const linesPerRead = 4

var (
	// ErrTruncated is returned when a FASTQ stream ends partway through
	// a record.
	ErrTruncated = errors.New("truncated FASTQ record")
	// ErrLineTooLong is returned when a line exceeds ScannerOpts.MaxLineLen.
	ErrLineTooLong = errors.New("FASTQ line too long")
	// ErrDiscordant is returned when two underlying FASTQ files are discordant.
	ErrDiscordant = errors.New("discordant FASTQ pairs")
)

// A Read is a FASTQ read, comprising an ID, sequence, line 3
// ("unknown"), and a quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

var errEOF = errors.New("eof")

// ScannerOpts configures a Scanner.
type ScannerOpts struct {
	// MaxLineLen bounds the length of each line, excluding its newline.
	// Longer lines fail the scan with ErrLineTooLong. Zero means lines
	// may be of any length.
	MaxLineLen int
}

// Scanner provides a convenient interface for reading FASTQ read
// data. The Scan method returns the next read, returning a boolean
// indicating whether the read succeeded. Scanners are not
// threadsafe.
//
// Scanner only frames records: every four lines form a read. It does
// not check that ID lines begin with "@", that line 3 begins with "+",
// or that the sequence and quality strings are of equal length. Only
// the "\n" terminator is removed from each line; a "\r" before it is
// kept as part of the line.
type Scanner struct {
	b   *bufio.Reader
	buf []byte
	max int
	n   int64
	err error
}

// NewScanner constructs a new Scanner that reads raw FASTQ data from the
// provided reader.
func NewScanner(r io.Reader, opts ScannerOpts) *Scanner {
	return &Scanner{b: bufio.NewReader(r), max: opts.MaxLineLen}
}

// Scan the next read into the provided read. Scan returns a boolean
// indicating whether the scan succeeded. Once Scan returns false, it
// never returns true again. Upon completion, the user should check
// the Err method to determine whether scanning stopped because of an
// error or because the end of the stream was reached.
//
// A stream that ends after one to three lines of a record yields an
// error whose cause is ErrTruncated.
func (f *Scanner) Scan(read *Read) bool {
	if f.err != nil {
		return false
	}
	fields := [linesPerRead]*string{&read.ID, &read.Seq, &read.Unk, &read.Qual}
	for i, field := range fields {
		line, err := f.line()
		switch {
		case err == io.EOF && i == 0:
			f.err = errEOF
			return false
		case err == io.EOF:
			f.err = errors.Wrapf(ErrTruncated, "read %d: got %d of %d lines", f.n+1, i, linesPerRead)
			return false
		case err != nil:
			f.err = errors.Wrapf(err, "read %d", f.n+1)
			return false
		}
		*field = line
	}
	f.n++
	return true
}

// line returns the next line without its trailing newline. The last
// line of the stream need not be newline-terminated.
func (f *Scanner) line() (string, error) {
	f.buf = f.buf[:0]
	for {
		frag, err := f.b.ReadSlice('\n')
		f.buf = append(f.buf, frag...)
		if f.max > 0 && len(f.buf) > f.max+1 {
			return "", errors.Wrapf(ErrLineTooLong, "limit is %d bytes", f.max)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && len(f.buf) > 0 {
			break
		}
		if err != nil {
			return "", err
		}
		break
	}
	n := len(f.buf)
	if n > 0 && f.buf[n-1] == '\n' {
		n--
	}
	if f.max > 0 && n > f.max {
		return "", errors.Wrapf(ErrLineTooLong, "limit is %d bytes", f.max)
	}
	return string(f.buf[:n]), nil
}

// Count returns the number of reads scanned so far.
func (f *Scanner) Count() int64 { return f.n }

// Err returns the scanning error, if any.
func (f *Scanner) Err() error {
	if f.err == errEOF {
		return nil
	}
	return f.err
}

// PairingError reports that one of a pair of FASTQ streams ended before
// the other. R1 and R2 are the numbers of reads observed in each
// stream, including the read on the longer side that had no mate.
type PairingError struct {
	R1, R2 int64
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("%v: R1 has %d reads, R2 has %d reads", ErrDiscordant, e.R1, e.R2)
}

// Cause returns ErrDiscordant.
func (e *PairingError) Cause() error { return ErrDiscordant }

// Unwrap returns ErrDiscordant.
func (e *PairingError) Unwrap() error { return ErrDiscordant }

// PairScanner composes a pair of scanners to scan a pair of FASTQ
// streams.
type PairScanner struct {
	r1, r2 *Scanner
	done   bool
	err    error
}

// NewPairScanner creates a new FASTQ pair scanner from the provided
// R1 and R2 readers.
func NewPairScanner(r1, r2 io.Reader, opts ScannerOpts) *PairScanner {
	return &PairScanner{
		r1: NewScanner(r1, opts),
		r2: NewScanner(r2, opts),
	}
}

// Scan scans the next read pair into r1, r2. Both streams are read on
// every call, R1 first, so that a length mismatch is detected at the
// tail. Scan returns a boolean indicating whether the scan succeeded.
// Once Scan returns false, it never returns true again. Upon
// completion, the user should check the Err method to determine
// whether scanning stopped because of an error or because the end of
// both streams was reached.
func (p *PairScanner) Scan(r1, r2 *Read) bool {
	if p.done {
		return false
	}
	ok1 := p.r1.Scan(r1)
	ok2 := p.r2.Scan(r2)
	if ok1 != ok2 && p.r1.Err() == nil && p.r2.Err() == nil {
		p.err = &PairingError{R1: p.r1.Count(), R2: p.r2.Count()}
	}
	p.done = !(ok1 && ok2)
	return !p.done
}

// Err returns the scanning error, if any. It should be checked
// after Scan returns false. A length mismatch between the streams is
// reported as a *PairingError.
func (p *PairScanner) Err() error {
	if err := p.r1.Err(); err != nil {
		return errors.Wrap(err, "R1")
	}
	if err := p.r2.Err(); err != nil {
		return errors.Wrap(err, "R2")
	}
	return p.err
}
