package fastq_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/subsample/encoding/fastq"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func writeGzipFile(t *testing.T, path, data string) {
	buf := bytes.Buffer{}
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(data))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0600))
}

// readFile returns the uncompressed contents of the FASTQ file at path.
func readFile(t *testing.T, path string) string {
	ctx := context.Background()
	in, err := fastq.Open(ctx, path)
	assert.NoError(t, err)
	data, err := ioutil.ReadAll(in)
	assert.NoError(t, err)
	assert.NoError(t, in.Close(ctx))
	return string(data)
}

func TestParseCodec(t *testing.T) {
	for _, test := range []struct {
		name, path string
		want       fastq.Codec
	}{
		{"none", "x.fastq.gz", fastq.Plain},
		{"gzip", "x.fastq", fastq.Gzip},
		{"bgzf", "x.fastq", fastq.BGZF},
		{"snappy", "x.fastq", fastq.Snappy},
		{"auto", "x.fastq", fastq.Plain},
		{"auto", "x.fq.gz", fastq.Gzip},
		{"auto", "x.fq.bgz", fastq.BGZF},
		{"auto", "x.fq.bgzf", fastq.BGZF},
		{"auto", "s3://bucket/x.fq.sz", fastq.Snappy},
	} {
		got, err := fastq.ParseCodec(test.name, test.path)
		require.NoError(t, err)
		expect.EQ(t, got, test.want)
		if test.name != fastq.CodecAuto {
			expect.EQ(t, got.String(), test.name)
		}
	}
	_, err := fastq.ParseCodec("zip", "x.fastq")
	require.Error(t, err)
	expect.True(t, errors.Is(errors.Invalid, err))
	expect.EQ(t, fastq.Codec(17).String(), "Codec(17)")
}

func TestCodecRoundTrip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	data := formatReads(makeReads(10000, ""))
	inPath := filepath.Join(tempDir, "in.fastq.gz")
	writeGzipFile(t, inPath, data)
	expect.EQ(t, readFile(t, inPath), data)

	for _, test := range []struct {
		codec fastq.Codec
		magic []byte
	}{
		{fastq.Plain, []byte("@read0\n")},
		{fastq.Gzip, []byte{0x1f, 0x8b}},
		{fastq.BGZF, []byte{0x1f, 0x8b, 0x08, 0x04}},
		{fastq.Snappy, []byte("\xff\x06\x00\x00sNaPpY")},
	} {
		t.Run(test.codec.String(), func(t *testing.T) {
			outPath := filepath.Join(tempDir, "out."+test.codec.String())
			stats, err := fastq.SubsampleFile(ctx, inPath, outPath, test.codec, fastq.SubsampleOpts{Percent: 100, Seed: 1})
			require.NoError(t, err)
			expect.EQ(t, stats.Total, int64(10000))
			expect.EQ(t, stats.Kept, int64(10000))

			raw, err := ioutil.ReadFile(outPath)
			require.NoError(t, err)
			require.True(t, bytes.HasPrefix(raw, test.magic), "%q", raw[:8])
			expect.EQ(t, readFile(t, outPath), data)
		})
	}
}

func TestSubsampleFileDeterministic(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	reads := makeReads(500, "")
	inPath := filepath.Join(tempDir, "in.fastq")
	assert.NoError(t, ioutil.WriteFile(inPath, []byte(formatReads(reads)), 0600))

	opts := fastq.SubsampleOpts{Percent: 25, Seed: 8}
	out1, out2 := filepath.Join(tempDir, "out1.fastq.gz"), filepath.Join(tempDir, "out2.fastq.bgz")
	stats1, err := fastq.SubsampleFile(ctx, inPath, out1, fastq.Gzip, opts)
	require.NoError(t, err)
	stats2, err := fastq.SubsampleFile(ctx, inPath, out2, fastq.BGZF, opts)
	require.NoError(t, err)
	expect.EQ(t, stats1, stats2)
	expect.EQ(t, readFile(t, out1), formatReads(referenceKeep(reads, opts.Percent, opts.Seed)))
	expect.EQ(t, readFile(t, out1), readFile(t, out2))
}

func TestOpenErrors(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	missing := filepath.Join(tempDir, "missing.fastq")
	_, err := fastq.Open(ctx, missing)
	require.Error(t, err)

	outPath := filepath.Join(tempDir, "out.fastq")
	_, err = fastq.SubsampleFile(ctx, missing, outPath, fastq.Plain, fastq.SubsampleOpts{Percent: 10})
	require.Error(t, err)
	assert.HasSubstr(t, err.Error(), missing)
	_, err = os.Stat(outPath)
	expect.True(t, os.IsNotExist(err))

	// Invalid options are reported before any file is touched.
	inPath := filepath.Join(tempDir, "in.fastq")
	assert.NoError(t, ioutil.WriteFile(inPath, []byte("@a\nA\n+\nI\n"), 0600))
	_, err = fastq.SubsampleFile(ctx, inPath, outPath, fastq.Plain, fastq.SubsampleOpts{Percent: 0})
	require.Error(t, err)
	_, err = os.Stat(outPath)
	expect.True(t, os.IsNotExist(err))

	_, err = fastq.SubsamplePairFiles(ctx, inPath, missing,
		filepath.Join(tempDir, "o1.fastq"), filepath.Join(tempDir, "o2.fastq"), fastq.Plain, fastq.SubsampleOpts{Percent: 10})
	require.Error(t, err)
	assert.HasSubstr(t, err.Error(), missing)
}

func TestTruncatedGzipInput(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	buf := bytes.Buffer{}
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(formatReads(makeReads(2000, ""))))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	data := buf.Bytes()

	// Cuts inside the 8-byte trailer and inside the compressed data.
	for _, cut := range []int{4, 8, 20} {
		inPath := filepath.Join(tempDir, fmt.Sprintf("cut%d.fastq.gz", cut))
		assert.NoError(t, ioutil.WriteFile(inPath, data[:len(data)-cut], 0600))

		_, err := fastq.SubsampleFile(ctx, inPath, filepath.Join(tempDir, "out.fastq"), fastq.Plain, fastq.SubsampleOpts{Percent: 50, Seed: 1})
		require.Error(t, err, "cut %d", cut)
		assert.HasSubstr(t, err.Error(), inPath)
		assert.HasSubstr(t, err.Error(), io.ErrUnexpectedEOF.Error())
		if pkgerrors.Cause(err) == fastq.ErrTruncated {
			t.Errorf("cut %d: decompression error reported as a FASTQ framing error: %v", cut, err)
		}

		in, err := fastq.Open(ctx, inPath)
		require.NoError(t, err)
		_, err = ioutil.ReadAll(in)
		require.Error(t, err, "cut %d", cut)
		_ = in.Close(ctx)
	}
}

func TestSubsamplePairFiles(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	r1, r2 := makeReads(300, "/1"), makeReads(300, "/2")
	r1Path, r2Path := filepath.Join(tempDir, "r1.fastq.gz"), filepath.Join(tempDir, "r2.fastq.gz")
	writeGzipFile(t, r1Path, formatReads(r1))
	writeGzipFile(t, r2Path, formatReads(r2))

	opts := fastq.SubsampleOpts{Percent: 40, Seed: 5}
	o1, o2 := filepath.Join(tempDir, "o1.fastq.gz"), filepath.Join(tempDir, "o2.fastq.gz")
	stats, err := fastq.SubsamplePairFiles(ctx, r1Path, r2Path, o1, o2, fastq.Gzip, opts)
	require.NoError(t, err)
	expect.EQ(t, stats.Total, int64(300))
	expect.EQ(t, readFile(t, o1), formatReads(referenceKeep(r1, opts.Percent, opts.Seed)))
	expect.EQ(t, readFile(t, o2), formatReads(referenceKeep(r2, opts.Percent, opts.Seed)))
}

func TestSubsamplePairFilesMismatch(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	r1, r2 := makeReads(5, "/1"), makeReads(4, "/2")
	r1Path, r2Path := filepath.Join(tempDir, "r1.fastq"), filepath.Join(tempDir, "r2.fastq.gz")
	assert.NoError(t, ioutil.WriteFile(r1Path, []byte(formatReads(r1)), 0600))
	writeGzipFile(t, r2Path, formatReads(r2))

	o1, o2 := filepath.Join(tempDir, "o1.fastq.gz"), filepath.Join(tempDir, "o2.fastq.gz")
	_, err := fastq.SubsamplePairFiles(ctx, r1Path, r2Path, o1, o2, fastq.Gzip, fastq.SubsampleOpts{Percent: 100, Seed: 1})
	require.Error(t, err)
	expect.EQ(t, pkgerrors.Cause(err), fastq.ErrDiscordant)
	expect.EQ(t, err.Error(), "discordant FASTQ pairs: R1 has 5 reads, R2 has 4 reads")

	// The outputs were closed, and keep the pairs written before the
	// mismatch.
	expect.EQ(t, readFile(t, o1), formatReads(r1[:4]))
	expect.EQ(t, readFile(t, o2), formatReads(r2))
}
