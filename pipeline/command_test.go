package pipeline_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/quattro/vira-stager/amplicon"
	"github.com/quattro/vira-stager/interval"
	"github.com/quattro/vira-stager/pipeline"
)

func TestCommandAligner(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "command")
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	ctx := vcontext.Background()

	reads := filepath.Join(dir, "reads.fa")
	writeFile(t, reads, ">r\nACGT\n")
	ref := filepath.Join(dir, "ref.fa")
	writeFile(t, ref, ">ref\nACGTACGT\n")

	// stdout is captured when no argument names the output.
	out := filepath.Join(dir, "out.sam")
	a := &pipeline.CommandAligner{Command: "cat", Args: []string{pipeline.ReferencePlaceholder, pipeline.ReadsPlaceholder}}
	assert.NoError(t, a.Align(ctx, reads, ref, out))
	data, err := ioutil.ReadFile(out)
	assert.NoError(t, err)
	expect.EQ(t, string(data), ">ref\nACGTACGT\n>r\nACGT\n")

	out2 := filepath.Join(dir, "out2.sam")
	a = &pipeline.CommandAligner{Command: "cp", Args: []string{pipeline.ReadsPlaceholder, pipeline.OutPlaceholder}}
	assert.NoError(t, a.Align(ctx, reads, ref, out2))
	data, err = ioutil.ReadFile(out2)
	assert.NoError(t, err)
	expect.EQ(t, string(data), ">r\nACGT\n")

	a = &pipeline.CommandAligner{Command: "false"}
	expect.NotNil(t, a.Align(ctx, reads, ref, filepath.Join(dir, "out3.sam")))
	a = &pipeline.CommandAligner{Command: " "}
	expect.NotNil(t, a.Align(ctx, reads, ref, filepath.Join(dir, "out4.sam")))
}

func TestCommandReconstructor(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "command")
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	ctx := vcontext.Background()

	reads := filepath.Join(dir, "aligned_reads.fas")
	writeFile(t, reads, ">r\nAC-T\n")
	out := filepath.Join(dir, "corrected.fa")
	r := &pipeline.CommandReconstructor{
		Command: "sh -c",
		Args:    []string{`echo ">k$1" > "$2"; cat "$0" >> "$2"`, pipeline.ReadsPlaceholder, pipeline.KPlaceholder, pipeline.OutPlaceholder},
	}
	assert.NoError(t, r.Reconstruct(ctx, reads, 20, out))
	data, err := ioutil.ReadFile(out)
	assert.NoError(t, err)
	expect.EQ(t, string(data), ">k20\n>r\nAC-T\n")
}

const fakeB2W = `#!/bin/sh
# bam ref region -w len ...
region=$(echo "$3" | tr ':' '-')
printf '>r1\nACGT\n>r2\nACGT\n' > "w-$region.reads.fas"
`

func TestCommandExtractor(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "command")
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	ctx := vcontext.Background()

	b2w := filepath.Join(dir, "b2w")
	assert.NoError(t, ioutil.WriteFile(b2w, []byte(fakeB2W), 0755))
	ref := filepath.Join(dir, "ref.fa")
	writeFile(t, ref, ">ref\nACGTACGTAC\nGTACGT\n")
	bam := filepath.Join(dir, "reads.bam")
	writeFile(t, bam, "")
	writeFile(t, bam+".bai", "")

	ext := &pipeline.CommandExtractor{Binary: b2w, BAMPath: bam, ReferencePath: ref}
	out := filepath.Join(dir, "aligned_reads.fas")
	n, err := ext.ExtractWindow(ctx, interval.Interval{Start: 10, Stop: 20}, out)
	assert.NoError(t, err)
	expect.EQ(t, n, 2)
	data, err := ioutil.ReadFile(out)
	assert.NoError(t, err)
	expect.EQ(t, string(data), ">r1\nACGT\n>r2\nACGT\n")

	fai, err := ioutil.ReadFile(ref + ".fai")
	assert.NoError(t, err)
	expect.True(t, strings.HasPrefix(string(fai), "ref\t16\t"), "fai: %q", fai)

	_, err = ioutil.ReadFile(filepath.Join(dir, "w-CONSENSUS-10-20.reads.fas"))
	expect.NotNil(t, err)
}

func TestCommandExtractorCheck(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "command")
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	ctx := vcontext.Background()

	b2w := filepath.Join(dir, "b2w")
	assert.NoError(t, ioutil.WriteFile(b2w, []byte(fakeB2W), 0755))
	ref := filepath.Join(dir, "ref.fa")
	writeFile(t, ref, ">ref\nACGTACGTAC\n")
	sam := filepath.Join(dir, "aligned.sam")
	writeFile(t, sam, "@SQ\tSN:ref\tLN:10\n")
	unindexed := filepath.Join(dir, "unindexed.bam")
	writeFile(t, unindexed, "")

	for _, path := range []string{sam, unindexed} {
		ext := &pipeline.CommandExtractor{Binary: b2w, BAMPath: path, ReferencePath: ref}
		expect.NotNil(t, ext.Check(ctx), path)

		// Run fails before creating any per-interval directory.
		set, err := amplicon.ReadIntervals(strings.NewReader("0,5\n5,10\n"))
		assert.NoError(t, err)
		opts := pipeline.DefaultOpts
		opts.OutputDir = filepath.Join(dir, "out")
		rec := &fakeReconstructor{}
		expect.NotNil(t, pipeline.Run(ctx, opts, set, ext, rec), path)
		_, err = os.Stat(pipeline.AmpliconDir(opts.OutputDir, 0))
		expect.True(t, os.IsNotExist(err), path)
		expect.EQ(t, len(rec.calls), 0)
	}
	_, err := os.Stat(ref + ".fai")
	expect.True(t, os.IsNotExist(err))
}
