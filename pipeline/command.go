package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/quattro/vira-stager/encoding/bamprovider"
	"github.com/quattro/vira-stager/encoding/fasta"
	"github.com/quattro/vira-stager/interval"
)

// Placeholders substituted in command arguments.
const (
	ReadsPlaceholder     = "{reads}"
	ReferencePlaceholder = "{reference}"
	OutPlaceholder       = "{out}"
	KPlaceholder         = "{k}"
)

var (
	// DefaultAlignerArgs runs "bwa mem"-style aligners that print SAM.
	DefaultAlignerArgs = []string{"mem", ReferencePlaceholder, ReadsPlaceholder}
	// DefaultReconstructorArgs mirrors the kGEM invocation: reads, number of
	// haplotypes, output, then fixed tuning flags.
	DefaultReconstructorArgs = []string{ReadsPlaceholder, KPlaceholder, "-o", OutPlaceholder, "-r", "-t", "0", "-d", "1"}
)

// expand substitutes vars in args, and reports whether any arg referred to
// {out}.
func expand(args []string, vars map[string]string) ([]string, bool) {
	result := make([]string, len(args))
	usedOut := false
	for i, arg := range args {
		if strings.Contains(arg, OutPlaceholder) {
			usedOut = true
		}
		for k, v := range vars {
			arg = strings.Replace(arg, k, v, -1)
		}
		result[i] = arg
	}
	return result, usedOut
}

// run runs command (split on spaces, so "java -jar kgem.jar" works) with args
// in dir.  If stdout is nil, the output is discarded.
func run(ctx context.Context, dir string, stdout io.Writer, command string, args ...string) error {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return errors.E(errors.Invalid, "empty command")
	}
	args = append(fields[1:], args...)
	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.Debug.Printf("running %s %s", fields[0], strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return errors.E(err, fmt.Sprintf("%s %s", fields[0], strings.Join(args, " ")), strings.TrimSpace(stderr.String()))
	}
	return nil
}

// runTo runs command, sending its stdout to outPath.
func runTo(ctx context.Context, outPath, command string, args ...string) (err error) {
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return errors.E(err, "create", outPath)
	}
	defer func() {
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	return run(ctx, "", out.Writer(ctx), command, args...)
}

// CommandAligner runs an external aligner.  Args may use the {reads},
// {reference} and {out} placeholders.  If no argument mentions {out}, the
// aligner's stdout is written to the output path.
type CommandAligner struct {
	Command string
	Args    []string
}

// Align implements Aligner.
func (a *CommandAligner) Align(ctx context.Context, readsPath, referencePath, outPath string) error {
	args, usedOut := expand(a.Args, map[string]string{
		ReadsPlaceholder:     readsPath,
		ReferencePlaceholder: referencePath,
		OutPlaceholder:       outPath,
	})
	if usedOut {
		return run(ctx, "", nil, a.Command, args...)
	}
	return runTo(ctx, outPath, a.Command, args...)
}

// CommandReconstructor runs an external haplotype reconstructor.  Args may
// use the {reads}, {k} and {out} placeholders.  If no argument mentions
// {out}, stdout is written to the output path.
type CommandReconstructor struct {
	Command string
	Args    []string
}

// Reconstruct implements Reconstructor.
func (r *CommandReconstructor) Reconstruct(ctx context.Context, readsPath string, k int, outPath string) error {
	args, usedOut := expand(r.Args, map[string]string{
		ReadsPlaceholder: readsPath,
		KPlaceholder:     strconv.Itoa(k),
		OutPlaceholder:   outPath,
	})
	if usedOut {
		return run(ctx, "", nil, r.Command, args...)
	}
	return runTo(ctx, outPath, r.Command, args...)
}

// CommandExtractor runs b2w, which writes the reads of one window of a
// sorted, indexed BAM file into w-CONSENSUS-<start>-<stop>.reads.fas in its
// working directory.  The output is then moved to the requested path.
type CommandExtractor struct {
	// Binary is the b2w executable.
	Binary string
	// BAMPath is the sorted, indexed BAM file.
	BAMPath string
	// ReferencePath is the reference FASTA.  An index (.fai) is generated next
	// to it if missing.
	ReferencePath string

	once     sync.Once
	checkErr error
}

// ensureIndex creates ReferencePath.fai unless it exists.
func (e *CommandExtractor) ensureIndex(ctx context.Context) (err error) {
	faiPath := e.ReferencePath + ".fai"
	if _, err := file.Stat(ctx, faiPath); err == nil {
		return nil
	}
	in, err := file.Open(ctx, e.ReferencePath)
	if err != nil {
		return errors.E(err, "open", e.ReferencePath)
	}
	defer in.Close(ctx) // nolint: errcheck
	out, err := file.Create(ctx, faiPath)
	if err != nil {
		return errors.E(err, "create", faiPath)
	}
	defer func() {
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	log.Printf("generating %s", faiPath)
	return fasta.GenerateIndex(out.Writer(ctx), in.Reader(ctx))
}

// Check verifies that BAMPath is a BAM file with a .bai index next to it,
// and generates the reference index if needed.  It runs once; later calls
// return the first result.
func (e *CommandExtractor) Check(ctx context.Context) error {
	e.once.Do(func() { e.checkErr = e.check(ctx) })
	return e.checkErr
}

func (e *CommandExtractor) check(ctx context.Context) error {
	if t := bamprovider.GuessFileType(e.BAMPath); t != bamprovider.BAM {
		return errors.E(errors.Invalid, e.BAMPath, fmt.Sprintf("b2w needs a sorted, indexed BAM file, found %v", t))
	}
	if _, err := file.Stat(ctx, e.BAMPath+".bai"); err != nil {
		return errors.E(errors.Invalid, err, e.BAMPath, "b2w needs a BAM index (.bai)")
	}
	return e.ensureIndex(ctx)
}

// ExtractWindow implements WindowExtractor.
func (e *CommandExtractor) ExtractWindow(ctx context.Context, iv interval.Interval, outPath string) (int, error) {
	if err := e.Check(ctx); err != nil {
		return 0, err
	}
	bamPath, err := filepath.Abs(e.BAMPath)
	if err != nil {
		return 0, err
	}
	refPath, err := filepath.Abs(e.ReferencePath)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(outPath)
	region := fmt.Sprintf("CONSENSUS:%d-%d", iv.Start, iv.Stop)
	if err := run(ctx, dir, nil, e.Binary, bamPath, refPath, region,
		"-w", strconv.Itoa(iv.Len()), "-i", "0", "-m", "20", "-x", "10000"); err != nil {
		return 0, err
	}
	produced := filepath.Join(dir, "w-"+strings.Replace(region, ":", "-", 1)+".reads.fas")
	if produced != outPath {
		if err := rename(ctx, produced, outPath); err != nil {
			return 0, err
		}
	}
	return countRecords(ctx, outPath)
}

// rename moves src to dst.
func rename(ctx context.Context, src, dst string) error {
	in, err := file.Open(ctx, src)
	if err != nil {
		return errors.E(err, "open", src)
	}
	out, err := file.Create(ctx, dst)
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return errors.E(err, "create", dst)
	}
	e := errors.Once{}
	_, err = io.Copy(out.Writer(ctx), in.Reader(ctx))
	e.Set(err)
	e.Set(in.Close(ctx))
	e.Set(out.Close(ctx))
	if e.Err() != nil {
		return errors.E(e.Err(), "copy", src, dst)
	}
	return file.Remove(ctx, src)
}

// countRecords returns the number of FASTA records in path.
func countRecords(ctx context.Context, path string) (n int, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	sc := bufio.NewScanner(in.Reader(ctx))
	sc.Buffer(nil, 64<<20)
	for sc.Scan() {
		if line := sc.Bytes(); len(line) > 0 && line[0] == '>' {
			n++
		}
	}
	return n, sc.Err()
}
