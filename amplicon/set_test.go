package amplicon_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/pkg/errors"
	"github.com/quattro/vira-stager/amplicon"
	"github.com/quattro/vira-stager/interval"
	"github.com/quattro/vira-stager/pileup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSet(t *testing.T, p interval.Partition) *amplicon.Set {
	s, err := amplicon.Finalize(amplicon.ScoredPartition{Partition: p, Score: 1.5}, 1000, 100)
	require.NoError(t, err)
	return s
}

func TestFinalize(t *testing.T) {
	s := newSet(t, interval.Partition{{Start: 600, Stop: 1000}, {Start: 0, Stop: 250}, {Start: 250, Stop: 500}})
	assert.Equal(t, []int{0, 250, 600}, s.Starts())
	assert.Equal(t, []int{250, 500, 1000}, s.Stops())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1.5, s.Score())
	assert.Equal(t, 900, s.Covered())

	var got []interval.Interval
	sc := s.NewScanner()
	for sc.Scan() {
		assert.Equal(t, len(got), sc.Index())
		got = append(got, sc.Interval())
	}
	assert.False(t, sc.Scan())
	assert.Equal(t, []interval.Interval{{Start: 0, Stop: 250}, {Start: 250, Stop: 500}, {Start: 600, Stop: 1000}}, got)

	for _, bad := range []interval.Partition{
		{{Start: 0, Stop: 300}, {Start: 200, Stop: 500}},
		{{Start: 0, Stop: 50}},
		{{Start: 900, Stop: 1100}},
		{{Start: -10, Stop: 100}},
	} {
		_, err := amplicon.Finalize(amplicon.ScoredPartition{Partition: bad}, 1000, 100)
		assert.Equal(t, amplicon.ErrInvalidArgument, errors.Cause(err), "%v", bad)
	}
}

func TestWriteReadIntervals(t *testing.T) {
	s := newSet(t, interval.Partition{{Start: 0, Stop: 250}, {Start: 250, Stop: 500}, {Start: 600, Stop: 1000}})
	var buf bytes.Buffer
	require.NoError(t, amplicon.WriteIntervals(&buf, s))
	assert.Equal(t, "0,250\n250,500\n600,1000\n", buf.String())

	s2, err := amplicon.ReadIntervals(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, s.Starts(), s2.Starts())
	assert.Equal(t, s.Stops(), s2.Stops())
	assert.Equal(t, s.Digest(), s2.Digest())

	for _, bad := range []string{
		"0,250\nfoo\n",
		"0;250\n",
		"0,250,300\n",
		"300,500\n0,250\n",
		"0,250\n200,300\n",
		"10,10\n",
	} {
		_, err := amplicon.ReadIntervals(strings.NewReader(bad))
		assert.Equal(t, pileup.ErrParse, errors.Cause(err), "%q", bad)
	}
	s3, err := amplicon.ReadIntervals(strings.NewReader("\n0, 250\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, s3.Starts())
}

func TestWriteBED(t *testing.T) {
	s := newSet(t, interval.Partition{{Start: 0, Stop: 250}, {Start: 600, Stop: 1000}})
	var buf bytes.Buffer
	require.NoError(t, amplicon.WriteBED(&buf, "HXB2", s))
	assert.Equal(t, "HXB2\t0\t250\tamplicon0\nHXB2\t600\t1000\tamplicon1\n", buf.String())
}

func TestSaveLoad(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()
	s := newSet(t, interval.Partition{{Start: 0, Stop: 250}, {Start: 250, Stop: 500}, {Start: 600, Stop: 1000}})
	for _, name := range []string{"intervals.txt", "intervals.txt.gz"} {
		path := filepath.Join(tmpdir, name)
		require.NoError(t, amplicon.Save(ctx, path, s))
		s2, err := amplicon.Load(ctx, path)
		require.NoError(t, err, name)
		assert.Equal(t, s.Starts(), s2.Starts(), name)
		assert.Equal(t, s.Stops(), s2.Stops(), name)
	}
	require.NoError(t, amplicon.SaveBED(ctx, filepath.Join(tmpdir, "intervals.bed"), "HXB2", s))

	_, err := amplicon.Load(ctx, filepath.Join(tmpdir, "nonexistent.txt"))
	assert.Error(t, err)
}
