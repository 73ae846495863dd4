// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package pileup_test

import (
	"path/filepath"
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
	"github.com/quattro/vira-stager/pileup"
)

func TestLoadReference(t *testing.T) {
	ref, err := pileup.LoadReference("hxb2", []byte("acgtRYnu"))
	assert.NoError(t, err)
	expect.EQ(t, ref.Len(), 8)
	expect.EQ(t, ref.Name(), "hxb2")
	expect.EQ(t, string(ref.Seq()), "ACGTRYNT")
	expect.EQ(t, ref.SymbolAt(4), byte('R'))
	expect.EQ(t, ref.NumAmbiguous(), 3)
	expect.EQ(t, ref.Expand(0), "A")
	expect.EQ(t, ref.Expand(4), "AG")
	expect.EQ(t, ref.Expand(5), "CT")
	expect.EQ(t, ref.Expand(6), "ACGT")

	for _, bad := range []string{"", "ACGT-", "ACXT", "AC GT", "=ACG"} {
		_, err := pileup.LoadReference("bad", []byte(bad))
		expect.EQ(t, errors.Cause(err), pileup.ErrParse, "seq %q", bad)
	}
}

func TestExpandSymbol(t *testing.T) {
	for _, tt := range []struct {
		c    byte
		want string
	}{
		{'A', "A"}, {'u', "T"}, {'M', "AC"}, {'S', "CG"}, {'W', "AT"},
		{'K', "GT"}, {'V', "ACG"}, {'H', "ACT"}, {'D', "AGT"}, {'B', "CGT"},
		{'-', ""}, {'=', ""}, {'Z', ""},
	} {
		expect.EQ(t, pileup.ExpandSymbol(tt.c), tt.want, "symbol %c", tt.c)
	}
}

func writeFile(t *testing.T, path, data string) {
	ctx := vcontext.Background()
	out, err := file.Create(ctx, path)
	assert.NoError(t, err)
	_, err = out.Writer(ctx).Write([]byte(data))
	assert.NoError(t, err)
	assert.NoError(t, out.Close(ctx))
}

func TestReadReference(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	path := filepath.Join(tmpdir, "ref.fa")
	writeFile(t, path, ">HXB2 first\nacgt\nNNAC\n>second\nTTTT\n")
	ref, err := pileup.ReadReference(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, ref.Name(), "HXB2")
	expect.EQ(t, string(ref.Seq()), "ACGTNNAC")

	empty := filepath.Join(tmpdir, "empty.fa")
	writeFile(t, empty, "")
	_, err = pileup.ReadReference(ctx, empty)
	expect.EQ(t, errors.Cause(err), pileup.ErrParse)

	headerOnly := filepath.Join(tmpdir, "header.fa")
	writeFile(t, headerOnly, ">x\n")
	_, err = pileup.ReadReference(ctx, headerOnly)
	expect.EQ(t, errors.Cause(err), pileup.ErrParse)

	badSymbol := filepath.Join(tmpdir, "bad.fa")
	writeFile(t, badSymbol, ">x\nAC*T\n")
	_, err = pileup.ReadReference(ctx, badSymbol)
	expect.EQ(t, errors.Cause(err), pileup.ErrParse)
}
