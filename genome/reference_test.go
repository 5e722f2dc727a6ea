package genome_test

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/somatic/genome"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestNormalizeContigName(t *testing.T) {
	for _, tt := range []struct {
		a, b string
		same bool
	}{
		{"chrM", "M", true},
		{"CHR1", "1", true},
		{"chrX", "x", true},
		{"chr1", "chr10", false},
		{"MT", "M", false},
	} {
		expect.EQ(t, genome.NormalizeContigName(tt.a) == genome.NormalizeContigName(tt.b), tt.same, "%s vs %s", tt.a, tt.b)
	}
}

func TestLocusOrdering(t *testing.T) {
	a := genome.Locus{RefID: 0, Pos: 100}
	b := genome.Locus{RefID: 1, Pos: 5}
	expect.True(t, a.LT(b))
	expect.False(t, b.LE(a))
	expect.True(t, a.EQ(genome.Locus{RefID: 0, Pos: 100}))
	expect.EQ(t, a.Next(), genome.Locus{RefID: 0, Pos: 101})
	r := genome.LocusRange{Start: a, Limit: b}
	expect.True(t, r.Contains(genome.Locus{RefID: 0, Pos: 5000}))
	expect.False(t, r.Contains(b))
}

func TestLinear(t *testing.T) {
	ref, err := genome.NewReference(
		[]string{"chr1", "empty", "chr2"},
		[][]byte{[]byte("acgt"), nil, []byte("GGG")})
	assert.NoError(t, err)
	expect.EQ(t, ref.TotalLen(), int64(7))
	expect.EQ(t, ref.Base(genome.Locus{RefID: 0, Pos: 1}), byte('C'))
	expect.EQ(t, ref.Base(genome.Locus{RefID: 0, Pos: 4}), byte('N'))
	for x := int64(0); x < ref.TotalLen(); x++ {
		l := ref.Delinearize(x)
		expect.NEQ(t, l.RefID, int32(1))
		expect.EQ(t, ref.Linear(l), x)
	}
	expect.EQ(t, ref.Delinearize(4), genome.Locus{RefID: 2, Pos: 0})
	expect.EQ(t, ref.Delinearize(7), ref.End())

	id, ok := ref.ContigID("CHR2")
	assert.True(t, ok)
	expect.EQ(t, id, int32(2))
	_, ok = ref.ContigID("chr3")
	expect.False(t, ok)

	_, err = genome.NewReference([]string{"chrM", "M"}, [][]byte{nil, nil})
	expect.NotNil(t, err)
}

func TestCheckSequenceDictionaries(t *testing.T) {
	a := []genome.Contig{{"chr1", 100}, {"chr2", 50}}
	expect.NoError(t, genome.CheckSequenceDictionaries(a, []genome.Contig{{"1", 100}, {"2", 50}}))
	expect.NotNil(t, genome.CheckSequenceDictionaries(a, []genome.Contig{{"chr1", 100}}))
	expect.NotNil(t, genome.CheckSequenceDictionaries(a, []genome.Contig{{"chr1", 100}, {"chr3", 50}}))
	expect.NotNil(t, genome.CheckSequenceDictionaries(a, []genome.Contig{{"chr1", 100}, {"chr2", 51}}))
}

func TestLoadReference(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	fapath := filepath.Join(tmpdir, "ref.fa")
	assert.NoError(t, ioutil.WriteFile(fapath, []byte(">chr1 test\nacgtn\nAC\n>chrM\nTTT\n"), 0644))

	ref, err := genome.LoadReference(vcontext.Background(), fapath)
	assert.NoError(t, err)
	expect.EQ(t, ref.NContigs(), 2)
	expect.EQ(t, string(ref.Bases(0, 0, 100)), "ACGTNAC")
	expect.EQ(t, ref.Name(1), "chrM")
	expect.EQ(t, ref.Len(1), genome.PosType(3))

	expect.NoError(t, ref.CheckHeaderContigs("tumor", []genome.Contig{{"1", 7}, {"M", 3}}))
	expect.NotNil(t, ref.CheckHeaderContigs("tumor", []genome.Contig{{"1", 8}}))
	expect.NotNil(t, ref.CheckHeaderContigs("tumor", []genome.Contig{{"chr2", 8}}))
}
