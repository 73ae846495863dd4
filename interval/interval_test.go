package interval

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		p      Partition
		length int
		minLen int
		ok     bool
	}{
		{Partition{}, 100, 10, true},
		{Partition{{0, 50}, {50, 100}}, 100, 10, true},
		{Partition{{0, 50}, {60, 100}}, 100, 10, true},
		{Partition{{0, 50}, {40, 100}}, 100, 10, false},
		{Partition{{50, 100}, {0, 50}}, 100, 10, false},
		{Partition{{0, 5}, {50, 100}}, 100, 10, false},
		{Partition{{0, 50}, {50, 101}}, 100, 10, false},
		{Partition{{-1, 50}}, 100, 10, false},
		{Partition{{20, 20}}, 100, 0, false},
	}
	for _, tt := range tests {
		err := tt.p.Validate(tt.length, tt.minLen)
		expect.EQ(t, err == nil, tt.ok, "partition %v: %v", tt.p, err)
	}
}

func TestFind(t *testing.T) {
	p := Partition{{5, 15}, {15, 17}, {20, 25}}
	tests := []struct {
		pos  PosType
		want int
	}{
		{0, -1},
		{4, -1},
		{5, 0},
		{14, 0},
		{15, 1},
		{16, 1},
		{17, -1},
		{19, -1},
		{20, 2},
		{24, 2},
		{25, -1},
		{100, -1},
	}
	for _, tt := range tests {
		expect.EQ(t, p.Find(tt.pos), tt.want, "pos %d", tt.pos)
	}
}

func TestGaps(t *testing.T) {
	p := Partition{{5, 15}, {15, 17}, {20, 25}}
	expect.EQ(t, p.Gaps(30), []Interval{{0, 5}, {17, 20}, {25, 30}})
	expect.EQ(t, Partition{{0, 30}}.Gaps(30), []Interval(nil))
}

func TestLess(t *testing.T) {
	a := Partition{{0, 10}, {10, 30}}
	b := Partition{{0, 20}, {20, 30}}
	expect.True(t, a.Less(b))
	expect.False(t, b.Less(a))
	expect.True(t, Partition{{0, 10}}.Less(a))
	expect.False(t, a.Less(a))
	expect.True(t, a.Equal(Partition{{0, 10}, {10, 30}}))
}
