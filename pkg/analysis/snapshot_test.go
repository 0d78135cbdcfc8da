package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

func TestSnapshot_Immutable(t *testing.T) {
	buf := []byte("int x;")
	snap := analysis.NewSnapshot("main.cpp", buf)
	buf[0] = 'X'

	assert.Equal(t, "int x;", snap.Text())

	out := snap.Bytes()
	out[0] = 'Y'
	assert.Equal(t, "int x;", snap.Text())

	u := snap.Unsaved()
	u.Contents[0] = 'Z'
	assert.Equal(t, "int x;", snap.Text())
	assert.Equal(t, "main.cpp", u.Filename)
	assert.Equal(t, "main.cpp", snap.VirtualName())
	assert.Equal(t, 6, snap.Len())
}

func TestSnapshot_Positions(t *testing.T) {
	snap := analysis.SnapshotFromString("main.cpp", "int a;\nint b;\n\nx")

	tests := []struct {
		name   string
		offset int
		pos    analysis.Position
	}{
		{"start", 0, analysis.Position{Line: 1, Column: 0}},
		{"mid first line", 4, analysis.Position{Line: 1, Column: 4}},
		{"newline byte", 6, analysis.Position{Line: 1, Column: 6}},
		{"second line", 7, analysis.Position{Line: 2, Column: 0}},
		{"empty line", 14, analysis.Position{Line: 3, Column: 0}},
		{"last line", 15, analysis.Position{Line: 4, Column: 0}},
		{"end", 16, analysis.Position{Line: 4, Column: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pos, snap.LineColumnAt(tt.offset))
			assert.Equal(t, tt.offset, snap.OffsetOf(tt.pos))
		})
	}

	t.Run("clamping", func(t *testing.T) {
		assert.Equal(t, analysis.Position{Line: 1, Column: 0}, snap.LineColumnAt(-5))
		assert.Equal(t, snap.End(), snap.LineColumnAt(1000))
		assert.Equal(t, 6, snap.OffsetOf(analysis.Position{Line: 1, Column: 80}))
		assert.Equal(t, snap.Len(), snap.OffsetOf(analysis.Position{Line: 40, Column: 0}))
	})

	t.Run("empty buffer", func(t *testing.T) {
		empty := analysis.SnapshotFromString("main.cpp", "")
		assert.Equal(t, analysis.Position{Line: 1, Column: 0}, empty.End())
	})
}

func TestSnapshot_EndOfSingleLineBuffer(t *testing.T) {
	snap := analysis.SnapshotFromString("main.cpp", "int main() { int x; x = ")
	assert.Equal(t, analysis.Position{Line: 1, Column: 24}, snap.End())
}

func TestSnapshot_IdentPrefix(t *testing.T) {
	snap := analysis.SnapshotFromString("main.c", "int count;\nint main() { cou\n  p->na")

	tests := []struct {
		name string
		pos  analysis.Position
		want string
	}{
		{"partial identifier", analysis.Position{Line: 2, Column: 16}, "cou"},
		{"after member arrow", analysis.Position{Line: 3, Column: 7}, "na"},
		{"after space", analysis.Position{Line: 2, Column: 13}, ""},
		{"start of buffer", analysis.Position{Line: 1, Column: 0}, ""},
		{"middle of word", analysis.Position{Line: 1, Column: 6}, "co"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snap.IdentPrefix(tt.pos))
		})
	}
}
