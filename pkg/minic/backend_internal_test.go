package minic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetAt(t *testing.T) {
	const src = "int a;\nint main() {\n\n  x"

	tests := []struct {
		name         string
		line, column int
		want         int
	}{
		{"start", 1, 0, 0},
		{"first line end", 1, 6, 6},
		{"column clamps to line", 1, 99, 6},
		{"second line", 2, 4, 11},
		{"empty line", 3, 5, 20},
		{"last line", 4, 3, 24},
		{"line past end", 9, 0, len(src)},
		{"line zero clamps to first", 0, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, offsetAt(src, tt.line, tt.column))
		})
	}
}

func TestPreambleEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"no directives", "int x;", 0},
		{"leading includes", "#include <a.h>\n#include \"b.h\"\nint x;", 29},
		{"comments between", "// top\n#define A 1\n/* gap */\n#define B 2\nint x;", 40},
		{"directive after code is not part of it", "int x;\n#define A 1\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preambleEnd(tt.src))
		})
	}
}

func TestType_String(t *testing.T) {
	tests := []struct {
		typ  *Type
		want string
	}{
		{&Type{Name: "int"}, "int"},
		{&Type{Name: "char", Pointer: 2}, "char **"},
		{&Type{Name: "int", Dims: []string{"4", ""}}, "int [4] []"},
		{&Type{Name: "int", Func: true}, "int (*)()"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}

func TestType_Canonical(t *testing.T) {
	rec := &Type{Name: "struct point", Tag: "point"}
	alias := &Type{Name: "PointPtr", Under: &Type{Name: "struct point", Tag: "point", Pointer: 1}}

	assert.True(t, rec.IsRecord())
	assert.False(t, rec.IsRecordPointer())
	assert.True(t, alias.IsRecordPointer())
	assert.Equal(t, "point", alias.RecordTag())
	assert.True(t, alias.Deref().IsRecord())
	assert.Nil(t, (&Type{Name: "int"}).Deref())
	assert.True(t, (&Type{Name: "void"}).IsVoid())
	assert.False(t, (&Type{Name: "void", Pointer: 1}).IsVoid())
}
