package analysis

// Snapshot is an immutable, byte-accurate capture of the editor buffer at a
// point in time, tagged with the virtual filename the backend sees.
// A new Snapshot is built for every edit; it is never mutated or merged.
type Snapshot struct {
	name string
	data string
}

// NewSnapshot copies content into a new Snapshot.
func NewSnapshot(virtualName string, content []byte) Snapshot {
	return Snapshot{name: virtualName, data: string(content)}
}

// SnapshotFromString creates a Snapshot from text.
func SnapshotFromString(virtualName, text string) Snapshot {
	return Snapshot{name: virtualName, data: text}
}

// VirtualName returns the filename the buffer is presented under.
func (s Snapshot) VirtualName() string {
	return s.name
}

// Bytes returns a copy of the buffer contents.
func (s Snapshot) Bytes() []byte {
	return []byte(s.data)
}

// Text returns the buffer contents as a string.
func (s Snapshot) Text() string {
	return s.data
}

// Len returns the buffer size in bytes.
func (s Snapshot) Len() int {
	return len(s.data)
}

// Unsaved returns the override that replaces disk contents for VirtualName.
func (s Snapshot) Unsaved() UnsavedFile {
	return UnsavedFile{Filename: s.name, Contents: []byte(s.data)}
}

// LineColumnAt converts a byte offset into a 1-based line and 0-based byte
// column. Offsets past the end clamp to the end of the buffer.
func (s Snapshot) LineColumnAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.data) {
		offset = len(s.data)
	}
	line, start := 1, 0
	for i := 0; i < offset; i++ {
		if s.data[i] == '\n' {
			line++
			start = i + 1
		}
	}
	return Position{Line: line, Column: offset - start}
}

// End returns the position just past the last byte of the buffer.
func (s Snapshot) End() Position {
	return s.LineColumnAt(len(s.data))
}

// OffsetOf converts a position into a byte offset. Columns past the end of
// the line clamp to the line end; lines past the end clamp to the buffer end.
func (s Snapshot) OffsetOf(pos Position) int {
	line := 1
	i := 0
	for i < len(s.data) && line < pos.Line {
		if s.data[i] == '\n' {
			line++
		}
		i++
	}
	if line < pos.Line {
		return len(s.data)
	}
	for col := 0; col < pos.Column && i < len(s.data) && s.data[i] != '\n'; col++ {
		i++
	}
	return i
}

// IdentPrefix returns the identifier characters immediately before pos, the
// text a user is typing when completion is requested there.
func (s Snapshot) IdentPrefix(pos Position) string {
	end := s.OffsetOf(pos)
	start := end
	for start > 0 && isIdentByte(s.data[start-1]) {
		start--
	}
	return s.data[start:end]
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
