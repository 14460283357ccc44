package model

// DefaultLogLines is how many status lines the log keeps.
const DefaultLogLines = 200

// LogModel is a bounded list of status lines, oldest first.
type LogModel struct {
	max   int
	lines []string
	dirty bool
}

// NewLogModel returns a log keeping at most max lines; max <= 0 uses DefaultLogLines.
func NewLogModel(max int) *LogModel {
	if max <= 0 {
		max = DefaultLogLines
	}
	return &LogModel{max: max}
}

// Append adds a line, dropping the oldest once the log is full.
func (m *LogModel) Append(line string) {
	if m == nil {
		return
	}
	if m.max <= 0 {
		m.max = DefaultLogLines
	}
	m.lines = append(m.lines, line)
	if over := len(m.lines) - m.max; over > 0 {
		m.lines = append(m.lines[:0], m.lines[over:]...)
	}
	m.dirty = true
}

// Lines returns a copy of the current lines.
func (m *LogModel) Lines() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.lines...)
}

// TakeDirty reports whether lines changed since the last call and clears the flag.
func (m *LogModel) TakeDirty() bool {
	if m == nil {
		return false
	}
	d := m.dirty
	m.dirty = false
	return d
}
