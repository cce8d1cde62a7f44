package storage

import "time"

// SlotStats describes one stored slot.
type SlotStats struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

// Event captures a single jar transition for auditing or printing.
type Event struct {
	OccurredAt time.Time

	Op         string // push | undo | redo
	JarSize    int
	HistoryLen int
	Cursor     int
}
