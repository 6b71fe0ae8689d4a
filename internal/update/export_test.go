package update

import "time"

// SetClock replaces the clock used for LastUpdated.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}
