package model

import (
	"time"
)

// SessionModel tracks the current run's duration and execution count plus
// totals accumulated over every run since launch.
// Presenters poll Values() and Executions(); the zero value is ready to use.
type SessionModel struct {
	active          bool
	runStart        time.Time
	lastRunDuration time.Duration
	accumulated     time.Duration

	runExecutions   int
	totalExecutions int
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick updates the model from the running flag and the current time.
func (m *SessionModel) OnTick(running bool, now time.Time) {
	if m == nil {
		return
	}
	if running {
		if !m.active { // off -> on
			m.active = true
			m.runStart = now
			m.lastRunDuration = 0
			m.runExecutions = 0
		}
		m.lastRunDuration = now.Sub(m.runStart)
	} else if m.active { // on -> off
		m.lastRunDuration = now.Sub(m.runStart)
		m.accumulated += m.lastRunDuration
		m.active = false
	}
}

// AddExecution counts one successful sequence replay.
func (m *SessionModel) AddExecution() {
	if m == nil {
		return
	}
	m.runExecutions++
	m.totalExecutions++
}

// Values returns the current run duration and the total accumulated duration.
// The total includes the ongoing run when active.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session = m.lastRunDuration
	total = m.accumulated
	if m.active {
		total += session
	}
	return
}

// Executions returns the current run's and the overall execution counts.
func (m *SessionModel) Executions() (session, total int) {
	if m == nil {
		return 0, 0
	}
	return m.runExecutions, m.totalExecutions
}
