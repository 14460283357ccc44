package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// Events run before Session so executions reported in this tick are counted
// in the same refresh. The zero value is usable (methods are nil-safe).
type Loop struct {
	Events   *EventPresenter
	Session  *SessionPresenter
	Window   *WindowWatcher
	Schedule func()
	now      func() time.Time
}

func NewLoop(events *EventPresenter, sess *SessionPresenter, win *WindowWatcher, schedule func()) *Loop {
	return &Loop{Events: events, Session: sess, Window: win, Schedule: schedule, now: time.Now}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	if l.now != nil {
		now = l.now()
	}
	if l.Events != nil {
		l.Events.Tick(now)
	}
	if l.Session != nil {
		l.Session.Tick(now)
	}
	if l.Window != nil {
		l.Window.Tick()
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
