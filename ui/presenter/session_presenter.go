package presenter

import (
	"time"

	"github.com/soocke/keyprompt-bot/ui/model"
)

// EnabledModel reports whether automation is switched on.
type EnabledModel interface{ Enabled() bool }

// SessionView displays run durations and execution counts.
type SessionView interface {
	SetSession(session, total time.Duration)
	SetExecutions(session, total int)
}

// SessionPresenter pushes run durations and counts from the model to the view.
type SessionPresenter struct {
	sess *model.SessionModel
	run  EnabledModel
	view SessionView
}

// NewSessionPresenter returns a new SessionPresenter.
func NewSessionPresenter(sess *model.SessionModel, run EnabledModel, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, run: run, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.run == nil || p.view == nil {
		return
	}
	p.sess.OnTick(p.run.Enabled(), now)
	s, t := p.sess.Values()
	p.view.SetSession(s, t)
	p.view.SetExecutions(p.sess.Executions())
}
