package view

import (
	"fmt"
	"time"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows run durations and execution counts.
type SessionStats interface {
	SetSession(session, total time.Duration)
	SetExecutions(session, total int)
}

type sessionStats struct {
	sessionLbl *LabelWidget
	totalLbl   *LabelWidget
	execLbl    *LabelWidget
}

// NewSessionStats grids three labels into row starting at startCol.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{sessionLbl: Label(Width(14)), totalLbl: Label(Width(14)), execLbl: Label(Width(16))}
	for i, l := range []*LabelWidget{s.sessionLbl, s.totalLbl, s.execLbl} {
		if parent != nil {
			Grid(l, In(parent), Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		} else {
			Grid(l, Row(row), Column(startCol+i), Sticky("w"), Padx("0.2m"))
		}
	}
	s.sessionLbl.Configure(Txt("Session: 00:00"))
	s.totalLbl.Configure(Txt("Total: 00:00"))
	s.execLbl.Configure(Txt("Executed: 0/0"))
	return s
}

func (s *sessionStats) SetSession(session, total time.Duration) {
	if s == nil || s.sessionLbl == nil {
		return
	}
	s.sessionLbl.Configure(Txt("Session: " + clock(session)))
	s.totalLbl.Configure(Txt("Total: " + clock(total)))
}

func (s *sessionStats) SetExecutions(session, total int) {
	if s == nil || s.execLbl == nil {
		return
	}
	s.execLbl.Configure(Txt(fmt.Sprintf("Executed: %d/%d", session, total)))
}

func clock(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
