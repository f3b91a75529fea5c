package dedup

import (
	"fmt"

	"samplecrate/model"
)

// ViewMode selects which samples the browser shows while resolving
// duplicates.
type ViewMode string

const (
	// ModeAllDuplicates shows every member of every pair.
	ModeAllDuplicates ViewMode = "all-duplicates"
	// ModeSmartRemove shows only samples currently marked for deletion.
	// It is a live projection: policy or override edits change the set
	// without re-entering the mode.
	ModeSmartRemove ViewMode = "smart-remove"
)

// ParseViewMode validates a mode name from the API.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ModeAllDuplicates, ModeSmartRemove:
		return ViewMode(s), nil
	}
	return "", fmt.Errorf("unknown view mode: %q", s)
}

// TargetSampleIDs derives the visible sample-id set for a mode from the
// current decision list.
func TargetSampleIDs(decisions []model.DuplicatePairDecision, mode ViewMode) map[int64]struct{} {
	targets := make(map[int64]struct{})
	for _, d := range decisions {
		switch mode {
		case ModeSmartRemove:
			if d.SelectedDeleteSampleID != nil {
				targets[*d.SelectedDeleteSampleID] = struct{}{}
			}
		default:
			targets[d.KeepSample.ID] = struct{}{}
			targets[d.DuplicateSample.ID] = struct{}{}
		}
	}
	return targets
}

// ModeSession snapshots the caller's sample selection and focused sample
// when duplicate mode is entered, so both can be restored verbatim on exit
// if the user made no new selection while the mode was active.
type ModeSession struct {
	active              bool
	savedSelection      map[int64]struct{}
	savedFocus          int64
	selectedWhileActive bool
}

// Active reports whether a duplicate-mode session is in progress.
func (s *ModeSession) Active() bool {
	return s.active
}

// Enter starts a session, snapshotting selection and focus. Entering while
// already active keeps the original snapshot.
func (s *ModeSession) Enter(selection map[int64]struct{}, focus int64) {
	if s.active {
		return
	}
	saved := make(map[int64]struct{}, len(selection))
	for id := range selection {
		saved[id] = struct{}{}
	}
	s.active = true
	s.savedSelection = saved
	s.savedFocus = focus
	s.selectedWhileActive = false
}

// NoteSelection records that the user selected something while the mode was
// active; that selection is then kept instead of the snapshot on exit.
func (s *ModeSession) NoteSelection() {
	if s.active {
		s.selectedWhileActive = true
	}
}

// Exit ends the session. It returns the snapshot to restore, or
// restore=false when the user selected while active or no session was in
// progress. Exiting is idempotent and never fails.
func (s *ModeSession) Exit() (selection map[int64]struct{}, focus int64, restore bool) {
	if !s.active {
		return nil, 0, false
	}
	saved, savedFocus := s.savedSelection, s.savedFocus
	keepCurrent := s.selectedWhileActive

	s.active = false
	s.savedSelection = nil
	s.savedFocus = 0
	s.selectedWhileActive = false

	if keepCurrent {
		return nil, 0, false
	}
	return saved, savedFocus, true
}
