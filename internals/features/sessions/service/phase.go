package service

import (
	"time"

	academyService "bimbelku_backend/internals/features/academy/service"
	sessionModel "bimbelku_backend/internals/features/sessions/model"
)

/*
=========================================================

	Phase Clock
	Fase diturunkan murni dari (now, jadwal, policy) —
	BUKAN state. Klien yang telat bangun tetap menghitung
	fase yang benar dari now, bukan dari hitungan tick.
	=========================================================
*/
type Phase string

const (
	PhaseNotStarted  Phase = "not_started"
	PhasePreparation Phase = "preparation"
	PhaseActive      Phase = "active"
	PhaseOvertime    Phase = "overtime"
	PhaseEnded       Phase = "ended"
)

// Batas-batas interval fase untuk satu sesi (semua right-open).
type PhaseWindow struct {
	PrepStart   time.Time
	ActiveStart time.Time
	ActiveEnd   time.Time
	OvertimeEnd time.Time
}

func WindowOf(scheduledAt time.Time, durationMinutes int, policy academyService.TimingPolicy) PhaseWindow {
	activeEnd := scheduledAt.Add(time.Duration(durationMinutes) * time.Minute)
	return PhaseWindow{
		PrepStart:   scheduledAt.Add(-time.Duration(policy.PreparationMinutes) * time.Minute),
		ActiveStart: scheduledAt,
		ActiveEnd:   activeEnd,
		OvertimeEnd: activeEnd.Add(time.Duration(policy.EndingBufferMinutes) * time.Minute),
	}
}

// PhaseAt = fungsi total: tepat satu fase untuk setiap now.
// Interval right-open: batas kiri masuk, batas kanan tidak.
func PhaseAt(now time.Time, scheduledAt time.Time, durationMinutes int, policy academyService.TimingPolicy) Phase {
	w := WindowOf(scheduledAt, durationMinutes, policy)
	switch {
	case now.Before(w.PrepStart):
		return PhaseNotStarted
	case now.Before(w.ActiveStart):
		return PhasePreparation
	case now.Before(w.ActiveEnd):
		return PhaseActive
	case now.Before(w.OvertimeEnd):
		return PhaseOvertime
	default:
		return PhaseEnded
	}
}

func PhaseOf(now time.Time, sess *sessionModel.ClassSessionModel, policy academyService.TimingPolicy) Phase {
	return PhaseAt(now, sess.ClassSessionsScheduledAt, sess.ClassSessionsDurationMinutes, policy)
}

// PhaseChange hasil diff dua evaluasi berturut-turut.
// Transisi diturunkan dengan membandingkan, bukan disimpan —
// clock yang pause/resume (tab background) tidak bikin drift.
type PhaseChange struct {
	From    Phase
	To      Phase
	Changed bool
}

func DiffPhase(old, new Phase) PhaseChange {
	return PhaseChange{From: old, To: new, Changed: old != new}
}
