package service

import (
	"context"
	"log"
	"sync"
	"time"

	academyService "bimbelku_backend/internals/features/academy/service"
	attendanceModel "bimbelku_backend/internals/features/attendance/model"
	sessionModel "bimbelku_backend/internals/features/sessions/model"

	"github.com/google/uuid"
)

// Sinyal join ulang dalam jendela ini dianggap retry jaringan → no-op.
const JoinDebounce = 5 * time.Second

// Heartbeat mati lebih lama dari ini → koneksi dianggap zombie.
const StaleHeartbeatAfter = 5 * time.Minute

/*
=========================================================

	Attendance Ledger
	Satu pintu untuk SEMUA sinyal kehadiran (klien, webhook
	provider, timeout-close) — sumber hanya dicatat untuk
	audit, logikanya sama.

	Serialisasi per (session, participant): "tutup yang lama,
	buka yang baru" tidak boleh balapan jadi dua interval
	terbuka. Antar peserta jalan paralel penuh.
	=========================================================
*/
type Ledger struct {
	Store IntervalStore
	Now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLedger(store IntervalStore) *Ledger {
	return &Ledger{
		Store: store,
		Now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) lockFor(sessionID, participantID uuid.UUID) *sync.Mutex {
	key := sessionID.String() + "/" + participantID.String()
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// RecordJoin: tutup interval terbuka (kalau ada) di `at`, lalu buka
// interval baru di `at`. Idempotent terhadap sinyal duplikat/retry.
func (l *Ledger) RecordJoin(ctx context.Context, sess *sessionModel.ClassSessionModel, participantID uuid.UUID, source attendanceModel.SignalSource, at time.Time) error {
	mu := l.lockFor(sess.ClassSessionsID, participantID)
	mu.Lock()
	defer mu.Unlock()

	// Clock skew: timestamp sebelum sesi dibuat tidak dipercaya.
	if at.Before(sess.ClassSessionsCreatedAt) {
		log.Printf("[WARN] join timestamp skew (session=%s participant=%s at=%s), pakai jam server",
			sess.ClassSessionsID, participantID, at.Format(time.RFC3339))
		at = l.Now()
	}

	open, err := l.Store.FindOpen(ctx, sess.ClassSessionsID, participantID)
	if err != nil {
		return err
	}
	if open != nil {
		// Retry dalam jendela debounce = no-op (sukses).
		if at.Sub(open.AttendanceIntervalsJoinedAt) < JoinDebounce {
			return nil
		}
		// Toleransi duplicate-join: interval lama ditutup di waktu join baru,
		// BUKAN buka interval kedua.
		if err := l.Store.Close(ctx, open.AttendanceIntervalsID, at, source); err != nil {
			return err
		}
	}

	iv := &attendanceModel.AttendanceIntervalModel{
		AttendanceIntervalsSessionID:     sess.ClassSessionsID,
		AttendanceIntervalsParticipantID: participantID,
		AttendanceIntervalsJoinedAt:      at,
		AttendanceIntervalsJoinSource:    source,
		AttendanceIntervalsLastHeartbeatAt: func() *time.Time {
			t := at
			return &t
		}(),
	}
	return l.Store.Open(ctx, iv)
}

// RecordLeave: tutup interval terbuka di `at`; tanpa interval terbuka
// ini no-op (bukan error) — sinyal out-of-order/duplikat itu normal
// di jaringan jelek.
func (l *Ledger) RecordLeave(ctx context.Context, sess *sessionModel.ClassSessionModel, participantID uuid.UUID, source attendanceModel.SignalSource, at time.Time) error {
	mu := l.lockFor(sess.ClassSessionsID, participantID)
	mu.Lock()
	defer mu.Unlock()

	open, err := l.Store.FindOpen(ctx, sess.ClassSessionsID, participantID)
	if err != nil {
		return err
	}
	if open == nil {
		return nil
	}
	// Leave sebelum join (reorder) → tutup zero-length di waktu join.
	if at.Before(open.AttendanceIntervalsJoinedAt) {
		at = open.AttendanceIntervalsJoinedAt
	}
	return l.Store.Close(ctx, open.AttendanceIntervalsID, at, source)
}

// Heartbeat menyentuh interval terbuka; tanpa interval terbuka → no-op.
func (l *Ledger) Heartbeat(ctx context.Context, sessionID, participantID uuid.UUID, at time.Time) error {
	return l.Store.Heartbeat(ctx, sessionID, participantID, at)
}

// HasAnyAttendance dipakai cek no-show (auto-absent).
func (l *Ledger) HasAnyAttendance(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return l.Store.AnyForSession(ctx, sessionID)
}

// CloseAllOpen menutup semua interval terbuka satu sesi di `at`.
// Dipanggil coordinator saat finalisasi; menutup yang sudah tertutup
// adalah no-op, jadi aman diulang.
func (l *Ledger) CloseAllOpen(ctx context.Context, sessionID uuid.UUID, at time.Time, source attendanceModel.SignalSource) error {
	open, err := l.Store.ListOpenBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	for i := range open {
		iv := &open[i]
		closeAt := at
		if closeAt.Before(iv.AttendanceIntervalsJoinedAt) {
			closeAt = iv.AttendanceIntervalsJoinedAt
		}
		if err := l.Store.Close(ctx, iv.AttendanceIntervalsID, closeAt, source); err != nil {
			return err
		}
	}
	return nil
}

// CloseStale menutup interval yang heartbeat-nya sudah mati (zombie)
// di waktu heartbeat terakhir.
func (l *Ledger) CloseStale(ctx context.Context, sessionID uuid.UUID, now time.Time) error {
	open, err := l.Store.ListOpenBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	for i := range open {
		iv := &open[i]
		hb := iv.AttendanceIntervalsLastHeartbeatAt
		if hb == nil {
			continue
		}
		if now.Sub(*hb) > StaleHeartbeatAfter {
			log.Printf("[LEDGER] heartbeat basi, interval ditutup (session=%s participant=%s last_hb=%s)",
				sessionID, iv.AttendanceIntervalsParticipantID, hb.Format(time.RFC3339))
			if err := l.Store.Close(ctx, iv.AttendanceIntervalsID, *hb, attendanceModel.SourceTimeoutClose); err != nil {
				return err
			}
		}
	}
	return nil
}

/*
=========================================================

	Summary (derived, tidak disimpan)
	=========================================================
*/
type AttendanceSummary struct {
	SessionID      uuid.UUID                        `json:"session_id"`
	ParticipantID  uuid.UUID                        `json:"participant_id"`
	TotalMinutes   int                              `json:"total_minutes"`
	Percentage     float64                          `json:"percentage"`
	Classification attendanceModel.AttendanceStatus `json:"classification"`
	FirstJoinAt    *time.Time                       `json:"first_join_at,omitempty"`
	ConnectedNow   bool                             `json:"connected_now"`
}

// Summarize menghitung ulang dari interval — selalu fresh, tidak ada
// state turunan yang bisa basi.
//
// Akunting: waktu preparation TIDAK dihitung (join dicap ke scheduled_at),
// dan ujung interval dicap ke akhir jam efektif (overtime tidak
// menggelembungkan kehadiran). Interval terbuka dihitung sampai
// min(now, akhir jam efektif).
func (l *Ledger) Summarize(ctx context.Context, sess *sessionModel.ClassSessionModel, participantID uuid.UUID, now time.Time, policy academyService.TimingPolicy) (*AttendanceSummary, error) {
	intervals, err := l.Store.ListForParticipant(ctx, sess.ClassSessionsID, participantID)
	if err != nil {
		return nil, err
	}

	out := &AttendanceSummary{
		SessionID:      sess.ClassSessionsID,
		ParticipantID:  participantID,
		Classification: attendanceModel.AttendanceAbsent,
	}
	if len(intervals) == 0 {
		return out, nil
	}

	accountingStart := sess.ClassSessionsScheduledAt
	accountingEnd := sess.ScheduledEnd()

	var total time.Duration
	var firstJoin time.Time
	for i := range intervals {
		iv := &intervals[i]

		if firstJoin.IsZero() || iv.AttendanceIntervalsJoinedAt.Before(firstJoin) {
			firstJoin = iv.AttendanceIntervalsJoinedAt
		}

		start := iv.AttendanceIntervalsJoinedAt
		if start.Before(accountingStart) {
			start = accountingStart
		}

		var end time.Time
		if iv.AttendanceIntervalsLeftAt != nil {
			end = *iv.AttendanceIntervalsLeftAt
		} else {
			out.ConnectedNow = true
			end = now
		}
		if end.After(accountingEnd) {
			end = accountingEnd
		}

		if end.After(start) {
			total += end.Sub(start)
		}
	}

	out.FirstJoinAt = &firstJoin
	out.TotalMinutes = int(total.Minutes())

	if sess.ClassSessionsDurationMinutes > 0 {
		pct := total.Minutes() / float64(sess.ClassSessionsDurationMinutes) * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		out.Percentage = pct
	}

	out.Classification = Classify(firstJoin, out.Percentage, sess.ClassSessionsScheduledAt, accountingEnd, policy)
	return out, nil
}

// Classify menurunkan klasifikasi kehadiran:
//   - join pertama lewat grace (tapi sebelum sesi habis) → late
//   - persentase ≥ threshold → present
//   - sisanya (pernah hadir tapi kurang) → partial
//
// Threshold present adalah policy (configurable), bukan konstanta.
func Classify(firstJoin time.Time, percentage float64, scheduledAt, scheduledEnd time.Time, policy academyService.TimingPolicy) attendanceModel.AttendanceStatus {
	if firstJoin.IsZero() {
		return attendanceModel.AttendanceAbsent
	}

	graceDeadline := scheduledAt.Add(time.Duration(policy.LateJoinGraceMinutes) * time.Minute)
	if firstJoin.After(graceDeadline) && firstJoin.Before(scheduledEnd) {
		return attendanceModel.AttendanceLate
	}

	if percentage >= float64(policy.PresentThresholdPercent) {
		return attendanceModel.AttendancePresent
	}
	if percentage > 0 {
		return attendanceModel.AttendancePartial
	}
	return attendanceModel.AttendanceAbsent
}
