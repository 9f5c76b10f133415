package service

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	academyService "bimbelku_backend/internals/features/academy/service"
	attendanceModel "bimbelku_backend/internals/features/attendance/model"
	attendanceService "bimbelku_backend/internals/features/attendance/service"
	meetingService "bimbelku_backend/internals/features/meetings/service"
	sessionModel "bimbelku_backend/internals/features/sessions/model"
)

/*
=========================================================

	Termination Coordinator
	Sweeper server-side yang menggerakkan lifecycle sesi
	mengikuti jam — klien hanya MELIHAT fase, coordinator
	yang MEMUTUSKAN status.

	Semua mutasi status lewat CAS (UpdateStatusIf); tick
	ganda / instance ganda aman: yang kalah race dapat
	no-op, bukan error.
	=========================================================
*/
type Coordinator struct {
	Store  SessionStore
	Ledger *attendanceService.Ledger
	Rooms  meetingService.RoomProvider
	Timing *academyService.TimingResolver
	Now    func() time.Time

	// jumlah sesi yang diproses paralel per sweep
	Workers int
}

func NewCoordinator(store SessionStore, ledger *attendanceService.Ledger, rooms meetingService.RoomProvider, timing *academyService.TimingResolver) *Coordinator {
	return &Coordinator{
		Store:   store,
		Ledger:  ledger,
		Rooms:   rooms,
		Timing:  timing,
		Now:     time.Now,
		Workers: 8,
	}
}

// Start menjalankan sweeper sampai ctx dibatalkan.
// Interval bisa dioverride lewat SESSION_SWEEP_INTERVAL_SECONDS.
func (c *Coordinator) Start(ctx context.Context) {
	interval := 30 * time.Second
	if v := os.Getenv("SESSION_SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}

	log.Printf("[SCHEDULER] session sweeper aktif (interval %s)", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[SCHEDULER] session sweeper berhenti")
				return
			case <-ticker.C:
				c.Sweep(ctx)
			}
		}
	}()
}

// Sweep memproses semua sesi non-terminal dalam jendela ±24 jam.
func (c *Coordinator) Sweep(ctx context.Context) {
	sessions, err := c.Store.ListNonTerminal(ctx)
	if err != nil {
		log.Printf("[ERROR] sweep gagal ambil sesi: %v", err)
		return
	}
	if len(sessions) == 0 {
		return
	}

	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	done := make(chan struct{}, len(sessions))

	for i := range sessions {
		sess := sessions[i]
		sem <- struct{}{}
		go func() {
			defer func() {
				<-sem
				done <- struct{}{}
			}()
			if err := c.OnTick(ctx, &sess); err != nil {
				log.Printf("[ERROR] tick sesi %s: %v", sess.ClassSessionsID, err)
			}
		}()
	}
	for range sessions {
		<-done
	}
}

// OnTick mengevaluasi satu sesi terhadap jam sekarang. Idempotent:
// memanggil dua kali berturut-turut menghasilkan keadaan yang sama.
func (c *Coordinator) OnTick(ctx context.Context, sess *sessionModel.ClassSessionModel) error {
	// Terminal tidak disentuh lagi — termasuk canceled yang jamnya
	// masih jalan.
	if sess.ClassSessionsStatus.IsTerminal() {
		return nil
	}

	now := c.Now()
	policy := c.Timing.Resolve(sess.ClassSessionsAcademyID, sess.ClassSessionsCircleID)
	ph := PhaseOf(now, sess, policy)

	switch ph {
	case PhaseNotStarted:
		return nil

	case PhasePreparation:
		return c.tickPreparation(ctx, sess)

	case PhaseActive, PhaseOvertime:
		if err := c.tickNoShow(ctx, sess, now, policy); err != nil {
			return err
		}
		// Heartbeat mati di tengah sesi → interval zombie ditutup
		// tanpa menunggu finalisasi.
		return c.Ledger.CloseStale(ctx, sess.ClassSessionsID, now)

	case PhaseEnded:
		return c.finalize(ctx, sess, policy)
	}
	return nil
}

// Masuk jendela preparation: siapkan room, scheduled → ready.
func (c *Coordinator) tickPreparation(ctx context.Context, sess *sessionModel.ClassSessionModel) error {
	if sess.ClassSessionsStatus != sessionModel.SessionScheduled {
		return nil
	}

	roomName, err := c.Rooms.ProvisionRoom(ctx, sess.ClassSessionsID)
	if err != nil {
		// Room gagal bukan alasan menahan transisi; host tetap bisa
		// provision saat join.
		log.Printf("[WARN] provision room sesi %s: %v", sess.ClassSessionsID, err)
	} else if !sess.HasRoom() {
		if err := c.Store.SetRoomToken(ctx, sess.ClassSessionsID, roomName); err != nil {
			log.Printf("[WARN] simpan room token sesi %s: %v", sess.ClassSessionsID, err)
		}
	}

	changed, err := c.Store.UpdateStatusIf(ctx, sess.ClassSessionsID,
		[]sessionModel.SessionStatus{sessionModel.SessionScheduled},
		sessionModel.SessionReady, nil)
	if err != nil {
		return err
	}
	if changed {
		log.Printf("[SCHEDULER] sesi %s: scheduled → ready", sess.ClassSessionsID)
	}
	return nil
}

// Sesi individual yang siswanya tidak muncul sampai grace habis → absent.
// Absent BUKAN terminal: siswa yang akhirnya datang masih bisa join.
func (c *Coordinator) tickNoShow(ctx context.Context, sess *sessionModel.ClassSessionModel, now time.Time, policy academyService.TimingPolicy) error {
	if sess.ClassSessionsKind != sessionModel.SessionKindIndividual {
		return nil
	}
	if sess.ClassSessionsStatus != sessionModel.SessionReady && sess.ClassSessionsStatus != sessionModel.SessionScheduled {
		return nil
	}

	graceDeadline := sess.ClassSessionsScheduledAt.Add(time.Duration(policy.LateJoinGraceMinutes) * time.Minute)
	if now.Before(graceDeadline) {
		return nil
	}

	any, err := c.Ledger.HasAnyAttendance(ctx, sess.ClassSessionsID)
	if err != nil {
		return err
	}
	if any {
		return nil
	}

	changed, err := c.Store.UpdateStatusIf(ctx, sess.ClassSessionsID,
		[]sessionModel.SessionStatus{sessionModel.SessionScheduled, sessionModel.SessionReady},
		sessionModel.SessionAbsent, nil)
	if err != nil {
		return err
	}
	if changed {
		log.Printf("[SCHEDULER] sesi %s: no-show lewat grace → absent", sess.ClassSessionsID)
	}
	return nil
}

// Jendela habis (overtime lewat): putus room, tutup semua interval
// terbuka di batas akunting, lalu finalkan status.
func (c *Coordinator) finalize(ctx context.Context, sess *sessionModel.ClassSessionModel, policy academyService.TimingPolicy) error {
	// Best-effort: provider down tidak boleh menahan finalisasi.
	if sess.HasRoom() {
		if err := c.Rooms.DisconnectRoom(ctx, *sess.ClassSessionsRoomToken); err != nil {
			log.Printf("[WARN] disconnect room sesi %s: %v", sess.ClassSessionsID, err)
		}
	}

	overtimeEnd := sess.ScheduledEnd().Add(time.Duration(policy.EndingBufferMinutes) * time.Minute)
	if err := c.Ledger.CloseAllOpen(ctx, sess.ClassSessionsID, overtimeEnd, attendanceModel.SourceTimeoutClose); err != nil {
		return err
	}

	// Absent dipertahankan: sesi yang siswanya tidak pernah datang TIDAK
	// ditimpa jadi completed.
	if sess.ClassSessionsStatus == sessionModel.SessionAbsent {
		return nil
	}

	endedAt := sess.ScheduledEnd()
	patch := map[string]interface{}{"class_sessions_ended_at": endedAt}
	if sess.ClassSessionsStartedAt != nil {
		actual := int(endedAt.Sub(*sess.ClassSessionsStartedAt).Minutes())
		if actual < 0 {
			actual = 0
		}
		patch["class_sessions_actual_duration_minutes"] = actual
	}

	changed, err := c.Store.UpdateStatusIf(ctx, sess.ClassSessionsID,
		[]sessionModel.SessionStatus{sessionModel.SessionScheduled, sessionModel.SessionReady, sessionModel.SessionOngoing},
		sessionModel.SessionCompleted, patch)
	if err != nil {
		return err
	}
	if changed {
		log.Printf("[SCHEDULER] sesi %s: jendela habis → completed", sess.ClassSessionsID)
	}
	return nil
}
