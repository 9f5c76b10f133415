package service

import (
	"testing"

	"bimbelku_backend/internals/constants"
	sessionModel "bimbelku_backend/internals/features/sessions/model"

	"github.com/stretchr/testify/assert"
)

func TestCanJoin_TerminalStatusNeverJoinable(t *testing.T) {
	for _, ph := range []Phase{PhaseNotStarted, PhasePreparation, PhaseActive, PhaseOvertime, PhaseEnded} {
		dec := CanJoin(constants.RoleStudent, sessionModel.SessionCanceled, ph, true)
		assert.False(t, dec.Allowed, "canceled, phase=%s", ph)
		assert.Equal(t, DenyCanceled, dec.Code)

		dec = CanJoin(constants.RoleTeacher, sessionModel.SessionCompleted, ph, true)
		assert.False(t, dec.Allowed, "completed, phase=%s", ph)
		assert.Equal(t, DenyCompleted, dec.Code)
	}
}

// Fase ended = cutoff otoritatif, status apa pun yang belum terminal.
func TestCanJoin_PhaseEndedCutsOff(t *testing.T) {
	for _, st := range []sessionModel.SessionStatus{
		sessionModel.SessionScheduled,
		sessionModel.SessionReady,
		sessionModel.SessionOngoing,
		sessionModel.SessionAbsent,
	} {
		dec := CanJoin(constants.RoleStudent, st, PhaseEnded, true)
		assert.False(t, dec.Allowed, "status=%s", st)
		assert.Equal(t, DenyEnded, dec.Code)
	}
}

func TestCanJoin_RoomGate(t *testing.T) {
	// Siswa tanpa room: ditolak dengan alasan actionable.
	dec := CanJoin(constants.RoleStudent, sessionModel.SessionReady, PhasePreparation, false)
	assert.False(t, dec.Allowed)
	assert.Equal(t, DenyRoomNotReady, dec.Code)
	assert.NotEmpty(t, dec.Reason)

	// Host tanpa room: boleh (join host yang membuat room).
	assert.True(t, CanJoin(constants.RoleTeacher, sessionModel.SessionReady, PhasePreparation, false).Allowed)
	assert.True(t, CanJoin(constants.RoleAdmin, sessionModel.SessionReady, PhasePreparation, false).Allowed)

	// Room sudah ada: semua boleh.
	assert.True(t, CanJoin(constants.RoleStudent, sessionModel.SessionReady, PhasePreparation, true).Allowed)
	assert.True(t, CanJoin(constants.RoleStudent, sessionModel.SessionOngoing, PhaseActive, true).Allowed)
}

func TestCanJoin_BeforeWindow(t *testing.T) {
	dec := CanJoin(constants.RoleStudent, sessionModel.SessionScheduled, PhaseNotStarted, false)
	assert.False(t, dec.Allowed)
	assert.Equal(t, DenyNotYetOpen, dec.Code)

	// Jendela sudah buka tapi status masih scheduled (sweeper belum lewat):
	// join tetap boleh.
	assert.True(t, CanJoin(constants.RoleStudent, sessionModel.SessionScheduled, PhaseActive, false).Allowed)
}

// Siswa yang sudah di-mark absent masih boleh masuk selama jendela buka,
// termasuk overtime.
func TestCanJoin_AbsentStillJoinable(t *testing.T) {
	assert.True(t, CanJoin(constants.RoleStudent, sessionModel.SessionAbsent, PhaseActive, true).Allowed)
	assert.True(t, CanJoin(constants.RoleStudent, sessionModel.SessionAbsent, PhaseOvertime, true).Allowed)

	dec := CanJoin(constants.RoleStudent, sessionModel.SessionAbsent, PhaseEnded, true)
	assert.False(t, dec.Allowed)
	assert.Equal(t, DenyEnded, dec.Code)
}
