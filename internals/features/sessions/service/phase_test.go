package service

import (
	"testing"
	"time"

	academyService "bimbelku_backend/internals/features/academy/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestPhaseAt_LifecycleSequence(t *testing.T) {
	policy := academyService.TimingPolicy{
		PreparationMinutes:      15,
		EndingBufferMinutes:     5,
		LateJoinGraceMinutes:    15,
		PresentThresholdPercent: 75,
	}
	scheduled := mustTime(t, "2026-03-02T10:00:00Z")
	duration := 30

	cases := []struct {
		now  string
		want Phase
	}{
		{"2026-03-02T09:44:00Z", PhaseNotStarted},
		{"2026-03-02T09:46:00Z", PhasePreparation},
		{"2026-03-02T10:15:00Z", PhaseActive},
		{"2026-03-02T10:31:00Z", PhaseOvertime},
		{"2026-03-02T10:36:00Z", PhaseEnded},
	}
	for _, tc := range cases {
		got := PhaseAt(mustTime(t, tc.now), scheduled, duration, policy)
		assert.Equal(t, tc.want, got, "now=%s", tc.now)
	}
}

// Batas interval right-open: batas kiri milik fase baru.
func TestPhaseAt_BoundariesRightOpen(t *testing.T) {
	policy := academyService.DefaultTimingPolicy() // 15/5/15/75
	scheduled := mustTime(t, "2026-03-02T10:00:00Z")
	duration := 60

	cases := []struct {
		now  string
		want Phase
	}{
		{"2026-03-02T09:44:59Z", PhaseNotStarted},
		{"2026-03-02T09:45:00Z", PhasePreparation},
		{"2026-03-02T10:00:00Z", PhaseActive},
		{"2026-03-02T11:00:00Z", PhaseOvertime},
		{"2026-03-02T11:05:00Z", PhaseEnded},
	}
	for _, tc := range cases {
		got := PhaseAt(mustTime(t, tc.now), scheduled, duration, policy)
		assert.Equal(t, tc.want, got, "now=%s", tc.now)
	}
}

// PhaseAt harus fungsi total: setiap titik waktu jatuh ke TEPAT SATU fase,
// dan urutan fase monoton saat waktu maju.
func TestPhaseAt_TotalAndMonotonic(t *testing.T) {
	policy := academyService.TimingPolicy{
		PreparationMinutes:      10,
		EndingBufferMinutes:     7,
		LateJoinGraceMinutes:    15,
		PresentThresholdPercent: 75,
	}
	scheduled := mustTime(t, "2026-03-02T10:00:00Z")
	duration := 45

	order := map[Phase]int{
		PhaseNotStarted:  0,
		PhasePreparation: 1,
		PhaseActive:      2,
		PhaseOvertime:    3,
		PhaseEnded:       4,
	}

	start := scheduled.Add(-30 * time.Minute)
	prev := -1
	for i := 0; i <= 120; i++ {
		now := start.Add(time.Duration(i) * time.Minute)
		ph := PhaseAt(now, scheduled, duration, policy)
		idx, known := order[ph]
		require.True(t, known, "fase tidak dikenal: %s", ph)
		assert.GreaterOrEqual(t, idx, prev, "fase mundur di %s", now)
		prev = idx
	}
	assert.Equal(t, order[PhaseEnded], prev)
}

func TestWindowOf(t *testing.T) {
	policy := academyService.TimingPolicy{PreparationMinutes: 15, EndingBufferMinutes: 5}
	scheduled := mustTime(t, "2026-03-02T10:00:00Z")

	w := WindowOf(scheduled, 30, policy)
	assert.Equal(t, mustTime(t, "2026-03-02T09:45:00Z"), w.PrepStart)
	assert.Equal(t, scheduled, w.ActiveStart)
	assert.Equal(t, mustTime(t, "2026-03-02T10:30:00Z"), w.ActiveEnd)
	assert.Equal(t, mustTime(t, "2026-03-02T10:35:00Z"), w.OvertimeEnd)
}

// Policy nol: preparation dan overtime hilang, active tetap ada.
func TestPhaseAt_ZeroPolicy(t *testing.T) {
	policy := academyService.TimingPolicy{}
	scheduled := mustTime(t, "2026-03-02T10:00:00Z")

	assert.Equal(t, PhaseNotStarted, PhaseAt(scheduled.Add(-time.Second), scheduled, 30, policy))
	assert.Equal(t, PhaseActive, PhaseAt(scheduled, scheduled, 30, policy))
	assert.Equal(t, PhaseEnded, PhaseAt(scheduled.Add(30*time.Minute), scheduled, 30, policy))
}

func TestDiffPhase(t *testing.T) {
	assert.False(t, DiffPhase(PhaseActive, PhaseActive).Changed)

	ch := DiffPhase(PhaseActive, PhaseOvertime)
	assert.True(t, ch.Changed)
	assert.Equal(t, PhaseActive, ch.From)
	assert.Equal(t, PhaseOvertime, ch.To)
}
