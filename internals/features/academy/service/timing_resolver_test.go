package service

import (
	"testing"

	academyModel "bimbelku_backend/internals/features/academy/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeSettingsSource struct {
	circle    map[uuid.UUID]*academyModel.CircleMeetingSettings
	academy   map[uuid.UUID]*academyModel.AcademySettingsModel
	circleErr error
}

func (f *fakeSettingsSource) CircleMeetingSettings(id uuid.UUID) (*academyModel.CircleMeetingSettings, error) {
	if f.circleErr != nil {
		return nil, f.circleErr
	}
	return f.circle[id], nil
}

func (f *fakeSettingsSource) AcademySettings(id uuid.UUID) (*academyModel.AcademySettingsModel, error) {
	return f.academy[id], nil
}

func intp(v int) *int { return &v }

func TestResolve_DefaultsWhenNothingConfigured(t *testing.T) {
	r := NewTimingResolver(&fakeSettingsSource{})
	p := r.Resolve(uuid.New(), nil)

	assert.Equal(t, DefaultPreparationMinutes, p.PreparationMinutes)
	assert.Equal(t, DefaultEndingBufferMinutes, p.EndingBufferMinutes)
	assert.Equal(t, DefaultLateJoinGraceMinutes, p.LateJoinGraceMinutes)
	assert.Equal(t, DefaultPresentThresholdPercent, p.PresentThresholdPercent)
}

func TestResolve_AcademyLayerOverridesDefaults(t *testing.T) {
	academyID := uuid.New()
	r := NewTimingResolver(&fakeSettingsSource{
		academy: map[uuid.UUID]*academyModel.AcademySettingsModel{
			academyID: {
				AcademySettingsPreparationMinutes:   intp(10),
				AcademySettingsEndingBufferMinutes:  intp(3),
				AcademySettingsLateJoinGraceMinutes: intp(20),
			},
		},
	})
	p := r.Resolve(academyID, nil)

	assert.Equal(t, 10, p.PreparationMinutes)
	assert.Equal(t, 3, p.EndingBufferMinutes)
	assert.Equal(t, 20, p.LateJoinGraceMinutes)
	// Field yang tidak di-set tetap default.
	assert.Equal(t, DefaultPresentThresholdPercent, p.PresentThresholdPercent)
}

// Override circle menang atas academy, tapi hanya untuk field yang di-set.
func TestResolve_CircleLayerWinsFieldwise(t *testing.T) {
	academyID := uuid.New()
	circleID := uuid.New()
	r := NewTimingResolver(&fakeSettingsSource{
		academy: map[uuid.UUID]*academyModel.AcademySettingsModel{
			academyID: {
				AcademySettingsPreparationMinutes:  intp(10),
				AcademySettingsEndingBufferMinutes: intp(3),
			},
		},
		circle: map[uuid.UUID]*academyModel.CircleMeetingSettings{
			circleID: {PreparationMinutes: intp(30)},
		},
	})
	p := r.Resolve(academyID, &circleID)

	assert.Equal(t, 30, p.PreparationMinutes)
	assert.Equal(t, 3, p.EndingBufferMinutes)
}

func TestResolve_NegativeValuesIgnored(t *testing.T) {
	academyID := uuid.New()
	r := NewTimingResolver(&fakeSettingsSource{
		academy: map[uuid.UUID]*academyModel.AcademySettingsModel{
			academyID: {AcademySettingsPreparationMinutes: intp(-5)},
		},
	})
	p := r.Resolve(academyID, nil)
	assert.Equal(t, DefaultPreparationMinutes, p.PreparationMinutes)
}

// Nol valid (akademi boleh mematikan preparation sama sekali).
func TestResolve_ZeroIsValid(t *testing.T) {
	academyID := uuid.New()
	r := NewTimingResolver(&fakeSettingsSource{
		academy: map[uuid.UUID]*academyModel.AcademySettingsModel{
			academyID: {AcademySettingsPreparationMinutes: intp(0)},
		},
	})
	assert.Equal(t, 0, r.Resolve(academyID, nil).PreparationMinutes)
}

// Sumber error → resolve tetap jalan dengan lapis yang tersisa, tidak fatal.
func TestResolve_SourceErrorFallsThrough(t *testing.T) {
	academyID := uuid.New()
	circleID := uuid.New()
	r := NewTimingResolver(&fakeSettingsSource{
		academy: map[uuid.UUID]*academyModel.AcademySettingsModel{
			academyID: {AcademySettingsPreparationMinutes: intp(10)},
		},
		circleErr: assert.AnError,
	})
	p := r.Resolve(academyID, &circleID)
	assert.Equal(t, 10, p.PreparationMinutes)
}

func TestResolve_NilResolverSafe(t *testing.T) {
	var r *TimingResolver
	assert.Equal(t, DefaultTimingPolicy(), r.Resolve(uuid.New(), nil))
}
