package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/pkg/timeutil"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser(NewUserParams{Username: "demo", Email: "Demo@PhishGuard.com", InitialXP: 500})
	require.NoError(t, err)

	assert.Equal(t, "demo@phishguard.com", u.Email)
	assert.Equal(t, shared.Level(3), u.CurrentLevel)
	assert.True(t, u.IsActive)
	assert.NoError(t, u.CheckInvariants())

	_, err = NewUser(NewUserParams{Username: "", Email: "a@b.c"})
	assert.True(t, shared.IsValidation(err))

	_, err = NewUser(NewUserParams{Username: "x", Email: "nope"})
	assert.True(t, shared.IsValidation(err))
}

func TestUser_AddXP(t *testing.T) {
	u := &User{CurrentLevel: 1}

	up, err := u.AddXP(35)
	require.NoError(t, err)
	assert.False(t, up)
	assert.Equal(t, shared.XP(35), u.TotalXP)

	up, err = u.AddXP(65)
	require.NoError(t, err)
	assert.True(t, up)
	assert.Equal(t, shared.Level(2), u.CurrentLevel)

	_, err = u.AddXP(-1)
	assert.Error(t, err)
	assert.Equal(t, shared.XP(100), u.TotalXP)
	assert.NoError(t, u.CheckInvariants())
}

func TestUser_RecordActivity(t *testing.T) {
	policy := CalendarDayPolicy{Calendar: timeutil.UTC}
	u := &User{CurrentLevel: 1}
	day1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	u.RecordActivity(policy, day1)
	assert.Equal(t, 1, u.StreakDays)
	require.NotNil(t, u.LastActivity)
	assert.Equal(t, day1, *u.LastActivity)

	u.RecordActivity(policy, day1.Add(2*time.Hour))
	assert.Equal(t, 1, u.StreakDays)
	assert.Equal(t, day1.Add(2*time.Hour), *u.LastActivity)

	u.RecordActivity(policy, day1.AddDate(0, 0, 1))
	assert.Equal(t, 2, u.StreakDays)
}

func TestUser_CheckInvariantsDetectsStaleLevel(t *testing.T) {
	u := &User{TotalXP: 450, CurrentLevel: 2}
	assert.Error(t, u.CheckInvariants())
	assert.Equal(t, 100.0, u.LevelProgress())
	assert.Equal(t, -50, u.XPForNextLevel())
}
