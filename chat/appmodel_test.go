package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppModelWelcomeFlow(t *testing.T) {
	store := newTestStore(t)

	app := NewAppModel(store, nil)
	assert.IsType(t, AppLoading{}, app.State().Value())

	require.NoError(t, app.Load())
	assert.Equal(t, AppSuccess{IsWelcomeShown: false}, app.State().Value())

	app.OnWelcomeDone()
	assert.Equal(t, AppSuccess{IsWelcomeShown: true}, app.State().Value())

	reopened := NewAppModel(store, nil)
	require.NoError(t, reopened.Load())
	assert.Equal(t, AppSuccess{IsWelcomeShown: true}, reopened.State().Value())

	reopened.ShowWelcome()
	assert.Equal(t, AppSuccess{IsWelcomeShown: false}, reopened.State().Value())
}

func TestPreferences(t *testing.T) {
	prefs := NewPreferences(newTestStore(t))

	coins, err := prefs.Coins(7)
	require.NoError(t, err)
	assert.Equal(t, 7, coins)

	require.NoError(t, prefs.SetInt(keyCoins, 2))
	coins, err = prefs.Coins(7)
	require.NoError(t, err)
	assert.Equal(t, 2, coins, "initial value only seeds an unset balance")

	flag, err := prefs.Bool("missing")
	require.NoError(t, err)
	assert.False(t, flag)

	require.NoError(t, prefs.SetBool(keyReviewDone, true))
	flag, err = prefs.Bool(keyReviewDone)
	require.NoError(t, err)
	assert.True(t, flag)

	require.NoError(t, prefs.store.SetSetting(keySentCount, "garbage"))
	n, err := prefs.Int(keySentCount, 4)
	assert.Error(t, err)
	assert.Equal(t, 4, n)
}
