package chat

import (
	"fmt"
	"strconv"
)

const (
	keyWelcomeShown = "welcome_shown"
	keyCoins        = "coins"
	keySentCount    = "sent_count"
	keyReviewShown  = "review_shown"
	keyReviewDone   = "review_done"
)

// Preferences reads and writes typed values on top of the settings table
type Preferences struct {
	store SettingsStore
}

// NewPreferences wraps a settings store
func NewPreferences(store SettingsStore) *Preferences {
	return &Preferences{store: store}
}

// Bool returns the stored flag, false when unset
func (p *Preferences) Bool(key string) (bool, error) {
	value, ok, err := p.store.GetSetting(key)
	if err != nil || !ok {
		return false, err
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("setting %s: %w", key, err)
	}
	return b, nil
}

// SetBool stores a flag
func (p *Preferences) SetBool(key string, value bool) error {
	return p.store.SetSetting(key, strconv.FormatBool(value))
}

// Int returns the stored integer or def when unset
func (p *Preferences) Int(key string, def int) (int, error) {
	value, ok, err := p.store.GetSetting(key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def, fmt.Errorf("setting %s: %w", key, err)
	}
	return n, nil
}

// SetInt stores an integer
func (p *Preferences) SetInt(key string, value int) error {
	return p.store.SetSetting(key, strconv.Itoa(value))
}

func (p *Preferences) WelcomeShown() (bool, error) { return p.Bool(keyWelcomeShown) }

func (p *Preferences) SetWelcomeShown() error { return p.SetBool(keyWelcomeShown, true) }

// Coins returns the balance, seeding it with initial on first use
func (p *Preferences) Coins(initial int) (int, error) {
	_, ok, err := p.store.GetSetting(keyCoins)
	if err != nil {
		return 0, err
	}
	if !ok {
		if err := p.SetInt(keyCoins, initial); err != nil {
			return 0, err
		}
		return initial, nil
	}
	return p.Int(keyCoins, initial)
}
