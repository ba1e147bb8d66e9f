package chat

import (
	"fmt"

	"bugeai-chat/utils"
)

// AppModel decides between the welcome screen and the chat screen
type AppModel struct {
	prefs  *Preferences
	logger *utils.Logger
	state  *utils.StateFlow[AppScreenUiState]
}

// NewAppModel creates an app model in the loading state
func NewAppModel(store SettingsStore, logger *utils.Logger) *AppModel {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &AppModel{
		prefs:  NewPreferences(store),
		logger: logger,
		state:  utils.NewStateFlow[AppScreenUiState](AppLoading{}),
	}
}

// State is the navigation stream
func (a *AppModel) State() *utils.StateFlow[AppScreenUiState] { return a.state }

// Load reads the welcome flag and publishes AppSuccess
func (a *AppModel) Load() error {
	shown, err := a.prefs.WelcomeShown()
	if err != nil {
		// fall back to the welcome screen rather than blocking the app
		a.state.Set(AppSuccess{IsWelcomeShown: false})
		return fmt.Errorf("failed to load welcome state: %w", err)
	}
	a.state.Set(AppSuccess{IsWelcomeShown: shown})
	return nil
}

// OnWelcomeDone persists the welcome flag and switches to the chat screen
func (a *AppModel) OnWelcomeDone() {
	if err := a.prefs.SetWelcomeShown(); err != nil {
		a.logger.Warn("Failed to save welcome state: %v", err)
	}
	a.state.Set(AppSuccess{IsWelcomeShown: true})
}

// ShowWelcome navigates back to the welcome screen without touching the stored flag
func (a *AppModel) ShowWelcome() {
	a.state.Set(AppSuccess{IsWelcomeShown: false})
}
