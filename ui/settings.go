package ui

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"bugeai-chat/utils"
)

// settingsForm holds the raw values of the settings dialog
type settingsForm struct {
	APIKey   string
	BaseURL  string
	Model    string
	Name     string
	Prompt   string
	FontSize string
}

func formFromConfig(cfg *utils.Config) settingsForm {
	return settingsForm{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.Model,
		Name:     cfg.Assistant.Name,
		Prompt:   cfg.Assistant.SystemPrompt,
		FontSize: strconv.Itoa(cfg.UI.FontSize),
	}
}

// applySettings validates the form and copies it into cfg
func applySettings(cfg *utils.Config, form settingsForm) error {
	base := strings.TrimSpace(form.BaseURL)
	if base != "" {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("无效的 API 地址: %q", base)
		}
	}
	model := strings.TrimSpace(form.Model)
	if model == "" {
		return errors.New("模型不能为空")
	}
	size, err := strconv.Atoi(strings.TrimSpace(form.FontSize))
	if err != nil || size < 10 || size > 32 {
		return errors.New("字体大小应在 10 到 32 之间")
	}

	cfg.OpenAI.APIKey = strings.TrimSpace(form.APIKey)
	cfg.OpenAI.BaseURL = base
	cfg.OpenAI.Model = model
	if name := strings.TrimSpace(form.Name); name != "" {
		cfg.Assistant.Name = name
	}
	cfg.Assistant.SystemPrompt = strings.TrimSpace(form.Prompt)
	cfg.UI.FontSize = size
	return nil
}

// showSettings edits the config file. Changes apply on the next start.
func (a *App) showSettings() {
	form := formFromConfig(a.config)

	apiKey := widget.NewPasswordEntry()
	apiKey.SetText(form.APIKey)
	baseURL := widget.NewEntry()
	baseURL.SetText(form.BaseURL)
	model := widget.NewEntry()
	model.SetText(form.Model)
	name := widget.NewEntry()
	name.SetText(form.Name)
	prompt := widget.NewMultiLineEntry()
	prompt.SetText(form.Prompt)
	prompt.SetMinRowsVisible(3)
	fontSize := widget.NewSelect([]string{"12", "14", "16", "18", "20"}, nil)
	fontSize.SetSelected(form.FontSize)

	var popup *widget.PopUp
	save := widget.NewButton("保存", func() {
		err := applySettings(a.config, settingsForm{
			APIKey:   apiKey.Text,
			BaseURL:  baseURL.Text,
			Model:    model.Text,
			Name:     name.Text,
			Prompt:   prompt.Text,
			FontSize: fontSize.Selected,
		})
		if err != nil {
			a.showError(err.Error())
			return
		}
		if err := utils.SaveConfig(a.configPath, a.config); err != nil {
			a.logger.Error("Failed to save config: %v", err)
			a.showError("保存失败: " + err.Error())
			return
		}
		a.logger.Info("Settings saved to %s", a.configPath)
		popup.Hide()
		a.showInfo("设置已保存，重启应用后生效")
	})
	save.Importance = widget.HighImportance

	popup = widget.NewModalPopUp(
		container.NewVBox(
			widget.NewLabel("设置"),
			widget.NewForm(
				widget.NewFormItem("API Key", apiKey),
				widget.NewFormItem("API 地址", baseURL),
				widget.NewFormItem("模型", model),
				widget.NewFormItem("助手名称", name),
				widget.NewFormItem("系统提示词", prompt),
				widget.NewFormItem("字体大小", fontSize),
			),
			container.NewGridWithColumns(2,
				widget.NewButton("取消", func() { popup.Hide() }),
				save,
			),
		),
		a.window.Canvas(),
	)
	popup.Resize(fyne.NewSize(a.window.Canvas().Size().Width*0.9, popup.MinSize().Height))
	popup.Show()
}
