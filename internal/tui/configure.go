package tui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/signcap/internal/config"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

type ConfigSection string

const (
	SectionCamera        ConfigSection = "camera"
	SectionRecording     ConfigSection = "recording"
	SectionClassifier    ConfigSection = "classifier"
	SectionLabeler       ConfigSection = "labeler"
	SectionNotifications ConfigSection = "notifications"
	SectionServer        ConfigSection = "server"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the menu-based configuration editor
func Run(existingConfig *config.Config) (*ConfigureResult, error) {
	cfg := existingConfig
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		var editErr error
		switch section {
		case SectionSaveExit:
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if !confirmed {
				continue
			}
			if err := cfg.Validate(); err != nil {
				showError("Configuration is invalid", err)
				continue
			}
			return &ConfigureResult{Config: cfg}, nil

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionCamera:
			editErr = editCamera(cfg)
		case SectionRecording:
			editErr = editRecording(cfg)
		case SectionClassifier:
			editErr = editClassifier(cfg)
		case SectionLabeler:
			editErr = editLabeler(cfg)
		case SectionNotifications:
			editErr = editNotifications(cfg)
		case SectionServer:
			editErr = editServer(cfg)
		}
		if editErr != nil && !errors.Is(editErr, huh.ErrUserAborted) {
			showError("Could not apply changes", editErr)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatCameraLabel(cfg), SectionCamera),
		huh.NewOption(formatRecordingLabel(cfg), SectionRecording),
		huh.NewOption(formatClassifierLabel(cfg), SectionClassifier),
		huh.NewOption(formatLabelerLabel(cfg), SectionLabeler),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption(formatServerLabel(cfg), SectionServer),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

func editCamera(cfg *config.Config) error {
	device := cfg.Camera.Device
	format := cfg.Camera.InputFormat
	size := formatSize(cfg.Camera.Width, cfg.Camera.Height)
	framerate := fmt.Sprint(cfg.Camera.Framerate)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Device").
				Description("v4l2 device path, avfoundation index or dshow name").
				Value(&device).
				Validate(validateRequired),
			huh.NewSelect[string]().
				Title("Input format").
				Options(
					huh.NewOption("v4l2 (Linux)", "v4l2"),
					huh.NewOption("avfoundation (macOS)", "avfoundation"),
					huh.NewOption("dshow (Windows)", "dshow"),
				).
				Value(&format),
			huh.NewInput().
				Title("Size").
				Description("WIDTHxHEIGHT, empty for the device default").
				Value(&size).
				Validate(func(s string) error {
					_, _, err := parseSize(s)
					return err
				}),
			huh.NewInput().
				Title("Framerate").
				Description("0 for the device default").
				Value(&framerate).
				Validate(validateNonNegativeInt),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	return applyCamera(cfg, device, format, size, framerate)
}

func editRecording(cfg *config.Config) error {
	duration := cfg.Recording.Duration.String()
	tick := cfg.Recording.Tick.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Clip duration").
				Description("How long each recording lasts (e.g. 2s)").
				Value(&duration).
				Validate(validateDuration),
			huh.NewInput().
				Title("Progress interval").
				Description("How often the progress bar updates (e.g. 50ms)").
				Value(&tick).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	return applyRecording(cfg, duration, tick)
}

func editClassifier(cfg *config.Config) error {
	endpoint := cfg.Classifier.Endpoint
	timeout := cfg.Classifier.Timeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Classifier endpoint").
				Description("Receives the clip as multipart field \"video\"").
				Value(&endpoint).
				Validate(validateEndpoint),
			huh.NewInput().
				Title("Request timeout").
				Value(&timeout).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	return applyClassifier(cfg, endpoint, timeout)
}

func editLabeler(cfg *config.Config) error {
	enabled := cfg.Labeler.Enabled

	enableForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Translate predictions to English?").
				Description("Asks an LLM for an English gloss when the classifier returns none").
				Value(&enabled),
		),
	).WithTheme(getTheme())

	if err := enableForm.Run(); err != nil {
		return err
	}

	cfg.Labeler.Enabled = enabled
	if !enabled {
		return nil
	}

	provider := cfg.Labeler.Provider
	if provider == "" {
		provider = "openai"
	}
	apiKey := cfg.Labeler.APIKey
	model := cfg.Labeler.Model

	keyDesc := "Leave empty to use the provider's environment variable"
	if apiKey != "" {
		keyDesc = "Current: " + maskAPIKey(apiKey)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Options(
					huh.NewOption("OpenAI", "openai"),
					huh.NewOption("Groq", "groq"),
				).
				Value(&provider),
			huh.NewInput().
				Title("API key").
				Description(keyDesc).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
			huh.NewInput().
				Title("Model").
				Description("Empty for the provider default").
				Value(&model),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Labeler.Provider = provider
	cfg.Labeler.APIKey = apiKey
	cfg.Labeler.Model = model
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Description("Alerts and prediction results outside the terminal").
				Value(&enabled),
			huh.NewSelect[string]().
				Title("Notification Type").
				Options(
					huh.NewOption("Desktop notifications (notify-send)", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = notifType
	return nil
}

func editServer(cfg *config.Config) error {
	listen := cfg.Server.Listen

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("HTTP listen address").
				Description("e.g. 127.0.0.1:8090, empty disables the browser surface").
				Value(&listen),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Server.Listen = listen
	return nil
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println(StyleBox.Render(summary(cfg)))

	confirmed := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Back").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}

func showError(title string, err error) {
	huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(title).
				Description(StyleError.Render(err.Error())).
				Next(true).
				NextLabel("Back"),
		),
	).WithTheme(getTheme()).Run()
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}
