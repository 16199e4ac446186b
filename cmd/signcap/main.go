package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leonardotrapani/signcap/internal/bus"
	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/classifier"
	"github.com/leonardotrapani/signcap/internal/config"
	"github.com/leonardotrapani/signcap/internal/controller"
	"github.com/leonardotrapani/signcap/internal/daemon"
	"github.com/leonardotrapani/signcap/internal/deps"
	"github.com/leonardotrapani/signcap/internal/labeler"
	"github.com/leonardotrapani/signcap/internal/media"
	"github.com/leonardotrapani/signcap/internal/preview"
	"github.com/leonardotrapani/signcap/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "signcap",
	Short: "Record short webcam clips and classify them",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		recordCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		watchCmd(),
		classifyCmd(),
		configureCmd(),
		checkCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			d, err := daemon.New(mgr)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func recordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Record and classify a clip",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdRecord)
			if err != nil {
				return fmt.Errorf("failed to start recording: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get current capture state",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdStatus)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdVersion)
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdQuit)
			if err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Open the camera in an interactive terminal view",
		Long: `Runs the capture controller in the foreground.
Press r to record a clip, q to quit. Logs go to ~/.cache/signcap/watch.log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch()
		},
	}
}

func runWatch() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	previewDir, err := cfg.PreviewDir()
	if err != nil {
		return err
	}
	previews, err := preview.NewStore(previewDir)
	if err != nil {
		return err
	}

	logFile, err := openWatchLog()
	if err != nil {
		return err
	}
	defer logFile.Close()

	var ctrl *controller.Controller
	model := tui.NewWatchModel(func(ctx context.Context) (controller.State, error) {
		return ctrl.Trigger(ctx)
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	opts := controller.Options{
		Source:     camera.NewFFmpegSource(cfg.ToCameraConfig()),
		Classifier: classifier.NewClient(cfg.ToClassifierConfig()),
		Previews:   previews,
		Surface:    tui.ProgramSurface{Program: program},
		Settings: func() controller.Settings {
			return controller.Settings{Duration: cfg.Recording.Duration, Tick: cfg.Recording.Tick}
		},
	}
	if cfg.IsLabelerEnabled() {
		if l, err := labeler.New(cfg.ToLabelerConfig()); err == nil {
			opts.Labeler = l
		}
	}
	ctrl = controller.New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	_, err = program.Run()
	cancel()
	<-ctrl.Done()
	return err
}

func openWatchLog() (*os.File, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "signcap", "watch.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return tea.LogToFile(path, "signcap")
}

func classifyCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "classify <video-file>",
		Short: "Send an existing clip to the classifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd.Context(), args[0], timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "override classifier.timeout")

	return cmd
}

func runClassify(ctx context.Context, path string, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read clip: %w", err)
	}

	clip, err := media.NewClip([]media.Chunk{{Data: data, Timestamp: time.Now()}}, "", filepath.Ext(path))
	if err != nil {
		return err
	}

	clientCfg := cfg.ToClassifierConfig()
	if timeout > 0 {
		clientCfg.Timeout = timeout
	}
	pred, err := classifier.NewClient(clientCfg).Classify(ctx, clip)
	if err == nil && cfg.IsLabelerEnabled() && pred != nil && !pred.Failed() && pred.EnglishLabel == "" {
		if l, lerr := labeler.New(cfg.ToLabelerConfig()); lerr == nil {
			if label, lerr := l.Label(ctx, pred.Prediction); lerr == nil {
				pred.EnglishLabel = label
			}
		}
	}

	result := controller.Render(pred, err)
	if result.Failed() {
		fmt.Println(tui.StyleError.Render(result.Text))
		return fmt.Errorf("classification failed")
	}
	fmt.Println(tui.SeverityStyle(result.Severity).Render(result.Text))
	return nil
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration editor for signcap.
Covers the camera device, clip timing, the classifier endpoint,
English labels, notifications and the browser surface.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	// Load existing config or create default
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration editor error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()

	showNextSteps()

	return nil
}

func showNextSteps() {
	serviceRunning := false
	if _, err := exec.Command("systemctl", "--user", "is-active", "--quiet", "signcap.service").CombinedOutput(); err == nil {
		serviceRunning = true
	}

	fmt.Println("Next Steps:")
	if !serviceRunning {
		fmt.Println("1. Start the daemon: signcap serve (or systemctl --user start signcap.service)")
	} else {
		fmt.Println("1. The running daemon reloads the config; camera and server changes need: systemctl --user restart signcap.service")
	}
	fmt.Println("2. Record a clip: signcap record, or signcap watch for the terminal view")
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check external tools and the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck()
		},
	}
}

func runCheck() error {
	ok := true

	for _, status := range deps.CheckAll() {
		switch {
		case status.Installed:
			fmt.Println(tui.StyleSuccess.Render("✓ "+status.Name) + " " + tui.StyleMuted.Render(status.Version))
		case status.Required:
			ok = false
			fmt.Println(tui.StyleError.Render("✗ " + status.Name + " not found in PATH"))
		default:
			fmt.Println(tui.StyleWarning.Render("! " + status.Name + " not found (optional)"))
		}
	}

	configPath, _ := config.GetConfigPath()
	cfg, err := config.Load()
	if err != nil {
		ok = false
		fmt.Println(tui.StyleError.Render("✗ config: " + err.Error()))
	} else if err := cfg.Validate(); err != nil {
		ok = false
		fmt.Println(tui.StyleError.Render("✗ config: " + err.Error()))
	} else {
		fmt.Println(tui.StyleSuccess.Render("✓ config") + " " + tui.StyleMuted.Render(configPath))
	}

	if !ok {
		return fmt.Errorf("check failed")
	}
	return nil
}
