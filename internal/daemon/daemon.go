package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leonardotrapani/signcap/internal/api"
	"github.com/leonardotrapani/signcap/internal/bus"
	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/config"
	"github.com/leonardotrapani/signcap/internal/controller"
	"github.com/leonardotrapani/signcap/internal/metrics"
	"github.com/leonardotrapani/signcap/internal/notify"
	"github.com/leonardotrapani/signcap/internal/preview"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	commandTimeout  = 5 * time.Second
	teardownTimeout = 5 * time.Second
)

// Controller is the part of controller.Controller the daemon drives.
type Controller interface {
	Run(ctx context.Context) error
	Status() controller.State
	Trigger(ctx context.Context) (controller.State, error)
	LastResult() (controller.Result, bool)
	Done() <-chan struct{}
}

type Daemon struct {
	configMgr *config.Manager
	ctrl      Controller
	hub       *api.Hub
	surface   *notifySurface

	classifier *reloadingClassifier
	labeler    *reloadingLabeler

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires the capture controller to the camera, the classifier and the
// configured surfaces.
func New(mgr *config.Manager) (*Daemon, error) {
	cfg := mgr.GetConfig()

	previewDir, err := cfg.PreviewDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preview directory: %w", err)
	}
	previews, err := preview.NewStore(previewDir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		configMgr:  mgr,
		hub:        api.NewHub(),
		surface:    newNotifySurface(notify.New(cfg.NotificationType())),
		classifier: newReloadingClassifier(cfg),
		labeler:    newReloadingLabeler(cfg),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.ctrl = controller.New(controller.Options{
		Source:     camera.NewFFmpegSource(cfg.ToCameraConfig()),
		Classifier: d.classifier,
		Previews:   previews,
		Labeler:    d.labeler,
		Surface:    controller.Multi{d.surface, d.hub},
		Settings:   settingsFrom(mgr),
	})

	mgr.OnReload(d.applyConfig)
	return d, nil
}

// applyConfig picks up changes that do not need the camera reopened.
func (d *Daemon) applyConfig(cfg *config.Config) {
	d.classifier.apply(cfg)
	d.labeler.apply(cfg)
	d.surface.set(notify.New(cfg.NotificationType()))
	log.Printf("Daemon: configuration applied (camera and server changes need a restart)")
}

func (d *Daemon) Status() controller.State {
	return d.ctrl.Status()
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Printf("Daemon: failed to register metrics: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	if err := d.configMgr.StartWatching(d.ctx); err != nil {
		log.Printf("Daemon: config watching disabled: %v", err)
	}
	defer d.configMgr.Stop()

	go func() {
		if err := d.ctrl.Run(d.ctx); err != nil {
			log.Printf("Daemon: controller stopped: %v", err)
		}
		d.cancel()
	}()

	if addr := d.configMgr.GetConfig().Server.Listen; addr != "" {
		server := api.NewServer(d.ctrl, d.hub, prometheus.DefaultGatherer)
		go func() {
			if err := server.ListenAndServe(d.ctx, addr); err != nil {
				log.Printf("Daemon: browser surface failed: %v", err)
			}
		}()
	}

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				d.waitForController()
				return nil
			}
			log.Printf("Accept error: %v", err)
			d.cancel()
			d.waitForController()
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) waitForController() {
	select {
	case <-d.ctrl.Done():
	case <-time.After(teardownTimeout):
		log.Printf("Daemon: controller did not stop within %v", teardownTimeout)
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 || line[0] == '\n' {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdRecord:
		ctx, cancel := context.WithTimeout(d.ctx, commandTimeout)
		state, err := d.ctrl.Trigger(ctx)
		cancel()
		if err != nil {
			if errors.Is(err, controller.ErrStopped) {
				fmt.Fprint(c, "ERR stopped\n")
				return
			}
			fmt.Fprintf(c, "ERR trigger: %v\n", err)
			return
		}
		fmt.Fprintf(c, "STATUS state=%s\n", state)
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS state=%s\n", d.ctrl.Status())
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}
