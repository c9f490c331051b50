package bootstrap

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"vaultai/internal/app"
	"vaultai/internal/backend"
	"vaultai/internal/config"
	"vaultai/internal/pkg/logger"
	"vaultai/internal/platform/audio"
	"vaultai/internal/transport/terminal"
)

// ClientApp is the terminal client: one session against one backend.
type ClientApp struct {
	Config   *config.Config
	Logger   *zap.Logger
	Backend  *backend.Client
	Renderer *terminal.Renderer
	Player   *terminal.CommandPlayer

	Uploads *app.UploadRegistry
	Capture *app.CaptureController
	Session *app.SessionController
}

// NewClient loads configPath (or the default location when empty) and
// wires the client. A non-empty backendURL replaces the configured one.
func NewClient(configPath, backendURL string, out io.Writer) (*ClientApp, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return NewClientWith(cfg, log, out), nil
}

func NewClientWith(cfg *config.Config, log *zap.Logger, out io.Writer) *ClientApp {
	client := backend.NewClient(backend.Config{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.RequestTimeout(),
	}, log.Named("backend"))

	launcher := terminal.ExecLauncher{}
	presenter := terminal.NewPresenter(out, cfg.Presenter.OpenCommand, client, launcher, log.Named("presenter"))
	player := terminal.NewCommandPlayer(cfg.Presenter.AudioCommand, client, launcher, log.Named("player"))

	uploads := app.NewUploadRegistry(client, log.Named("uploads"))
	capture := app.NewCaptureController(
		audio.NewCommandDevice(cfg.Capture.Command, cfg.Capture.ChunkBytes, log.Named("audio")),
		client,
		log.Named("capture"),
	)
	citations := app.NewCitationRouter(presenter, player, cfg.AudioReadyDelay(), log.Named("citations"))

	return &ClientApp{
		Config:   cfg,
		Logger:   log,
		Backend:  client,
		Renderer: terminal.NewRenderer(out),
		Player:   player,
		Uploads:  uploads,
		Capture:  capture,
		Session:  app.NewSessionController(client, client, uploads, capture, citations, log.Named("session")),
	}
}

func (a *ClientApp) Close() error {
	if a.Player != nil {
		a.Player.Stop()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return nil
}
