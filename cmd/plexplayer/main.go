// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/plexplayer/internal/api/companion"
	"github.com/osa030/plexplayer/internal/app/notification"
	"github.com/osa030/plexplayer/internal/app/nowplaying"
	"github.com/osa030/plexplayer/internal/app/playback"
	"github.com/osa030/plexplayer/internal/app/session"
	"github.com/osa030/plexplayer/internal/domain/media"
	"github.com/osa030/plexplayer/internal/infra/config"
	"github.com/osa030/plexplayer/internal/infra/logger"
	"github.com/osa030/plexplayer/internal/infra/mpv"
	"github.com/osa030/plexplayer/internal/infra/mpv/libmpv"
	"github.com/osa030/plexplayer/internal/infra/plex"
	"github.com/osa030/plexplayer/internal/infra/settings"
)

var (
	app        = kingpin.New("plexplayer", "Plex media player")
	configPath = app.Flag("config", "Path to config file").Default("config/plexplayer.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: config or stdout)").String()

	videoCmd    = app.Command("video", "Play a video")
	videoKey    = videoCmd.Arg("key", "Rating key of the video").Required().String()
	videoResume = videoCmd.Flag("resume", "Resume from the last view offset").Bool()

	trackCmd = app.Command("track", "Play a music track")
	trackKey = trackCmd.Arg("key", "Rating key of the track").Required().String()

	albumCmd     = app.Command("album", "Play an album")
	albumKey     = albumCmd.Arg("key", "Rating key of the album").Required().String()
	albumShuffle = albumCmd.Flag("shuffle", "Shuffle the album").Bool()

	queueCmd    = app.Command("queue", "Play a server play queue")
	queueID     = queueCmd.Arg("id", "Play queue ID").Required().Int64()
	queueResume = queueCmd.Flag("resume", "Resume videos from their last view offset").Bool()

	serveCmd = app.Command("serve", "Wait for remote control commands (default)").Default()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, command); err != nil {
		zlog.Error().Msgf("plexplayer: %+v", err)
		closeLog()
		os.Exit(1)
	}
}

// run wires the player and blocks until the session ends or a shutdown signal arrives.
func run(cfg *config.Config, command string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := plex.New(plex.Config{
		ServerURL:        cfg.Server.URL,
		Token:            cfg.Server.Token,
		ClientIdentifier: cfg.Server.ClientIdentifier,
		Platform:         cfg.Player.Platform,
		Timeout:          cfg.Server.Timeout(),
		RetryMax:         cfg.Server.RetryMax,
		DirectPlay:       !cfg.Server.TranscodeOnly,
		DirectContainers: cfg.Server.DirectContainers,
		MaxVideoBitrate:  cfg.Server.MaxVideoBitrate,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create server client")
	}
	zlog.Info().Msgf("plexplayer: server %s as %s", cfg.Server.URL, client.ClientIdentifier())

	store, err := settings.Open(cfg.Settings.Path, cfg.Settings.Defaults)
	if err != nil {
		return errors.Wrap(err, "failed to open settings")
	}

	opts, err := mpv.DecodeOptions(cfg.Renderer.Options)
	if err != nil {
		return errors.Wrap(err, "invalid renderer options")
	}
	engine, err := libmpv.Open(opts.EngineOptions())
	if err != nil {
		return errors.Wrap(err, "failed to start renderer")
	}
	renderer := mpv.NewRenderer(engine, opts)
	defer renderer.Close()
	go renderer.Run(ctx)

	signals := notification.NewManager()
	defer signals.Close()

	timelines := nowplaying.NewManager(client, nowplaying.Config{BufferSize: cfg.Player.TimelineBuffer})
	go timelines.Run(ctx)

	player := playback.New(ctx, playback.Config{
		PollInterval:  cfg.Player.PollInterval(),
		TickEvery:     cfg.Player.TickEvery,
		TokenAttempts: cfg.Player.TokenAttempts,
		TokenInterval: cfg.Player.TokenInterval(),
		StopSettle:    cfg.Player.StopSettle(),
		SubtitleDelay: cfg.Player.SubtitleDelay(),
		Platform:      cfg.Player.Platform,
	}, playback.Deps{
		Renderer: renderer,
		Server:   client,
		Timeline: timelines,
		Dialogs:  func() playback.SeekDialog { return mpv.NewSeekDialog(engine, opts.OSDDurationMs) },
		Notifier: mpv.NewNotifier(engine, opts.OSDDurationMs),
		Signals:  signals,
		Settings: store,
	})
	defer player.Close()

	sessions := session.NewManager(ctx, client, player, signals, session.Config{
		RefreshDelay: cfg.Server.PlayQueueRefreshDelay(),
	})
	defer sessions.Close()

	serve := command == serveCmd.FullCommand()
	serverErrCh := make(chan error, 1)
	var server *http.Server
	if serve || cfg.Companion.Enabled {
		svc := companion.NewService(player, sessions, timelines, companion.Config{})
		server = &http.Server{
			Addr:    cfg.Companion.Addr,
			Handler: svc.Handler(cfg.Companion.Token),
		}
		go func() {
			zlog.Info().Msgf("plexplayer: companion API on %s", cfg.Companion.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- err
			}
		}()
	}

	if !serve {
		if err := launch(ctx, sessions, command); err != nil {
			return err
		}
	} else {
		player.Open()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Serving never ends with a session; only signals and server errors stop it.
	var ended <-chan struct{}
	if !serve {
		ended = sessions.Ended()
	}

	select {
	case <-sigCh:
		zlog.Info().Msg("plexplayer: received shutdown signal")
		player.Stop()
	case <-ended:
		zlog.Info().Msg("plexplayer: session ended, shutting down")
	case err := <-serverErrCh:
		return errors.Wrap(err, "companion API failed")
	}

	if server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Err(err).Msg("plexplayer: failed to shut down companion API")
		}
	}

	zlog.Info().Msg("plexplayer: stopped")
	return nil
}

func launch(ctx context.Context, sessions *session.Manager, command string) error {
	switch command {
	case videoCmd.FullCommand():
		return sessions.PlayKey(ctx, *videoKey, session.PlayOptions{Resume: *videoResume, Expect: session.KindVideo})
	case trackCmd.FullCommand():
		return sessions.PlayKey(ctx, *trackKey, session.PlayOptions{Expect: media.TypeTrack})
	case albumCmd.FullCommand():
		return sessions.PlayKey(ctx, *albumKey, session.PlayOptions{Shuffle: *albumShuffle, Expect: media.TypeAlbum})
	case queueCmd.FullCommand():
		return sessions.PlayQueue(ctx, *queueID, session.PlayOptions{Resume: *queueResume})
	}
	return errors.Newf("unknown command %q", command)
}
