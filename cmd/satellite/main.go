package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/antoniostano/samantha/internal/adminapi"
	"github.com/antoniostano/samantha/internal/audioplayer"
	"github.com/antoniostano/samantha/internal/config"
	"github.com/antoniostano/samantha/internal/entities"
	"github.com/antoniostano/samantha/internal/mdnsadvert"
	"github.com/antoniostano/samantha/internal/observability"
	"github.com/antoniostano/samantha/internal/preferences"
	"github.com/antoniostano/samantha/internal/runlog"
	"github.com/antoniostano/samantha/internal/satellite"
	"github.com/antoniostano/samantha/internal/state"
	"github.com/antoniostano/samantha/internal/wakeword"
	"github.com/antoniostano/samantha/internal/wire"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("component", "main").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	prefs := preferences.New(cfg.PreferencesPath, log)
	music := audioplayer.New("music", audioplayer.MPVBackend{}, log)
	tts := audioplayer.New("tts", audioplayer.MPVBackend{}, log)

	macAddress := localMacAddress(log)

	st := state.New(cfg.DeviceName, macAddress, cfg.MaxActiveWakeWords, "stop", prefs, music, tts, log, metrics)
	st.WakeupSoundURI = cfg.WakeupSoundURI
	st.TimerFinishedSoundURI = cfg.TimerFinishedSoundURI

	if err := os.MkdirAll(cfg.WakeWordDir, 0o755); err != nil {
		log.Warn().Err(err).Msg("could not create wake word directory")
	}
	catalog, err := wakeword.Scan(cfg.WakeWordDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wake word catalog scan failed")
	}
	st.LoadCatalog(catalog)

	watcher, err := wakeword.NewWatcher(cfg.WakeWordDir, log, func(cat *wakeword.Catalog) {
		st.LoadCatalog(cat)
	})
	if err != nil {
		log.Warn().Err(err).Msg("wake word watcher unavailable, hot-reload disabled")
	} else {
		defer watcher.Close()
	}

	eb := entities.New(entities.Callbacks{
		StopAssistant: func() {
			if sat := st.Satellite(); sat != nil {
				sat.Stop()
			}
		},
		ToggleMute: func() { st.SetMuted(!st.Muted()) },
		ReloadWakeWords: func() {
			cat, err := wakeword.Scan(cfg.WakeWordDir, log)
			if err != nil {
				log.Warn().Err(err).Msg("manual wake word rescan failed")
				return
			}
			st.LoadCatalog(cat)
		},
		Announce: func(text, mediaID string) {
			if sat := st.Satellite(); sat != nil {
				sat.Announce(text, mediaID)
			}
		},
		BroadcastNotify: func(args map[string]string) {
			log.Info().Interface("args", args).Msg("broadcast notification")
		},
		MediaPlayerCmd: func(req wire.MediaPlayerCommandRequest) {
			if req.HasVolume {
				vol := int(req.Volume * 100)
				st.MusicPlayer.SetVolume(vol)
				st.TTSPlayer.SetVolume(vol)
			}
			if req.HasMute {
				st.SetMuted(req.Mute)
			}
			if req.HasCommand {
				switch req.Command {
				case "PAUSE":
					st.MusicPlayer.Pause()
				case "PLAY":
					st.MusicPlayer.Resume()
				case "STOP":
					st.MusicPlayer.Stop()
				default:
					log.Warn().Str("command", req.Command).Msg("unknown media player command")
				}
			}
			if req.HasMediaURL {
				if req.Announcement {
					st.Duck()
					st.TTSPlayer.Play(req.MediaURL, func() { st.Unduck() })
				} else {
					st.MusicPlayer.Play(req.MediaURL, nil)
				}
			}
		},
	}, log)

	runs := runlog.NewManager(2 * time.Minute)
	runs.SetStaleHook(func(r *runlog.Run) {
		log.Warn().Str("run_id", r.ID).Str("wake_word", r.WakeWord).Msg("run force-ended: never reached a terminal state")
	})

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	runs.StartJanitor(runCtx, 10*time.Second)

	srv, err := satellite.Listen(net.JoinHostPort(cfg.APIBindAddress, strconv.Itoa(cfg.APIPort)), satellite.DeviceInfo{
		Name:       cfg.DeviceName,
		MacAddress: macAddress,
	}, st, eb, runs, log, metrics, nil, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("satellite listener failed to bind")
	}

	advertiser := mdnsadvert.New(log, metrics)
	if err := advertiser.Register(mdnsadvert.Info{
		DeviceName:     cfg.DeviceName,
		Version:        cfg.ProjectVersion,
		Platform:       cfg.Platform,
		Board:          cfg.Board,
		MacAddress:     macAddress,
		ProjectName:    cfg.ProjectName,
		ProjectVersion: cfg.ProjectVersion,
		Port:           cfg.APIPort,
	}); err != nil {
		log.Warn().Err(err).Msg("mdns registration failed, satellite must be configured with a manual address")
	} else {
		defer advertiser.Unregister()
	}

	go func() {
		log.Info().Str("addr", srv.Addr().String()).Msg("satellite listening")
		if err := srv.Serve(); err != nil {
			log.Error().Err(err).Msg("satellite listener stopped")
		}
	}()

	admin := adminapi.New(st, eb, metrics)
	adminServer := &http.Server{Addr: cfg.AdminBindAddr, Handler: admin.Router()}
	go func() {
		log.Info().Str("addr", cfg.AdminBindAddr).Msg("admin api listening")
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("admin api listener stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	runCancel()
	_ = srv.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("admin api graceful shutdown failed")
		_ = adminServer.Close()
	}

	log.Info().Msg("shutdown complete")
}

// localMacAddress picks the first non-loopback interface's hardware
// address to report as the satellite's identity, falling back to a
// fixed placeholder when none is available (e.g. in a container with
// no physical NIC).
func localMacAddress(log zerolog.Logger) string {
	ifaces, err := net.Interfaces()
	if err != nil {
		log.Warn().Err(err).Msg("could not enumerate network interfaces")
		return "02:00:00:00:00:00"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return "02:00:00:00:00:00"
}
