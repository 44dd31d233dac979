package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ircgram/internal/bus"
	"ircgram/internal/config"
	"ircgram/internal/relay"
	"ircgram/internal/store"
	"ircgram/internal/transport"
	"ircgram/internal/webshare"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "ircgram",
		Short:   "ircgram: bidirectional IRC <-> Telegram relay",
		Long:    "ircgram bridges IRC channels and Telegram groups: messages posted on either side are relayed to the mapped room on the other side.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ~/.ircgram/config.yaml)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(checkCmd())

	daemon := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the system daemon",
	}
	daemon.AddCommand(installDaemonCmd())
	daemon.AddCommand(uninstallDaemonCmd())
	root.AddCommand(daemon)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("refusing to overwrite existing config at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("config written, fill in telegram.token and mappings", "path", cfgPath)
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config, probe both networks and show known group ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger.Info("config ok", "path", cfgPath, "mappings", len(cfg.Mappings), "media_relay", cfg.Media.Enabled())

			failed := 0
			if err := probeIRC(cfg.IRC.Server, cfg.IRC.TLS); err != nil {
				logger.Error("irc unreachable", "server", cfg.IRC.Server, "err", err)
				failed++
			} else {
				logger.Info("irc reachable", "server", cfg.IRC.Server)
			}

			if tg, err := transport.NewTelegram(cfg.Telegram.Token, logger); err != nil {
				logger.Error("telegram unreachable", "err", err)
				failed++
			} else {
				logger.Info("telegram reachable", "bot", tg.Self().Username)
			}

			chStore, err := store.Open(cfg.Store.DBPath, logger)
			if err != nil {
				return fmt.Errorf("chat id store: %w", err)
			}
			defer chStore.Close()

			ids, err := chStore.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load chat ids: %w", err)
			}
			for group, channel := range cfg.Mappings {
				if id, ok := ids[group]; ok {
					logger.Info("mapping", "group", group, "channel", channel, "chat_id", id)
				} else {
					logger.Info("mapping", "group", group, "channel", channel, "chat_id", "not yet discovered")
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d transport(s) unreachable", failed)
			}
			return nil
		},
	}
}

// probeIRC verifies the IRC endpoint accepts connections. With TLS it
// also completes the handshake, so certificate problems surface here
// rather than at run time.
func probeIRC(server string, useTLS bool) error {
	conn, err := net.DialTimeout("tcp", server, 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTLS {
		host := server
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
		tlsConn.SetDeadline(time.Now().Add(5 * time.Second))
		if err := tlsConn.Handshake(); err != nil {
			return fmt.Errorf("tls handshake: %w", err)
		}
	}
	return nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the relay",
		Long:  "Connects to IRC and Telegram and relays messages between mapped rooms until interrupted.",
		RunE:  runRelay,
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chStore, err := store.Open(cfg.Store.DBPath, logger)
	if err != nil {
		return fmt.Errorf("chat id store: %w", err)
	}
	defer chStore.Close()

	ids, err := chStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load chat ids: %w", err)
	}
	for group, id := range ids {
		logger.Info("loaded telegram group", "title", group, "chat_id", id)
	}

	state := relay.NewState(cfg.Mappings, ids, chStore, logger)

	// Both transports must come up before the concurrent phase starts;
	// either failing is fatal here.
	tg, err := transport.NewTelegram(cfg.Telegram.Token, logger)
	if err != nil {
		return err
	}

	ircT := transport.NewIRC(transport.IRCConfig{
		Server:   cfg.IRC.Server,
		Nick:     cfg.IRC.Nick,
		TLS:      cfg.IRC.TLS,
		Password: cfg.IRC.Password,
		Channels: state.Channels(),
		Logger:   logger,
		Debug:    cfg.Debug,
	})
	if err := ircT.Connect(); err != nil {
		return fmt.Errorf("irc connect: %w", err)
	}
	logger.Info("irc connected", "server", cfg.IRC.Server, "nick", ircT.Nick())
	go ircT.Run()

	out := bus.New(64, logger)
	out.OnOutbound("irc", ircT.HandleOutbound)
	out.OnOutbound("telegram", tg.HandleOutbound)

	var media *relay.MediaPipeline
	if cfg.Media.Enabled() {
		if err := os.MkdirAll(cfg.Media.DownloadDir, 0o755); err != nil {
			return fmt.Errorf("create download dir: %w", err)
		}
		media = relay.NewMediaPipeline(tg, cfg.Media.BaseURL, cfg.Media.DownloadDir, logger)
		logger.Info("media relay enabled", "base_url", cfg.Media.BaseURL, "download_dir", cfg.Media.DownloadDir)

		if cfg.Media.Listen != "" {
			srv := webshare.New(cfg.Media.Listen, cfg.Media.DownloadDir, logger)
			go func() {
				if err := srv.Start(ctx); err != nil {
					logger.Error("media server error", "err", err)
				}
			}()
		}
	}

	ircIngest := &relay.IRCIngest{
		State:    state,
		Out:      out,
		Messages: ircT.Messages(),
		Errors:   ircT.Errors(),
		Logger:   logger,
		Debug:    cfg.Debug,
	}
	tgIngest := &relay.TelegramIngest{
		State:  state,
		Out:    out,
		Poller: tg,
		Media:  media,
		SelfID: tg.Self().ID,
		Logger: logger,
		Debug:  cfg.Debug,
	}

	go ircIngest.Run(ctx)
	go tgIngest.Run(ctx)

	logger.Info("relay started", "mappings", len(cfg.Mappings))

	<-ctx.Done()
	logger.Info("shutting down")
	out.Close()
	ircT.Close()
	return nil
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Debug {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
