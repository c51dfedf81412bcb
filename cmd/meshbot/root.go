package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EgorLis/meshbot/internal/admin"
	"github.com/EgorLis/meshbot/internal/bot"
	"github.com/EgorLis/meshbot/internal/config"
	"github.com/EgorLis/meshbot/internal/directory"
	"github.com/EgorLis/meshbot/internal/fetch"
	"github.com/EgorLis/meshbot/internal/logging"
	"github.com/EgorLis/meshbot/internal/mailbox"
	"github.com/EgorLis/meshbot/internal/meshclient"
	"github.com/EgorLis/meshbot/internal/tides"
	"github.com/EgorLis/meshbot/internal/twinhex"
	"github.com/EgorLis/meshbot/internal/weather"
)

var (
	flagPort     string
	flagHost     string
	flagDB       string
	flagSettings string
	flagAdmin    string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "meshbot",
	Short: "Meshtastic command bot",
	Long: "meshbot listens to a Meshtastic radio over serial or TCP and answers " +
		"#commands from the mesh while respecting the radio's duty cycle.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPort == "" && flagHost == "" {
			printPorts(cmd.OutOrStdout(), meshclient.ListPorts())
			return nil
		}
		log := logging.New(flagLogLevel)
		slog.SetDefault(log)
		return run(log)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagPort, "port", "", "serial port of the radio, e.g. /dev/ttyUSB0")
	f.StringVar(&flagHost, "host", "", "radio address for TCP, host[:port] (default port 4403)")
	f.StringVar(&flagDB, "db", "", "node directory preset: mpowered|liam (overrides DBFILENAME)")
	f.StringVar(&flagSettings, "settings", "settings.yaml", "settings file")
	f.StringVar(&flagAdmin, "admin", "", "operator endpoint address, e.g. :8080 (off when empty)")
	f.StringVar(&flagLogLevel, "log-level", "info", "debug|info|warn|error")
}

func printPorts(w io.Writer, ports []string) {
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found. Use --port <device> or --host <address>.")
		return
	}
	fmt.Fprintln(w, "Available serial ports:")
	for _, p := range ports {
		fmt.Fprintln(w, " ", p)
	}
	fmt.Fprintln(w, "Start with --port <device> or --host <address>.")
}

// directoryPath выбирает базу справочника: пресет --db важнее DBFILENAME.
func directoryPath(preset, fromSettings, cwd string) (string, error) {
	switch preset {
	case "":
		if fromSettings == "" {
			return "", fmt.Errorf("no node directory: set DBFILENAME or --db")
		}
		return fromSettings, nil
	case "mpowered":
		return filepath.Join(cwd, "db", "nodes.db"), nil
	case "liam":
		return filepath.Join(cwd, "db", "nodes2.db"), nil
	default:
		return "", fmt.Errorf("unknown --db preset %q (want mpowered or liam)", preset)
	}
}

func run(log *slog.Logger) error {
	settings, err := config.Load(flagSettings)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	dbPath, err := directoryPath(flagDB, settings.DBFile, cwd)
	if err != nil {
		return err
	}
	// справочник открывается на каждый запрос; здесь только проверяем, что он есть
	dir, err := directory.Open(dbPath)
	if err != nil {
		return fmt.Errorf("node directory: %w", err)
	}
	dir.Close()
	settings.DBFile = dbPath

	mb, err := mailbox.Open(settings.BBSFile)
	if err != nil {
		return fmt.Errorf("mailbox: %w", err)
	}
	defer mb.Close()

	hc := fetch.NewClient(fetch.WithLogger(log.With("component", "fetch")))

	b := bot.New(log)
	b.UseSettings(settings)
	b.SetDirectory(func() (bot.Directory, error) {
		db, err := directory.Open(dbPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	})
	b.SetMailbox(mb)
	b.SetCodec(twinhex.Codec{})
	b.SetFetchers(weather.New(settings.Location, hc), tides.New(settings.TideLocation, hc))

	radio := meshclient.New(meshclient.Config{Host: flagHost, Port: flagPort}, log)
	radio.OnConnecting = func() { log.Info("connecting to radio", "host", flagHost, "port", flagPort) }
	radio.OnConnected = func() { log.Info("radio connected") }
	radio.OnDisconnected = func() { log.Warn("radio disconnected") }
	radio.OnError = func(err error) { log.Error("radio error", "err", err) }
	radio.OnPacket = b.HandlePacket
	b.SetMesh(radio)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.NewContext(ctx, log)

	if flagAdmin != "" {
		hub := admin.NewHub(log.With("component", "admin"))
		b.SetEvents(hub)
		srv := admin.NewServer(b, hub, log.With("component", "admin"))
		srv.Connected = radio.IsConnected
		go func() {
			if err := srv.Run(ctx, flagAdmin); err != nil {
				log.Error("admin server failed", "err", err)
			}
		}()
	}

	if err := radio.Connect(ctx); err != nil {
		return fmt.Errorf("connect to radio: %w", err)
	}
	defer radio.Disconnect()

	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	log.Info("running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
