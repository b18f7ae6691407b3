package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/conesteer/internal/app"
	"github.com/ayusman/conesteer/internal/config"
	"github.com/ayusman/conesteer/internal/hub"
	"github.com/ayusman/conesteer/internal/server"
	"github.com/ayusman/conesteer/internal/store"
	"github.com/ayusman/conesteer/internal/telemetry"
	"github.com/ayusman/conesteer/internal/tray"
	"github.com/ayusman/conesteer/internal/vision"
)

func main() {
	var (
		configPath string
		name       string
		width      int
		height     int
		cid        int
		verbose    bool
		outPath    string
		group      string
		dbPath     string
		addr       string
		udpAddr    string
		serialPort string
		withTray   bool
	)
	flag.StringVar(&configPath, "config", "", "Path to JSON config.")
	flag.StringVar(&name, "name", "", "Frame source: device index, video file, URL or GStreamer pipeline.")
	flag.IntVar(&width, "width", 0, "Width of the frame.")
	flag.IntVar(&height, "height", 0, "Height of the frame.")
	flag.IntVar(&cid, "cid", 0, "Session ID recorded with every run.")
	flag.BoolVar(&verbose, "verbose", false, "Show the annotated frames in a window.")
	flag.StringVar(&outPath, "out", "", "Override the result log path.")
	flag.StringVar(&group, "group", "", "Override the group tag of result lines.")
	flag.StringVar(&dbPath, "db", "", "Override the run database path.")
	flag.StringVar(&addr, "addr", "", "Override the HTTP listen address; \"off\" disables the server.")
	flag.StringVar(&udpAddr, "udp", "", "Send result lines to this UDP address (host:port).")
	flag.StringVar(&serialPort, "serial", "", "Send result lines to this serial port.")
	flag.BoolVar(&withTray, "tray", false, "Show a system tray menu.")
	flag.Usage = usage
	flag.Parse()

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("load config %q: %v", configPath, err)
		}
		cfg = loaded
	}

	if name != "" {
		cfg.Camera.Source = name
	}
	if width > 0 {
		cfg.Camera.Width = width
	}
	if height > 0 {
		cfg.Camera.Height = height
	}
	if cid != 0 {
		cfg.SessionID = cid
	}
	if verbose {
		cfg.Display.Window = true
	}
	if outPath != "" {
		cfg.Output.CSVPath = outPath
	}
	if group != "" {
		cfg.Output.Group = group
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	switch addr {
	case "":
	case "off":
		cfg.Server.Addr = ""
	default:
		cfg.Server.Addr = addr
	}
	if udpAddr != "" {
		cfg.Output.UDPAddr = udpAddr
	}
	if serialPort != "" {
		cfg.Output.SerialPort = serialPort
	}
	if withTray {
		cfg.Display.Tray = true
	}

	// Source and frame size are mandatory, from flags or the config file.
	if cfg.Camera.Source == "" || (configPath == "" && (width <= 0 || height <= 0)) {
		usage()
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println("Cone Steer - cone detection steering")

	sinks, err := openSinks(cfg.Output)
	if err != nil {
		log.Fatalf("Failed to open outputs: %v", err)
	}

	var st *store.Store
	if cfg.Store.Enabled {
		st, err = openStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
	}

	settings, err := json.Marshal(struct {
		Vision   any `json:"vision"`
		Steering any `json:"steering"`
	}{cfg.Vision, cfg.Steering})
	if err != nil {
		log.Fatalf("Failed to encode settings: %v", err)
	}

	h := hub.New()

	var viewer *vision.Viewer
	appCfg := app.Config{
		Source:          cfg.Camera.Source,
		Width:           cfg.Camera.Width,
		Height:          cfg.Camera.Height,
		FPS:             int(cfg.Camera.FPS),
		SessionID:       cfg.SessionID,
		Vision:          cfg.Vision,
		Steering:        cfg.Steering,
		Label:           cfg.Display.Label,
		FrameInterval:   cfg.Camera.FrameInterval(),
		FreezeThreshold: cfg.Camera.FreezeThreshold,
		FreezeFrames:    cfg.Camera.FreezeFrames,
		Store:           st,
		BatchSize:       cfg.Store.BatchSize,
		Settings:        string(settings),
		Sinks:           sinks,
		Hub:             h,
	}
	if cfg.Display.Window {
		viewer = vision.NewViewer(cfg.Camera.Source)
		defer viewer.Close()
		appCfg.Viewer = viewer
	}
	a := app.New(appCfg)

	var httpSrv *http.Server
	if cfg.Server.Addr != "" {
		staticDir := cfg.Server.StaticDir
		if staticDir == "" {
			staticDir = findWebDir()
		}
		if staticDir != "" {
			fmt.Printf("Serving static files from: %s\n", staticDir)
		}

		srv := server.New(server.Config{
			StaticDir: staticDir,
			Store:     st,
			Hub:       h,
			Settings:  func() any { return cfg },
		})
		httpSrv = srv.HTTPServer(cfg.Server.Addr)

		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Server failed: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Display.Tray {
		runWithTray(ctx, stop, a, cfg.Server.Addr)
	} else if err := a.Run(ctx); err != nil {
		log.Printf("Steering loop failed: %v", err)
	}

	fmt.Println("Closing the file now.")
	if err := a.Close(); err != nil {
		log.Printf("Error closing outputs: %v", err)
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}
}

// runWithTray starts the loop in the background while the tray owns the main
// thread. Quitting the tray or a signal stops the loop; a finite source
// ending closes the tray.
func runWithTray(ctx context.Context, stop context.CancelFunc, a *app.App, addr string) {
	t := tray.New()
	t.OnToggle(func(enabled bool) {
		a.SetEnabled(enabled)
		log.Printf("Steering enabled: %v", enabled)
	})
	t.OnDashboard(func() {
		if addr == "" {
			log.Println("HTTP server is disabled")
			return
		}
		log.Printf("Dashboard: http://localhost%s/", addr)
	})
	t.OnQuit(stop)
	a.OnSample(t.SetSample)

	a.Start()
	go func() {
		select {
		case <-a.Done():
		case <-ctx.Done():
		}
		t.Quit()
	}()

	t.Run()
	stop()
	a.Stop()
}

func openSinks(out config.OutputConfig) ([]telemetry.Sink, error) {
	var sinks []telemetry.Sink

	var echo io.Writer
	if out.Echo {
		echo = os.Stdout
	}
	if out.CSVPath != "" {
		csv, err := telemetry.NewCSVSink(out.CSVPath, out.Group, echo)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csv)
	}

	if out.UDPAddr != "" {
		udp, err := telemetry.NewUDPSink(out.UDPAddr, out.Group)
		if err != nil {
			telemetry.MultiSink(sinks).Close()
			return nil, err
		}
		sinks = append(sinks, udp)
	}

	if out.SerialPort != "" {
		port, err := telemetry.NewSerialSink(out.SerialPort, out.Group, out.Serial)
		if err != nil {
			telemetry.MultiSink(sinks).Close()
			return nil, err
		}
		sinks = append(sinks, port)
	}

	return sinks, nil
}

// openStore opens the run database, defaulting to ~/.conesteer/conesteer.db.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dbDir := filepath.Join(homeDir, ".conesteer")
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		path = filepath.Join(dbDir, "conesteer.db")
	}
	return store.New(path)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.conesteer/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".conesteer", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func usage() {
	prog := filepath.Base(os.Args[0])
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "%s reads frames from a camera, video file or stream and steers between blue and yellow cones.\n", prog)
	fmt.Fprintf(w, "Usage:   %s --name=<frame source> --width=<w> --height=<h> [--cid=<session>] [--verbose]\n", prog)
	fmt.Fprintf(w, "         --name:   device index, video file, URL or GStreamer pipeline\n")
	fmt.Fprintf(w, "         --width:  width of the frame\n")
	fmt.Fprintf(w, "         --height: height of the frame\n")
	fmt.Fprintf(w, "         --cid:    session ID recorded with every run\n")
	fmt.Fprintf(w, "Example: %s --cid=253 --name=0 --width=640 --height=480 --verbose\n\n", prog)
	fmt.Fprintf(w, "All options:\n")
	flag.PrintDefaults()
}
