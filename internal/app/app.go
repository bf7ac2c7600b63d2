package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/adapters/portal"
	"github.com/lcalzada-xor/wkarma/internal/adapters/reporting"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/driver"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/handshake"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/hopping"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/injection"
	"github.com/lcalzada-xor/wkarma/internal/adapters/storage"
	webserver "github.com/lcalzada-xor/wkarma/internal/adapters/web/server"
	"github.com/lcalzada-xor/wkarma/internal/config"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
	"github.com/lcalzada-xor/wkarma/internal/core/services/engine"
	grpcserver "github.com/lcalzada-xor/wkarma/internal/core/services/grpc"
	"github.com/lcalzada-xor/wkarma/internal/mock"
	"github.com/lcalzada-xor/wkarma/internal/telemetry"
)

const (
	mockClients     = 24
	mockAPs         = 6
	mockStep        = 100 * time.Millisecond
	mockFrameLimit  = 512
	healthSyncEvery = time.Second
)

// Application holds the core components of the application.
// It acts as the Facade for the entire system, wiring the radio, the engine
// and the operator surfaces together.
type Application struct {
	Config     *config.Config
	Engine     *engine.Engine
	Portal     *portal.Server
	Store      *storage.SQLiteAdapter
	WebServer  *webserver.Server
	GrpcServer *grpcserver.HealthServer
	Simulator  *mock.DataGenerator

	radio      ports.Radio
	recorder   *handshake.Recorder
	dictionary io.Closer
	logger     *slog.Logger

	// Internal State
	monitorInterface string
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
		logger: slog.Default(),
	}

	if err := app.bootstrap(); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation & Infrastructure
	telemetry.InitMetrics()

	store, err := app.initStorage()
	if err != nil {
		return err
	}
	app.Store = store

	hs, err := app.initHandshakes()
	if err != nil {
		return err
	}

	dict, err := app.initDictionary()
	if err != nil {
		return err
	}

	// 2. Radio
	if err := app.initNetworkDriver(); err != nil {
		return err
	}
	if err := app.initRadio(); err != nil {
		return err
	}

	// 3. Engine
	app.Portal = portal.NewServer(portal.Options{
		ListenHost: app.Config.PortalHost,
		Logger:     app.logger,
	})

	app.Engine = engine.New(app.radio, app.Portal, store, hs, dict, engine.Options{
		ScanChannels:      app.Config.ScanChannels,
		BroadcastChannels: app.Config.BroadcastChannels,
		Seed:              app.Config.Seed,
		Logger:            app.logger,
	})

	// 4. Servers
	app.initServers()
	return nil
}

func (app *Application) initStorage() (*storage.SQLiteAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init credential storage: %w", err)
	}
	return store, nil
}

// initHandshakes returns a nil interface, not a typed nil, when capture is off.
func (app *Application) initHandshakes() (ports.HandshakeWriter, error) {
	if app.Config.HandshakeDir == "" {
		log.Println("Handshake capture disabled")
		return nil, nil
	}
	rec, err := handshake.NewRecorder(app.Config.HandshakeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init handshake recorder: %w", err)
	}
	app.recorder = rec
	return rec, nil
}

func (app *Application) initDictionary() (ports.SSIDDictionary, error) {
	path := app.Config.DictionaryPath
	if path == "" {
		return nil, nil
	}

	if !config.IsSQLDictionary(path) {
		dict, err := storage.OpenFileDictionary(path)
		if err != nil {
			return nil, err
		}
		app.dictionary = dict
		log.Printf("Loaded SSID dictionary %s (%d entries)", path, dict.Len())
		return dict, nil
	}

	dict, err := storage.OpenSQLDictionary(path)
	if err != nil {
		return nil, err
	}
	app.dictionary = dict

	if src := app.Config.ImportDictionary; src != "" {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("open dictionary import: %w", err)
		}
		added, err := dict.Import(context.Background(), f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", src, err)
		}
		log.Printf("Imported %d SSIDs from %s", added, src)
	}

	if n, err := dict.Len(); err == nil {
		log.Printf("Loaded SSID dictionary %s (%d entries)", path, n)
	}
	return dict, nil
}

func (app *Application) initNetworkDriver() error {
	if app.Config.MockMode {
		log.Println("Skipping network driver initialization (Mock Mode)")
		return nil
	}

	log.Println("Stopping conflicting network services...")
	if err := driver.KillConflictingProcesses(); err != nil {
		log.Printf("Warning: Failed to stop conflicting processes: %v", err)
	}

	iface := app.Config.Interface
	if err := driver.EnableMonitorMode(iface); err != nil {
		return fmt.Errorf("failed to enable monitor mode on %s: %v", iface, err)
	}
	app.monitorInterface = iface

	time.Sleep(2 * time.Second) // Settle time
	return nil
}

func (app *Application) initRadio() error {
	if app.Config.MockMode {
		radio := injection.NewMockRadio()
		radio.Limit = mockFrameLimit
		app.radio = radio
		app.Simulator = mock.NewDataGenerator(radio, app.Config.Seed, mockClients, mockAPs)
		log.Println("Mock Mode Active: Virtualizing network environment")
		return nil
	}

	tuner := hopping.NewTuner(app.Config.Interface, nil)
	radio, err := sniffer.NewRadio(app.Config.Interface, tuner)
	if err != nil {
		return fmt.Errorf("failed to open radio on %s: %w", app.Config.Interface, err)
	}
	app.radio = radio
	return nil
}

func (app *Application) initServers() {
	app.WebServer = webserver.NewServer(webserver.Options{
		Addr:         app.Config.Addr,
		Interface:    app.ifaceLabel(),
		Operator:     app.Config.Operator,
		PasswordHash: []byte(app.Config.PasswordHash),
		PushInterval: app.Config.PushInterval,
	}, app.Engine, app.Store, reporting.NewPDFExporter())

	if app.Config.PasswordHash == "" {
		log.Println("Warning: no operator password hash configured; the API will refuse all requests")
	}

	app.GrpcServer = grpcserver.NewGrpcServer(app.Engine)
}

func (app *Application) ifaceLabel() string {
	if app.Config.MockMode {
		return "mock"
	}
	return app.Config.Interface
}

// Run starts the application components and manages their execution
// lifecycle. It returns nil on cancellation or after an exit command.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting wkarma components...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 3)
	engineDone := make(chan error, 1)

	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	go func() {
		log.Printf("gRPC health server listening on %s", app.Config.GRPCAddr)
		lis, err := net.Listen("tcp", app.Config.GRPCAddr)
		if err != nil {
			errChan <- fmt.Errorf("grpc listen error: %w", err)
			return
		}

		go func() {
			<-ctx.Done()
			app.GrpcServer.GracefulStop()
		}()

		if err := app.GrpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("grpc server error: %w", err)
		}
	}()
	go app.GrpcServer.Watch(ctx, healthSyncEvery)

	if r, ok := app.radio.(*sniffer.Radio); ok {
		r.Start()
	}
	if app.Simulator != nil {
		go app.Simulator.Run(ctx, mockStep)
	}

	go func() {
		engineDone <- app.Engine.Run(ctx, app.Config.TickInterval)
	}()

	slog.Info("wkarma ready. Press Ctrl+C to terminate.")

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Termination signal received")
		<-engineDone
	case err := <-engineDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		} else {
			slog.Info("Engine exited")
		}
	case err := <-errChan:
		runErr = err
		cancel()
		<-engineDone
	}

	cancel()
	app.cleanup()
	return runErr
}

func (app *Application) cleanup() {
	slog.Info("Cleaning up resources...")

	if c, ok := app.radio.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("Error closing radio: %v", err)
		}
	}
	if app.Portal != nil {
		app.Portal.Close()
	}
	if app.recorder != nil {
		app.recorder.Close()
	}
	if app.dictionary != nil {
		app.dictionary.Close()
	}
	if app.Store != nil {
		app.Store.Close()
	}
}

// RestoreNetwork reverts changes made to network interfaces and services.
func (app *Application) RestoreNetwork() {
	if app.Config.MockMode {
		return
	}

	log.Println("Restoring networking infrastructure...")
	if err := driver.RestoreNetworkServices(); err != nil {
		log.Printf("Error restoring system services: %v", err)
	}

	if app.monitorInterface != "" {
		driver.DisableMonitorMode(app.monitorInterface)
	}
}
