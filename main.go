package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/footfall/internal/api"
	"github.com/banshee-data/footfall/internal/command"
	"github.com/banshee-data/footfall/internal/config"
	"github.com/banshee-data/footfall/internal/counter"
	"github.com/banshee-data/footfall/internal/counterstore"
	"github.com/banshee-data/footfall/internal/db"
	"github.com/banshee-data/footfall/internal/sensor"
	"github.com/banshee-data/footfall/internal/serialmux"
	"github.com/banshee-data/footfall/internal/timeutil"
	"github.com/banshee-data/footfall/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Run in dev mode with scripted sensor input")
	listen      = flag.String("listen", ":8080", "Listen address")
	configPath  = flag.String("config", "", "Path to thresholds JSON config (defaults apply if empty)")
	serialPath  = flag.String("serial", "/dev/ttyAMA0", "Serial port for the command channel")
	counterFile = flag.String("counter-file", "counter.dat", "Path to the persisted counter block")
	dbFile      = flag.String("db", "footfall.db", "Path to the crossings journal database")
	echoPin     = flag.String("echo-pin", "GPIO24", "GPIO pin wired to the sensor echo line")
	triggerPin  = flag.String("trigger-pin", "GPIO23", "GPIO pin wired to the sensor trigger line")
	fixtures    = flag.String("fixtures", "fixtures.txt", "Serial fixture file replayed in dev mode")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// devScript builds a scripted echo sequence: a stable doorway baseline with a
// crossing every few seconds, so dev mode exercises the full detection path.
func devScript() []time.Duration {
	baseline := sensor.CentimetersToDuration(120)
	person := sensor.CentimetersToDuration(60)
	script := make([]time.Duration, 0, 240)
	for i := 0; i < 200; i++ {
		script = append(script, baseline)
	}
	for i := 0; i < 20; i++ {
		script = append(script, person)
	}
	for i := 0; i < 20; i++ {
		script = append(script, baseline)
	}
	return script
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("footfall %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var cfg *config.Thresholds
	if *configPath != "" {
		var err error
		cfg, err = config.LoadThresholds(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	} else {
		cfg = config.EmptyThresholds()
	}

	var echo sensor.EchoMeasurer
	var m serialmux.Interface
	if *devMode {
		echo = sensor.NewScriptedEcho(devScript()...)
		data, err := os.ReadFile(*fixtures)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		m = serialmux.NewMockSerialMux(data, 2*time.Second)
	} else {
		var err error
		echo, err = sensor.NewHCSR04(*echoPin, *triggerPin, cfg.GetEchoTimeout())
		if err != nil {
			log.Fatalf("failed to open range sensor: %v", err)
		}
		m, err = serialmux.NewRealSerialMux(*serialPath, serialmux.DefaultPortOptions())
		if err != nil {
			log.Fatalf("failed to open serial port: %v", err)
		}
	}
	defer m.Close()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	store := counterstore.New(*counterFile)
	engine, err := counter.NewEngine(sensor.NewSampler(echo, cfg), store, database, cfg, timeutil.RealClock{})
	if err != nil {
		log.Fatalf("failed to build counter engine: %v", err)
	}

	// Create a wait group for the HTTP server, serial monitor, command
	// handler, and engine routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the counting loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("counter engine stopped: %v", err)
		}
		log.Print("engine routine terminated")
	}()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to the serial port lines and pass them to the command
	// handler, which replies on the same port
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler := command.NewHandler(engine, m.SendLine)
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		for {
			select {
			case line := <-c:
				handler.Handle(line)
			case <-ctx.Done():
				log.Print("command routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach db admin routes: %v", err)
		}
		m.AttachAdminRoutes(mux)

		// mount the counter API
		apiMux := api.NewServer(engine, database).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: h,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
