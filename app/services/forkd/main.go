package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/forkchain/app/services/forkd/handlers"
	"github.com/ardanlabs/forkchain/foundation/chain/fork"
	"github.com/ardanlabs/forkchain/foundation/chain/header"
	"github.com/ardanlabs/forkchain/foundation/chain/settings"
	"github.com/ardanlabs/forkchain/foundation/chain/state"
	"github.com/ardanlabs/forkchain/foundation/chain/verifier"
	"github.com/ardanlabs/forkchain/foundation/events"
	"github.com/ardanlabs/forkchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags
// in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("FORKD")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Chain struct {
			SettingsPath string        `conf:"default:zblock/settings.json"`
			BranchLength int           `conf:"default:2"`
			MineTimeout  time.Duration `conf:"default:30s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "FORKD"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Chain Support

	// Load the settings file that carries the threshold and fork height
	// parameters for the chain.
	stg, err := settings.LoadFromFile(cfg.Chain.SettingsPath)
	if err != nil {
		return fmt.Errorf("unable to load chain settings: %w", err)
	}

	// The chain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the chain node and manages the in-memory
	// canonical chain and provides an API for application support.
	st, err := state.New(state.Config{
		Settings:  stg,
		EvHandler: ev,
	})
	if err != nil {
		return err
	}

	// =========================================================================
	// Contentious Fork Demonstration

	// Mine the common prefix and the two political branches up front so the
	// service has a fork to serve and verify.
	builder := fork.NewBuilder(fork.Config{
		Miner:        st.Miner(),
		ForkHeight:   stg.ForkHeight,
		BranchLength: cfg.Chain.BranchLength,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.MineTimeout)
	defer cancel()

	forks, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("unable to mine contentious forks: %w", err)
	}

	// Log the verification matrix for the three rules. Each branch is
	// structurally valid while each political rule accepts exactly one.
	vrf := st.Verifier()
	for _, rule := range []verifier.Rule{verifier.Structural, verifier.EvenAfterFork, verifier.OddAfterFork} {
		evenErr := vrf.Validate(forks.Genesis, concat(forks.Prefix, forks.Even), rule)
		oddErr := vrf.Validate(forks.Genesis, concat(forks.Prefix, forks.Odd), rule)
		log.Infow("startup", "status", "fork verification", "rule", rule.String(), "even_branch_valid", evenErr == nil, "odd_branch_valid", oddErr == nil)
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the
	// debug related endpoints. This includes the standard library endpoints.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, handlers.DebugMux()); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Log:   log,
		State: st,
		Forks: forks,
		Evts:  evts,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this
	// error.
	serverErrors := make(chan error, 1)

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Make a channel to listen for an interrupt or terminate signal from
	// the OS. Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// concat joins a prefix and a branch suffix into one full chain without
// sharing backing arrays.
func concat(prefix, suffix []header.Header) []header.Header {
	chain := make([]header.Header, 0, len(prefix)+len(suffix))
	chain = append(chain, prefix...)
	chain = append(chain, suffix...)

	return chain
}
