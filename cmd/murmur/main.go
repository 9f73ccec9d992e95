package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/murmurhq/murmur/internal/audio"
	"github.com/murmurhq/murmur/internal/config"
	"github.com/murmurhq/murmur/internal/dispatch"
	"github.com/murmurhq/murmur/internal/gateway"
	"github.com/murmurhq/murmur/internal/metrics"
	"github.com/murmurhq/murmur/internal/order"
	"github.com/murmurhq/murmur/internal/rack"
	"github.com/murmurhq/murmur/internal/sched"
	"github.com/murmurhq/murmur/internal/similarity"
	"github.com/murmurhq/murmur/internal/skill"
	"github.com/murmurhq/murmur/internal/skills/datetime"
	"github.com/murmurhq/murmur/internal/skills/monthplan"
	"github.com/murmurhq/murmur/internal/skills/script"
	"github.com/murmurhq/murmur/internal/speech"
	"github.com/murmurhq/murmur/internal/store"
	"github.com/murmurhq/murmur/internal/trigger"
	"github.com/murmurhq/murmur/internal/version"
)

func main() {
	configPath := pflag.String("config", "", "path to config file")
	showVersion := pflag.Bool("version", false, "print version and exit")
	listDevices := pflag.Bool("list-devices", false, "list audio capture devices and exit")
	filename := pflag.String("filename", "", "decode a WAV file, print its stats and exit")
	device := pflag.String("device", "", "capture device id or name substring")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		return
	}
	if *listDevices {
		devices, err := audio.ListDevices()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, d := range devices {
			fmt.Printf("%d: %s\n", d.ID, d.Name)
		}
		return
	}
	if *filename != "" {
		if err := inspectWAV(*filename); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if *device != "" {
		fmt.Fprintln(os.Stderr, audio.ErrNoCaptureBackend)
		os.Exit(1)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspectWAV(path string) error {
	src, err := audio.OpenWAV(path)
	if err != nil {
		return err
	}
	samples, err := src.Next()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d samples at %d Hz (%.2fs)\n",
		path, len(samples), src.SampleRate(),
		float64(len(samples))/float64(src.SampleRate()))
	return nil
}

func run(configPath string) error {
	_ = godotenv.Load()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log, err := newLogger(cfg.Logging.Mode)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting", zap.String("version", version.Get().Short()))

	backend, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	board := rack.NewBoard(backend, cfg.Rack.Corridors)
	workflow := order.NewWorkflow(backend, board)

	speaker := speech.NewEspeak(cfg.Speech.Voice)
	m := metrics.New()

	d := dispatch.New(similarity.NewBag(), speaker, log, m)
	d.SetTrigger(
		trigger.New(cfg.Wake.Phrase, cfg.Wake.Greeting, cfg.Wake.Threshold, workflow),
		cfg.Wake.Phrase,
	)
	d.Register(datetime.New())
	d.Register(monthplan.New())
	d.Register(order.NewAddOrder(workflow))
	d.Register(order.NewCollect(workflow))
	d.Register(order.NewPick(workflow))
	d.Register(order.NewMeetClient(workflow))

	scripted, err := script.LoadDir(cfg.Skills.ScriptDir)
	if err != nil {
		return err
	}
	for _, s := range scripted {
		d.Register(s)
	}
	log.Info("skills registered", zap.Int("scripted", len(scripted)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := sched.NewSweeper(board, m, log)
	interval, err := cfg.SweepInterval()
	if err != nil {
		return err
	}
	if err := sweeper.Start(interval); err != nil {
		return err
	}
	defer sweeper.Stop()

	gw := gateway.New(d, log, m.Handler())
	if cfg.Gateway.Listen != "" {
		mux := http.NewServeMux()
		gw.Routes(mux)
		srv := &http.Server{Addr: cfg.Gateway.Listen, Handler: mux}
		go func() {
			log.Info("gateway listening", zap.String("addr", cfg.Gateway.Listen))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("gateway stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return consoleLoop(ctx, gw, log)
}

// consoleLoop reads one utterance per line from stdin and runs it through
// the dispatcher, standing in for the microphone when no capture backend is
// available.
func consoleLoop(ctx context.Context, gw *gateway.Gateway, log *zap.Logger) error {
	queue := speech.NewQueue(8)

	go func() {
		defer queue.Close()
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := queue.Push(ctx, scanner.Text()); err != nil {
				return
			}
		}
	}()

	fmt.Println("Listening. Say the wake phrase, or press Ctrl+C to quit.")
	for {
		utterance, err := queue.Pull(ctx)
		if err != nil {
			if ctx.Err() != nil || err == speech.ErrQueueClosed {
				log.Info("shutting down")
				return nil
			}
			return err
		}
		if utterance == "" {
			continue
		}
		resp := gw.Turn(ctx, utterance)
		if resp.Err != "" {
			fmt.Printf("! %s\n", resp.Err)
			continue
		}
		for _, r := range resp.Results {
			if r.Winner {
				printResult(r)
			}
		}
	}
}

func printResult(r gateway.TurnResult) {
	if r.Kind == skill.KindError.String() {
		fmt.Printf("! %s", r.Err)
		if r.Suggestion != "" {
			fmt.Printf(" (%s)", r.Suggestion)
		}
		fmt.Println()
		return
	}
	fmt.Printf("> %s\n", r.Payload)
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(cfg *config.Config) (taskRackStore, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		r, err := store.OpenRedis(cfg.Store.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	default:
		s, err := store.Open(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}

type taskRackStore interface {
	order.TaskStore
	rack.Store
}
