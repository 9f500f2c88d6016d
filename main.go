package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/isesword/hudi-go-bridge/bridge"
	"github.com/isesword/hudi-go-bridge/hudi"
	"github.com/isesword/hudi-go-bridge/internal/config"
	"github.com/isesword/hudi-go-bridge/internal/logger"
)

type Options struct {
	// Optional YAML config file.
	ConfigFile string
	// Producer: native, sample, ipc, parquet or table.
	Source string
	// File or table base URI to read.
	Path string
	// Native bridge library.
	LibPath string
	// Read options as key=value.
	Options []string
	// zerolog level name.
	LogLevel string
	// Prometheus textfile to write on exit.
	MetricsFile string
	// Read through the future-returning API.
	Async bool
}

func main() {
	app := kingpin.New("hudi-read", "Read a Hudi file slice through the Arrow C data interface and print it.")
	opts := Options{}
	if err := (&opts).BindFlags(app); err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to parse flags")
	}

	os.Exit(run(opts))
}

func (o *Options) BindFlags(app *kingpin.Application) error {
	app.Flag("config", "YAML config file.").
		Default("").StringVar(&o.ConfigFile)
	app.Flag("source", "Producer to call: native, sample, ipc, parquet or table.").
		Default("").StringVar(&o.Source)
	app.Flag("path", "File or table base URI to read.").
		Default("").StringVar(&o.Path)
	app.Flag("lib", "Path to the native bridge library.").
		Default("").StringVar(&o.LibPath)
	app.Flag("option", "Read option as key=value. Repeatable.").
		StringsVar(&o.Options)
	app.Flag("log-level", "Log level (debug, info, warn, error).").
		Default("").StringVar(&o.LogLevel)
	app.Flag("metrics-file", "Write Prometheus metrics to this file on exit.").
		Default("").StringVar(&o.MetricsFile)
	app.Flag("async", "Read through the async API.").BoolVar(&o.Async)

	_, err := app.Parse(os.Args[1:])
	if err != nil {
		return err
	}
	return nil
}

// apply overlays the flags that were given on cfg.
func (o *Options) apply(cfg *config.Config) error {
	if o.Source != "" {
		cfg.Source = o.Source
	}
	if o.Path != "" {
		cfg.Path = o.Path
	}
	if o.LibPath != "" {
		cfg.LibPath = o.LibPath
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.MetricsFile != "" {
		cfg.MetricsFile = o.MetricsFile
	}
	if o.Async {
		cfg.Async = true
	}
	opts, err := config.ParseOptions(o.Options)
	if err != nil {
		return err
	}
	cfg.MergeOptions(opts)
	return nil
}

func run(opts Options) int {
	cfg, err := config.Load(opts.ConfigFile)
	if err == nil {
		err = opts.apply(&cfg)
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to load config")
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	logger.SetLogLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer, closeFn, err := newProducer(cfg)
	if err != nil {
		logger.Log.Error().Err(err).Str("source", cfg.Source).Msg("failed to set up producer")
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	defer closeFn()

	var metrics *hudi.Metrics
	if cfg.MetricsFile != "" {
		metrics = hudi.NewMetrics()
	}

	r := hudi.Runner{
		Producer: producer,
		Metrics:  metrics,
		Async:    cfg.Async,
	}
	code := r.Run(ctx)

	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Log.Warn().Err(err).Msg("failed to write metrics")
	}
	return code
}

func newProducer(cfg config.Config) (hudi.Producer, func(), error) {
	nop := func() {}

	switch cfg.Source {
	case config.SourceSample:
		return hudi.SampleProducer{}, nop, nil

	case config.SourceIPC:
		return hudi.IPCFileProducer{Path: cfg.Path}, nop, nil

	case config.SourceParquet:
		p := hudi.ParquetFileProducer{Path: cfg.Path}
		if v, ok := cfg.Options[hudi.OptionBatchSize]; ok {
			n, err := hudi.ParseBatchSize(v)
			if err != nil {
				return nil, nop, err
			}
			p.BatchSize = n
		}
		return p, nop, nil

	case config.SourceTable:
		var options []hudi.Option
		for _, kv := range cfg.OptionPairs() {
			options = append(options, hudi.Option{Key: kv[0], Value: kv[1]})
		}
		if cfg.Async {
			return hudi.SnapshotProducer{BaseURI: cfg.Path, Options: options}, nop, nil
		}
		t, err := hudi.NewTable(cfg.Path, options)
		if err != nil {
			return nil, nop, err
		}
		return t, nop, nil

	case config.SourceNative:
		brg, err := bridge.LoadBridge(cfg.LibPath)
		if err != nil {
			return nil, nop, errors.Wrap(err, "failed to load bridge")
		}
		if v, err := brg.EngineVersion(); err == nil {
			logger.Log.Info().Uint32("abi", brg.AbiVersion()).Str("engine", v).Msg("loaded native bridge")
		}
		closeFn := func() {
			if err := brg.Close(); err != nil {
				logger.Log.Warn().Err(err).Msg("failed to close bridge")
			}
		}
		return hudi.NativeProducer{Reader: brg, Options: cfg.Options}, closeFn, nil
	}
	return nil, nop, errors.Wrapf(hudi.ErrUnsupportedSource, "%q", cfg.Source)
}
