package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	dateprobe "github.com/always-cache/date-probe"
	"github.com/always-cache/date-probe/report"
	"github.com/always-cache/date-probe/simcache"
	"github.com/always-cache/date-probe/store"
)

type urlList []string

func (u *urlList) String() string {
	return strings.Join(*u, ",")
}

func (u *urlList) Set(value string) error {
	*u = append(*u, value)
	return nil
}

var (
	// CLI flags
	configFilenameFlag string
	urlFlags           urlList
	outFilenameFlag    string
	storeFlag          string
	labModeFlag        string
	labDBFlag          string
	http2Flag          bool
	insecureFlag       bool
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.Var(&urlFlags, "url", "URL to probe (repeatable, overrides config targets)")
	flag.StringVar(&outFilenameFlag, "out", "", "Write the JSON report to this file instead of stdout")
	flag.StringVar(&storeFlag, "store", "", "Save sessions to sqlite:<file> or leveldb:<dir> (overrides config)")
	flag.StringVar(&labModeFlag, "lab", "", "Probe a local simulated edge instead: preserve or replace")
	flag.StringVar(&labDBFlag, "lab-db", "memory", "Cache DB file name of the simulated edge (use 'memory' for an in-memory LRU)")
	flag.BoolVar(&http2Flag, "http2", false, "Negotiate HTTP/2 with the target")
	flag.BoolVar(&insecureFlag, "insecure", false, "Skip TLS certificate verification")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stderr)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// log to stderr, stdout may carry the report
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stderr})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	os.Exit(run())
}

// run probes the targets and returns the exit code.
func run() int {
	config := dateprobe.DefaultConfig()
	if configFilenameFlag != "" {
		var err error
		if config, err = dateprobe.LoadConfig(configFilenameFlag); err != nil {
			log.Fatal().Err(err).Msg("Cannot load config")
		}
	}
	if len(urlFlags) > 0 {
		config.Targets = urlFlags
	}
	if storeFlag != "" {
		config.Store = storeFlag
	}
	config.HTTP2 = config.HTTP2 || http2Flag
	config.Insecure = config.Insecure || insecureFlag

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if labModeFlag != "" {
		mode, err := simcache.ParseDateMode(labModeFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid lab mode")
		}
		labDB := labDBFlag
		if labDB == "memory" {
			labDB = ""
		}
		lab, err := simcache.StartLab(simcache.LabConfig{DateMode: mode, CacheFile: labDB, Logger: &log.Logger})
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot start lab")
		}
		defer lab.Close()
		log.Info().Str("mode", string(mode)).Str("url", lab.URL).Msg("Lab started")
		config.Targets = []string{lab.URL}
	}

	if err := config.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if len(config.Targets) == 0 {
		log.Fatal().Msg("Please specify at least one URL")
	}

	var sessionStore store.Store
	if config.Store != "" {
		var err error
		if sessionStore, err = store.Open(ctx, config.Store); err != nil {
			log.Fatal().Err(err).Str("store", config.Store).Msg("Cannot open store")
		}
		defer sessionStore.Close()
	}

	log.Info().
		Str("targets", humanize.Comma(int64(len(config.Targets)))).
		Str("steps", humanize.Comma(int64(len(config.Plan)))).
		Dur("duration", config.Plan.Total()).
		Msg("Probing")

	prober := dateprobe.NewProber(config.ProberConfig(nil, &log.Logger))
	results, runErr := dateprobe.NewRunner(prober, config.Concurrency).RunAll(ctx, config.Targets, config.Plan)
	if runErr != nil {
		log.Error().Err(runErr).Msg("Some targets were not probed")
	}

	finished := make([]*report.SessionResult, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		finished = append(finished, res)
		log.Info().
			Str("url", res.URL).
			Str("status", string(res.Status)).
			Str("dateOnCacheHit", string(res.Summary.DateOnCacheHit)).
			Str("started", humanize.Time(res.StartedAt)).
			Msg("Session finished")
		if sessionStore != nil {
			if err := sessionStore.Save(context.Background(), res); err != nil {
				log.Error().Err(err).Str("session", res.ID).Msg("Cannot save session")
			}
		}
	}

	if err := writeReport(finished); err != nil {
		log.Fatal().Err(err).Msg("Cannot write report")
	}
	if runErr != nil {
		return 1
	}
	return 0
}

func writeReport(results []*report.SessionResult) error {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if outFilenameFlag == "" {
		_, err = os.Stdout.Write(b)
		return err
	}
	if err := os.WriteFile(outFilenameFlag, b, 0644); err != nil {
		return err
	}
	log.Info().Str("file", outFilenameFlag).Str("size", humanize.Bytes(uint64(len(b)))).Msg("Report written")
	return nil
}
