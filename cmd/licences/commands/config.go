package commands

import (
	"context"
	"time"

	"erulicence/lib/configutil"
	"erulicence/lib/harvest"
	"erulicence/lib/osutil"
	"erulicence/lib/restyutil"
	"erulicence/lib/scrapers/eru"
	"erulicence/lib/store"
	"erulicence/lib/telemetry"
)

const configFile = "licences.json5"

// Config is read from licences.json5 (and licences.local.json5), flags
// override it.
type Config struct {
	LicenceUrl        string       `json:"licence_url"`
	HoldersUrl        string       `json:"holders_url"`
	UserAgent         string       `json:"user_agent"`
	TimeoutSeconds    float64      `json:"timeout_seconds"`
	RequestsPerSecond float64      `json:"requests_per_second"`
	Workers           int          `json:"workers"`
	Policy            string       `json:"policy"`
	OutputDir         string       `json:"output_dir"`
	Database          store.Config `json:"database"`
	// DumpDir receives raw http exchanges when set.
	DumpDir    string `json:"dump_dir"`
	SamplesDir string `json:"samples_dir"`
}

var defaultConfig = Config{
	LicenceUrl:        eru.DefaultLicenceUrl,
	HoldersUrl:        eru.DefaultHoldersUrl,
	UserAgent:         eru.DefaultUserAgent,
	TimeoutSeconds:    eru.DefaultTimeout.Seconds(),
	RequestsPerSecond: 5,
	Workers:           4,
	Policy:            string(harvest.PolicyAbort),
	OutputDir:         "out",
	Database:          store.Config{File: "out/licences.db"},
}

func readConfig() Config {
	cfg, err := configutil.ReadConfigWithDefaults(configFile, defaultConfig)
	if err != nil {
		osutil.Fatal("failed to read config", err)
	}
	return cfg
}

func newClient(cfg Config) *eru.Client {
	opts := eru.Options{
		LicenceUrl:        cfg.LicenceUrl,
		HoldersUrl:        cfg.HoldersUrl,
		UserAgent:         cfg.UserAgent,
		Timeout:           time.Duration(cfg.TimeoutSeconds * float64(time.Second)),
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
	if cfg.DumpDir != "" {
		out, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			osutil.Fatal("failed to create dump directory", err)
		}
		opts.Dump = out
	}

	client, err := eru.NewClient(opts, telemetry.SlogAPI{})
	if err != nil {
		osutil.Fatal("failed to create client", err)
	}
	return client
}

func openStore(ctx context.Context, cfg Config) store.Store {
	db, err := cfg.Database.OpenDB()
	if err != nil {
		osutil.Fatal("failed to open db", err)
	}
	s, err := store.NewStore(ctx, db)
	if err != nil {
		osutil.Fatal("failed to create db schema", err)
	}
	return s
}
