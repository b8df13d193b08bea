package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"erulicence/lib/export"
	"erulicence/lib/harvest"
	"erulicence/lib/licence"
	"erulicence/lib/osutil"
	"erulicence/lib/scrapers/eru"
	"erulicence/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var licencesCmd = &cobra.Command{
	Use:   "licences",
	Short: "Scrapes and inspects licence detail pages.",
}

var (
	scrapeBusiness *string
	scrapeStart    *int
	scrapeEnd      *int
	scrapeSamples  *string
	scrapeCsv      *bool
	scrapeDb       *bool
	scrapeRosterDb *bool
	scrapePolicy   *string
	scrapeWorkers  *int

	showBusiness *string
	showFile     *string
)

func init() {
	flags := scrapeCmd.Flags()
	scrapeBusiness = flags.StringP("business", "b", string(eru.Electricity), "The licensed business (electricity, heat-dist, gas-trade, ...).")
	scrapeStart = flags.Int("start", 0, "Index of the first licence of the roster to scrape.")
	scrapeEnd = flags.Int("end", 0, "Index after the last licence of the roster to scrape, 0 means the end of the roster.")
	scrapeSamples = flags.String("samples", "", "Read licence pages from <dir>/<licence id>.html instead of fetching them.")
	scrapeCsv = flags.Bool("csv", true, "Append the licences to the csv files in <output>/licences/<business>.")
	scrapeDb = flags.Bool("db", false, "Save the licences to the database.")
	scrapeRosterDb = flags.Bool("roster-db", false, "Read the roster from the database instead of the holders csv.")
	scrapePolicy = flags.String("policy", "", "What to do when a licence fails: abort or skip.")
	scrapeWorkers = flags.Int("workers", 0, "Number of licences fetched concurrently.")

	showBusiness = showCmd.Flags().StringP("business", "b", string(eru.Electricity), "The licensed business of the licence.")
	showFile = showCmd.Flags().String("file", "", "Parse a saved licence page instead of fetching it.")

	licencesCmd.AddCommand(scrapeCmd)
	licencesCmd.AddCommand(showCmd)
	rootCmd.AddCommand(licencesCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--business <business>] [--start <n>] [--end <m>] [--samples <dir>] [--csv] [--db] [--policy skip|abort] [--workers <n>]",
	Short: "Scrapes the licences of the holder roster.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := readConfig()

		business, err := eru.ParseBusiness(*scrapeBusiness)
		if err != nil {
			osutil.Fatal("invalid business", err)
		}
		if cmd.Flags().Changed("policy") {
			cfg.Policy = *scrapePolicy
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = *scrapeWorkers
		}
		if cmd.Flags().Changed("samples") {
			cfg.SamplesDir = *scrapeSamples
		}
		policy, err := harvest.ParsePolicy(cfg.Policy)
		if err != nil {
			osutil.Fatal("invalid policy", err)
		}

		var ids []string
		if *scrapeRosterDb {
			s := openStore(ctx, cfg)
			ids, err = s.LicenceIDs(ctx, string(business))
			s.Close()
		} else {
			ids, err = export.ReadHolderIDs(export.HoldersPath(cfg.OutputDir, string(business)))
		}
		if err != nil {
			osutil.Fatal("failed to read roster, run `holders fetch` first", err)
		}

		var fetcher eru.Fetcher
		if cfg.SamplesDir != "" {
			fetcher = eru.SampleFetcher{Dir: cfg.SamplesDir}
		} else {
			fetcher = newClient(cfg)
		}

		telemetry.InstrumentPerfStats(ctx, 10*time.Second)

		t1 := time.Now()
		result, err := harvest.Run(ctx, harvest.Options{
			IDs:      ids,
			Start:    *scrapeStart,
			End:      *scrapeEnd,
			Business: business.Label(),
			Fetcher:  fetcher,
			Workers:  cfg.Workers,
			Policy:   policy,
		})
		if err != nil {
			// keep what was parsed before the failure, a rerun resumes with --start
			writeLicences(context.WithoutCancel(ctx), cfg, business, result.Licences)
			osutil.Fatal("harvest failed", err)
		}
		slog.Info("scraping time", "seconds", time.Since(t1).Seconds())

		writeLicences(ctx, cfg, business, result.Licences)

		if len(result.Failures) > 0 {
			errs := make([]error, len(result.Failures))
			for i, f := range result.Failures {
				errs[i] = fmt.Errorf("#%d %s: %w", f.Index, f.LicenceID, f.Err)
			}
			slog.Warn("some licences were skipped", "count", len(errs), "err", errors.Join(errs...))
		}
	},
}

func writeLicences(ctx context.Context, cfg Config, business eru.Business, lics []licence.Licence) {
	if len(lics) == 0 {
		return
	}
	if *scrapeCsv {
		dir := export.LicencesDir(cfg.OutputDir, string(business))
		err := export.AppendLicences(dir, lics)
		if err != nil {
			osutil.Fatal("failed to write csv", err)
		}
		slog.Info("wrote licences", "dir", dir, "licences", len(lics))
	}
	if *scrapeDb {
		s := openStore(ctx, cfg)
		defer s.Close()
		err := s.SaveLicences(ctx, lics)
		if err != nil {
			osutil.Fatal("failed to save licences", err)
		}
	}
}

var showCmd = &cobra.Command{
	Use:   "show <licence id> | --file <page.html>",
	Short: "Parses a licence page and prints it.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		business, err := eru.ParseBusiness(*showBusiness)
		if err != nil {
			osutil.Fatal("invalid business", err)
		}

		var lic licence.Licence
		switch {
		case *showFile != "":
			f, err := os.Open(*showFile)
			if err != nil {
				osutil.Fatal("failed to open page", err)
			}
			defer f.Close()
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			lic, err = licence.ParsePageHTML(f, business.Label(), id)
			if err != nil {
				osutil.Fatal("failed to parse licence", err)
			}
		case len(args) == 1:
			doc, err := newClient(readConfig()).FetchLicence(cmd.Context(), args[0])
			if err != nil {
				osutil.Fatal("failed to fetch licence", err)
			}
			lic, err = licence.ParsePage(doc.Selection, business.Label(), args[0])
			if err != nil {
				osutil.Fatal("failed to parse licence", err)
			}
		default:
			osutil.Fatal("nothing to show", errors.New("pass a licence id or --file"))
		}

		renderLicence(lic)
	},
}

func renderLicence(lic licence.Licence) {
	t := newTable()
	t.SetTitle("Licence %s (%s)", lic.ID, lic.Business)
	t.AppendHeader(table.Row{"Kind", "Technology", "MW"})
	for _, c := range lic.Capacities {
		t.AppendRow(table.Row{c.Kind, c.Technology, c.Megawatts})
	}
	t.AppendFooter(table.Row{"", "Sources", deref(lic.Sources)})
	t.Render()

	for _, f := range lic.Facilities {
		t := newTable()
		t.SetTitle("Facility %d: %s", f.ID, f.Name)
		t.AppendHeader(table.Row{"Kind", "Technology", "MW"})
		for _, c := range f.Capacities {
			t.AppendRow(table.Row{c.Kind, c.Technology, c.Megawatts})
		}
		t.AppendFooter(table.Row{"", "Sources", deref(f.Sources)})

		if f.Address != nil {
			t.SetCaption("%s %s, %s %s", f.Address.PostalCode, f.Address.Municipality, f.Address.Street, deref(f.Address.HouseNumber))
		}
		t.Render()
	}
}
