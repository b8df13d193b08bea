package commands

import (
	"log/slog"
	"os"

	"erulicence/lib/export"
	"erulicence/lib/holders"
	"erulicence/lib/osutil"
	"erulicence/lib/scrapers/eru"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var holdersCmd = &cobra.Command{
	Use:   "holders",
	Short: "Fetches and inspects the rosters of licence holders.",
}

var (
	holdersBusiness *string
	holdersSamples  *string
	holdersCsv      *bool
	holdersDb       *bool
	holdersFromDb   *bool
)

func init() {
	holdersBusiness = holdersCmd.PersistentFlags().StringP("business", "b", string(eru.Electricity), "The licensed business (electricity, heat-dist, gas-trade, ...).")

	holdersSamples = holdersFetchCmd.Flags().String("samples", "", "Read the roster from this xml file instead of fetching it.")
	holdersCsv = holdersFetchCmd.Flags().Bool("csv", true, "Write the roster to <output>/holders/<business>/holders.csv.")
	holdersDb = holdersFetchCmd.Flags().Bool("db", false, "Write the roster to the database.")

	holdersFromDb = holdersCountCmd.Flags().Bool("db", false, "Count the roster in the database instead of the csv.")

	holdersCmd.AddCommand(holdersFetchCmd)
	holdersCmd.AddCommand(holdersCountCmd)
	holdersCmd.AddCommand(holdersListCmd)
	rootCmd.AddCommand(holdersCmd)
}

func parseBusiness() eru.Business {
	business, err := eru.ParseBusiness(*holdersBusiness)
	if err != nil {
		osutil.Fatal("invalid business", err)
	}
	return business
}

var holdersFetchCmd = &cobra.Command{
	Use:   "fetch [--business <business>] [--samples <roster.xml>] [--csv] [--db]",
	Short: "Downloads the roster of licence holders of a business.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		business := parseBusiness()

		var roster []holders.Holder
		var err error
		if *holdersSamples != "" {
			roster, err = readRosterFile(*holdersSamples)
		} else {
			roster, err = newClient(cfg).FetchRoster(cmd.Context(), business)
		}
		if err != nil {
			osutil.Fatal("failed to get roster", err)
		}
		slog.Info("fetched roster", "business", business, "holders", len(roster))

		if *holdersCsv {
			path := export.HoldersPath(cfg.OutputDir, string(business))
			err = export.WriteHolders(path, roster)
			if err != nil {
				osutil.Fatal("failed to write roster", err)
			}
			slog.Info("wrote roster", "path", path)
		}
		if *holdersDb {
			s := openStore(cmd.Context(), cfg)
			defer s.Close()
			err = s.SaveHolders(cmd.Context(), string(business), roster)
			if err != nil {
				osutil.Fatal("failed to save roster", err)
			}
		}
	},
}

func readRosterFile(path string) ([]holders.Holder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return holders.Parse(f)
}

var holdersCountCmd = &cobra.Command{
	Use:   "count [--business <business>] [--db]",
	Short: "Prints the number of holders in the stored roster.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		business := parseBusiness()

		count := 0
		if *holdersFromDb {
			s := openStore(cmd.Context(), cfg)
			defer s.Close()
			n, err := s.CountHolders(cmd.Context(), string(business))
			if err != nil {
				osutil.Fatal("failed to count holders", err)
			}
			count = n
		} else {
			ids, err := export.ReadHolderIDs(export.HoldersPath(cfg.OutputDir, string(business)))
			if err != nil {
				osutil.Fatal("failed to read roster", err)
			}
			count = len(ids)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Business", "Label", "Holders"})
		t.AppendRow(table.Row{business, business.Label(), count})
		t.Render()
	},
}

var holdersListCmd = &cobra.Command{
	Use:   "list [--business <business>]",
	Short: "Lists the holders stored in the database.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		business := parseBusiness()

		s := openStore(cmd.Context(), cfg)
		defer s.Close()
		roster, err := s.Holders(cmd.Context(), string(business))
		if err != nil {
			osutil.Fatal("failed to read holders", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Licence", "Name", "Municipality", "Expires"})
		for _, h := range roster {
			expires := ""
			if h.ExpiresOn != nil {
				expires = h.ExpiresOn.Format("2006-01-02")
			}
			t.AppendRow(table.Row{h.ID, deref(h.Name), deref(h.Municipality), expires})
		}
		t.Render()
	},
}
