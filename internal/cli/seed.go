package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/procsift/procsift/internal/logging"
	"github.com/procsift/procsift/internal/seeder"
)

var (
	seedCount int
	seedValue int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the store with fake orders for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
			ForRun(uuid.NewString())

		store, err := openStore(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := seeder.New(store, seedValue).Seed(cmd.Context(), seedCount); err != nil {
			return err
		}
		log.Info("seeding complete", "count", seedCount)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 20, "number of fake orders to insert")
	seedCmd.Flags().Int64Var(&seedValue, "seed", 0, "random seed (0 = random)")
}
