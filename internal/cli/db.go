package cli

import (
	"fmt"
	"os"

	"github.com/lucasnoah/gatewright/internal/db"
	"github.com/lucasnoah/gatewright/internal/store"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "History database management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply history database schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		d, cleanup, err := openDB(cwd)
		if err != nil {
			return err
		}
		defer cleanup()
		fmt.Fprintf(cmd.OutOrStdout(), "History database migrated: %s\n", d.Path())
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the history database (destructive!)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		d, cleanup, err := openDB(cwd)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := d.Reset(); err != nil {
			return fmt.Errorf("reset database: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "History database reset: %s\n", d.Path())
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
}

// openDB opens and migrates the project-local history DB, returning
// it with a cleanup func.
func openDB(cwd string) (*db.DB, func(), error) {
	st := store.New(cwd)
	if err := st.EnsureStateDir(); err != nil {
		return nil, nil, err
	}
	d, err := db.Open(st.HistoryDBPath())
	if err != nil {
		return nil, nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}
