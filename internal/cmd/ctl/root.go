// Package ctl implements the sokonictl operator command tree. It works
// against the server's database file directly, so commands run offline
// and see exactly what the API sees.
package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sokonihq/sokoni/internal/storage/sqlite"
)

// Version is the sokonictl release tag.
const Version = "0.1.0"

const (
	defaultDBPath  = "data/sokoni.db"
	configFileName = ".sokonictl"

	// cfgKeyDBPath is the db path key inside the config file.
	cfgKeyDBPath = "db_path"
)

// options carries global flag state shared by all subcommands.
type options struct {
	configFile string
	dbPath     string
	jsonOut    bool

	// resolvedDB is the db path after flag/config/env resolution.
	resolvedDB string
}

// NewRootCmd creates the top-level sokonictl command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "sokonictl",
		Short:         "Operator tool for a Sokoni marketplace database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			resolved, err := resolveDBPath(opts.dbPath, opts.configFile)
			if err != nil {
				return err
			}
			opts.resolvedDB = resolved
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ~/.sokonictl.yaml)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to the SQLite database file (overrides config)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "output as JSON")

	root.AddCommand(newUsersCmd(opts))
	root.AddCommand(newRequestsCmd(opts))
	root.AddCommand(newBidsCmd(opts))
	root.AddCommand(newEscrowCmd(opts))
	root.AddCommand(newCategoriesCmd(opts))
	root.AddCommand(newSeedCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

// resolveDBPath picks the database file: --db flag, then the config
// file's db_path, then SOKONI_DB_PATH, then the default.
func resolveDBPath(flagValue, configFile string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	v := viper.New()
	v.SetDefault(cfgKeyDBPath, defaultDBPath)
	if err := v.BindEnv(cfgKeyDBPath, "SOKONI_DB_PATH"); err != nil {
		return "", fmt.Errorf("bind env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config: %w", err)
		}
		return v.GetString(cfgKeyDBPath), nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(home)
		if err := v.ReadInConfig(); err != nil {
			// A missing default config file is not an error.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return "", fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v.GetString(cfgKeyDBPath), nil
}

// openStore opens the resolved database. The file must already exist:
// the CLI inspects a server's data, it does not create databases as a
// side effect of a mistyped path.
func (o *options) openStore() (*sqlite.Store, error) {
	path := o.resolvedDB
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", filepath.Clean(path), err)
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

// createStore opens the resolved database, creating it (and its
// directory) when absent. Mutating commands like seed use this.
func (o *options) createStore() (*sqlite.Store, error) {
	path := o.resolvedDB
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// formatCents renders a cent amount as dollars for table output.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// Execute runs the root command.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
