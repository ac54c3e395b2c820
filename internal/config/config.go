// Package config wires the process entrypoint: flags, environment variables
// and defaults, in the shape Seednode-partybox's main.go/config.go uses
// (a cobra command whose flags are bound through viper with an env prefix).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const releaseVersion = "0.1.0"

// Config holds everything the server needs to boot.
type Config struct {
	Bind          string
	Port          int
	DatabasePath  string
	RSAKeyPath    string
	SweepInterval string // parsed to time.Duration by caller; registered with fs.StringVar below
	Verbose       bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.DatabasePath == "" {
		return errors.New("--db must not be empty")
	}
	return nil
}

// NewCommand builds the root cobra command. run is invoked once flags are
// parsed and validated, receiving the final Config.
func NewCommand(run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	cfg := &Config{}
	v := viper.New()
	v.SetEnvPrefix("KASUPEL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "kasupel-server",
		Short:         "Kasupel — chess matchmaking and play server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: KASUPEL_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: KASUPEL_PORT)")
	fs.StringVar(&cfg.DatabasePath, "db", "kasupel.db", "path to the sqlite database file (env: KASUPEL_DB)")
	fs.StringVar(&cfg.RSAKeyPath, "rsa-key", "rsa_key.pem", "path to the RSA private key used to decrypt [E] request bodies (env: KASUPEL_RSA_KEY)")
	fs.StringVar(&cfg.SweepInterval, "sweep-interval", "1s", "interval between clock-timeout sweeps over live games (env: KASUPEL_SWEEP_INTERVAL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: KASUPEL_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceUsage = true

	return cmd
}
