package main

import (
	"fmt"
	"os"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app carries state shared between the root command and its subcommands.
type app struct {
	envFile    string
	configPath string
	logLevel   string
	cfg        *config.Cms
}

const configPathEnv = "CMS_CONFIG"

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cms",
		Short:         "Count-min sketch with exponential decay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd.Flags())
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "envfile", "", "environment file to load before reading the config")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a yaml or toml config file, defaults to $"+configPathEnv)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "overrides cms.logs.level")

	root.AddCommand(newCountCmd(a), newServeCmd(a))

	return root
}

// configure loads the config (or defaults), applies flag overrides and sets up the logger.
func (a *app) configure(flags *pflag.FlagSet) (err error) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if a.envFile != "" {
		if err = godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", a.envFile, err)
		}
	}
	if a.configPath == "" {
		a.configPath = os.Getenv(configPathEnv)
	}

	if a.configPath == "" {
		a.cfg = config.Default()
	} else {
		log.Info().Msgf("[cms] loading config by path %s", a.configPath)
		if a.cfg, err = config.LoadConfig(a.configPath); err != nil {
			return err
		}
	}

	if flags.Changed("log-level") {
		a.cfg.Cms.Logs.Level = a.logLevel
	}
	if err = overrideSketch(flags, &a.cfg.Cms.Sketch); err != nil {
		return err
	}
	if err = a.cfg.Validate(); err != nil {
		return err
	}

	if err = setupLogger(a.cfg); err != nil {
		return err
	}

	log.Debug().Msgf("[config] loaded=%+v", a.cfg)

	return nil
}

// addSketchFlags registers the flags which override the cms.sketch section. Their defaults
// are the ones config.Default uses, so --help shows what applies without a config file.
func addSketchFlags(flags *pflag.FlagSet) {
	def := config.Default().Cms.Sketch

	flags.Float64("epsilon", def.Epsilon, "relative error bound")
	flags.Float64("delta", def.Delta, "confidence")
	flags.Float64("decay", def.DecayRatio, fmt.Sprintf("decay ratio applied per call, 0 disables decay (e.g. %v)", config.RecommendedDecayRatio))
	flags.String("hash", def.Hash, "hash function: xxh3, xxhash, metro or fnv1")
	flags.Uint64("seed", def.Seed, "hash seed")
	flags.String("overflow", def.Overflow, "overflow policy: saturate or fail")
}

// overrideSketch copies every explicitly set sketch flag over the loaded config.
func overrideSketch(flags *pflag.FlagSet, s *config.Sketch) (err error) {
	if flags.Lookup("epsilon") == nil {
		return nil
	}
	if flags.Changed("epsilon") {
		if s.Epsilon, err = flags.GetFloat64("epsilon"); err != nil {
			return err
		}
	}
	if flags.Changed("delta") {
		if s.Delta, err = flags.GetFloat64("delta"); err != nil {
			return err
		}
	}
	if flags.Changed("decay") {
		if s.DecayRatio, err = flags.GetFloat64("decay"); err != nil {
			return err
		}
	}
	if flags.Changed("hash") {
		if s.Hash, err = flags.GetString("hash"); err != nil {
			return err
		}
	}
	if flags.Changed("seed") {
		if s.Seed, err = flags.GetUint64("seed"); err != nil {
			return err
		}
	}
	if flags.Changed("overflow") {
		if s.Overflow, err = flags.GetString("overflow"); err != nil {
			return err
		}
	}
	return nil
}
