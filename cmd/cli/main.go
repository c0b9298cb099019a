package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nickyhof/ViewDB"
	"github.com/nickyhof/ViewDB/config"
	"github.com/nickyhof/ViewDB/db"
	"github.com/nickyhof/ViewDB/logger"
	"github.com/nickyhof/ViewDB/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

// app carries what the commands share once flags and config are resolved.
type app struct {
	in  io.Reader
	out io.Writer

	cfg        *config.Config
	configPath string
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}

	rootCmd := &cobra.Command{
		Use:          "viewdb",
		Short:        "Git-backed catalog that compiles and tracks SQL views",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			cli, err := a.newCLI()
			if err != nil {
				return err
			}
			if file != "" {
				return cli.importFile(file)
			}
			cli.printBanner()
			cli.run()
			return nil
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)

	config.RegisterFlags(rootCmd)
	rootCmd.Flags().StringP("file", "f", "", "SQL file to execute (non-interactive)")

	rootCmd.AddCommand(
		a.newExportCmd(),
		a.newImportCmd(),
		a.newConfigCmd(),
		a.newRemoteCmd(),
		a.newPushCmd(),
		a.newPullCmd(),
		a.newSnapshotCmd(),
		a.newLogCmd(),
	)
	return rootCmd
}

func (a *app) initConfig(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, path, err := config.LoadConfig(configFile, cmd)
	if err != nil {
		return err
	}
	if err := logger.SetLogLevel(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	if path != "" {
		log.Debug().Str("path", path).Msg("config loaded")
	}
	a.cfg = cfg
	a.configPath = path
	return nil
}

// openInstance opens the catalog selected by the config: file persistence
// under BaseDir, otherwise memory.
func (a *app) openInstance() (*ViewDB.Instance, error) {
	var persistence *ps.Persistence
	var err error
	if a.cfg.BaseDir == "" {
		log.Info().Msg("using memory persistence")
		persistence, err = ps.NewMemoryPersistence()
	} else {
		log.Info().Str("dir", a.cfg.BaseDir).Msg("using file persistence")
		var gitURL *string
		if a.cfg.GitURL != "" {
			gitURL = &a.cfg.GitURL
		}
		persistence, err = ps.NewFilePersistence(a.cfg.BaseDir, gitURL)
	}
	if err != nil {
		return nil, err
	}
	return ViewDB.Open(persistence, a.cfg.Identity())
}

// openEngine opens the instance and starts a session in the default schema.
func (a *app) openEngine() (*ViewDB.Instance, *db.Engine, error) {
	instance, err := a.openInstance()
	if err != nil {
		return nil, nil, err
	}
	engine := instance.Engine(a.cfg.Identity())
	if err := engine.SetSchema(a.cfg.DefaultSchema); err != nil {
		return nil, nil, err
	}
	return instance, engine, nil
}

func (a *app) s3Config() *db.S3Config {
	if !a.cfg.HasS3Credentials() {
		return nil
	}
	return &db.S3Config{
		AccessKey: a.cfg.S3.AccessKey,
		SecretKey: a.cfg.S3.SecretKey,
		Region:    a.cfg.S3.Region,
		Endpoint:  a.cfg.S3.Endpoint,
	}
}
