package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nickyhof/ViewDB"
	"github.com/nickyhof/ViewDB/db"
	"github.com/nickyhof/ViewDB/ps"
)

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Write the catalog as a DDL script to a file, file:// or s3:// URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, engine, err := a.openEngine()
			if err != nil {
				return err
			}
			n, err := engine.Export(cmd.Context(), args[0], a.s3Config())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✓ Exported %d bytes to %s\n", n, args[0])
			return nil
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Execute a DDL script from a file, file://, http(s):// or s3:// URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, engine, err := a.openEngine()
			if err != nil {
				return err
			}
			results, err := engine.Import(cmd.Context(), args[0], a.s3Config())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✓ Imported %d statements from %s\n", len(results), args[0])
			return nil
		},
	}
}

func (a *app) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			if a.configPath != "" {
				fmt.Fprintf(a.out, "# %s\n", a.configPath)
			}
			_, err = a.out.Write(out)
			return err
		},
	})
	return configCmd
}

func (a *app) newRemoteCmd() *cobra.Command {
	remoteCmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage the Git remotes of the catalog",
	}

	remoteCmd.AddCommand(
		&cobra.Command{
			Use:   "add <name> <url>",
			Short: "Add a remote",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				instance, err := a.openInstance()
				if err != nil {
					return err
				}
				if err := instance.Persistence.AddRemote(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "✓ Added remote %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List remotes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				instance, err := a.openInstance()
				if err != nil {
					return err
				}
				remotes, err := instance.Persistence.ListRemotes()
				if err != nil {
					return err
				}
				data := make([][]string, len(remotes))
				for i, remote := range remotes {
					data[i] = []string{remote.Name, strings.Join(remote.URLs, ", ")}
				}
				db.QueryResult{Columns: []string{"name", "url"}, Data: data, RecordsRead: len(data)}.Write(a.out)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Remove a remote",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				instance, err := a.openInstance()
				if err != nil {
					return err
				}
				if err := instance.Persistence.RemoveRemote(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "✓ Removed remote %s\n", args[0])
				return nil
			},
		},
	)
	return remoteCmd
}

func addAuthFlags(cmd *cobra.Command) {
	cmd.Flags().String("token", "", "token for HTTPS authentication")
	cmd.Flags().String("ssh-key", "", "path to an SSH private key")
	cmd.Flags().String("passphrase", "", "passphrase of the SSH key")
	cmd.Flags().String("username", "", "username for basic authentication")
	cmd.Flags().String("password", "", "password for basic authentication")
}

// remoteAuth builds the credentials selected by the auth flags, if any.
func remoteAuth(cmd *cobra.Command) *ps.RemoteAuth {
	flags := cmd.Flags()
	token, _ := flags.GetString("token")
	keyPath, _ := flags.GetString("ssh-key")
	passphrase, _ := flags.GetString("passphrase")
	username, _ := flags.GetString("username")
	password, _ := flags.GetString("password")

	switch {
	case token != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: token}
	case keyPath != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeSSH, KeyPath: keyPath, Passphrase: passphrase}
	case username != "":
		return &ps.RemoteAuth{Type: ps.AuthTypeBasic, Username: username, Password: password}
	default:
		return nil
	}
}

func remoteName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "origin"
}

func (a *app) newPushCmd() *cobra.Command {
	pushCmd := &cobra.Command{
		Use:   "push [remote]",
		Short: "Push the catalog history to a remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := a.openInstance()
			if err != nil {
				return err
			}
			remote := remoteName(args)
			if err := instance.Persistence.Push(remote, remoteAuth(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✓ Pushed to %s\n", remote)
			return nil
		},
	}
	addAuthFlags(pushCmd)
	return pushCmd
}

func (a *app) newPullCmd() *cobra.Command {
	pullCmd := &cobra.Command{
		Use:   "pull [remote]",
		Short: "Fast-forward the catalog to a remote and reload its views",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := a.openInstance()
			if err != nil {
				return err
			}
			remote := remoteName(args)
			updated, err := instance.Persistence.Pull(remote, remoteAuth(cmd))
			if err != nil {
				return err
			}
			if !updated {
				fmt.Fprintln(a.out, "Already up to date")
				return nil
			}
			if err := reload(instance); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✓ Pulled from %s\n", remote)
			return nil
		},
	}
	addAuthFlags(pullCmd)
	return pullCmd
}

// reload rebuilds the in-memory catalog after its history moved underneath
// it, recompiling every view against the new tables.
func reload(instance *ViewDB.Instance) error {
	instance.Catalog.Lock()
	defer instance.Catalog.Unlock()
	return instance.Catalog.Reload()
}

func (a *app) newSnapshotCmd() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Tag and recover catalog states",
	}

	snapshotCmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Tag the current catalog state",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				instance, err := a.openInstance()
				if err != nil {
					return err
				}
				if err := instance.Persistence.Snapshot(args[0], nil); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "✓ Created snapshot %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List snapshots",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				instance, err := a.openInstance()
				if err != nil {
					return err
				}
				names, err := instance.Persistence.Snapshots()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(a.out, name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "recover <name>",
			Short: "Restore the catalog of a snapshot as a new commit",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				instance, err := a.openInstance()
				if err != nil {
					return err
				}
				txn, err := instance.Persistence.Recover(args[0], a.cfg.Identity())
				if err != nil {
					return err
				}
				if err := reload(instance); err != nil {
					return err
				}
				log.Info().Str("snapshot", args[0]).Str("transaction", txn.Id).Msg("snapshot recovered")
				fmt.Fprintf(a.out, "✓ Recovered snapshot %s\n", args[0])
				return nil
			},
		},
	)
	return snapshotCmd
}

func (a *app) newLogCmd() *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show the catalog transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			since, _ := cmd.Flags().GetDuration("since")
			instance, err := a.openInstance()
			if err != nil {
				return err
			}

			asof := time.Time{}
			if since > 0 {
				asof = time.Now().Add(-since)
			}
			transactions, err := instance.Persistence.TransactionsSince(asof)
			if err != nil {
				return err
			}

			data := make([][]string, len(transactions))
			for i, txn := range transactions {
				data[i] = []string{shortID(txn.Id), txn.When.Format(time.RFC3339), txn.Author, txn.Message}
			}
			db.QueryResult{
				Columns:     []string{"id", "when", "author", "message"},
				Data:        data,
				RecordsRead: len(data),
			}.Write(a.out)
			return nil
		},
	}
	logCmd.Flags().Duration("since", 0, "only show transactions newer than this, e.g. 24h")
	return logCmd
}

func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
