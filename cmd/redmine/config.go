package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/redmine/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change saved settings",
	}
	cmd.AddCommand(a.configShowCmd(), a.configSetCmd(), a.configUnsetCmd(), a.configPathCmd())
	return cmd
}

func (a *app) configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show every setting and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
			for _, key := range config.Keys {
				value, source := a.settings.Redacted(key), a.settings.Source(key)
				if source == "" {
					value, source = "-", "unset"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", key, value, source)
			}
			return tw.Flush()
		},
	}
}

func (a *app) store(local bool) (config.Store, error) {
	if local {
		return a.resolver.LocalStore()
	}
	return a.resolver.GlobalStore(), nil
}

func (a *app) configSetCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Save a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := a.store(local)
			if err != nil {
				return err
			}
			if err := store.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s to %s\n", args[0], store.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "save to "+config.DefaultLocalName+" in the project root")
	return cmd
}

func (a *app) configUnsetCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a saved setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := a.store(local)
			if err != nil {
				return err
			}
			if err := store.Unset(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s from %s\n", args[0], store.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "remove from "+config.DefaultLocalName)
	return cmd
}

func (a *app) configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file locations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(a.out, "global: %s\n", a.resolver.GlobalPath())
			fmt.Fprintf(a.out, "local:  %s\n", a.resolver.LocalPath())
			return nil
		},
	}
}
