package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pagesmith.dev/engine/internal/application/router"
	"pagesmith.dev/engine/internal/core/apperr"
	"pagesmith.dev/engine/internal/core/plugin"
	"pagesmith.dev/engine/internal/core/security"
)

// newPluginsCommand creates the plugins command
func (a *App) newPluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Manage stored plugins",
		Long: `Create, inspect, enable and remove the plugins in the local store.

Plugin documents are the JSON format produced by "pagesmith plugins export".`,
		Example: `  # List every plugin
  pagesmith plugins list

  # Show the plugins that would run on a page
  pagesmith plugins list --domain shop.example.com

  # Import a plugin shared by someone else
  pagesmith plugins import banner.json

  # Enable it
  pagesmith plugins enable 6f1c...`,
	}

	cmd.AddCommand(a.newPluginsListCommand())
	cmd.AddCommand(a.newPluginsShowCommand())
	cmd.AddCommand(a.newPluginsSaveCommand())
	cmd.AddCommand(a.newPluginsImportCommand())
	cmd.AddCommand(a.newPluginsExportCommand())
	cmd.AddCommand(a.newPluginsDeleteCommand())
	cmd.AddCommand(a.newPluginsToggleCommand("enable", true))
	cmd.AddCommand(a.newPluginsToggleCommand("disable", false))
	cmd.AddCommand(a.newPluginsUsageCommand())

	return cmd
}

func (a *App) newPluginsListCommand() *cobra.Command {
	var (
		domain string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plugins",
		Long: `List every stored plugin. With --domain, list only the plugins that
would be applied to that hostname, highest priority first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if domain != "" {
				resp, err := a.send(cmd.Context(), router.GetPluginsForDomainRequest{Hostname: domain})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(a.stdout, nonNil(resp.Plugins))
				}
				return a.printApplied(domain, resp.Plugins)
			}

			resp, err := a.send(cmd.Context(), router.GetAllPluginsRequest{})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.stdout, nonNil(resp.Records))
			}
			return a.printRecords(resp.Records)
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "Only list plugins that apply to this hostname")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func (a *App) printRecords(records []plugin.PluginData) error {
	if len(records) == 0 {
		fmt.Fprintln(a.stdout, a.styles.muted.Render("No plugins stored."))
		return nil
	}

	fmt.Fprintln(a.stdout, a.styles.header.Render(fmt.Sprintf("%-36s  %-24s  %-8s  %-5s  %-8s  %s",
		"ID", "NAME", "PRIORITY", "USES", "LEVEL", "STATUS")))
	for _, d := range records {
		status := a.styles.disabled.Render("disabled")
		if d.Enabled {
			status = a.styles.enabled.Render("enabled")
		}
		fmt.Fprintf(a.stdout, "%-36s  %-24s  %-8d  %-5d  %-8s  %s\n",
			truncateString(d.ID(), 36),
			truncateString(d.Plugin.Name, 24),
			d.Plugin.Priority,
			d.UsageCount,
			security.RequiredLevel(d.Plugin),
			status,
		)
	}
	return nil
}

func (a *App) printApplied(domain string, applied []plugin.Plugin) error {
	if len(applied) == 0 {
		fmt.Fprintln(a.stdout, a.styles.muted.Render("No plugins apply to "+domain+"."))
		return nil
	}

	fmt.Fprintln(a.stdout, a.styles.title.Render(fmt.Sprintf("Plugins applied to %s:", domain)))
	for i, p := range applied {
		fmt.Fprintf(a.stdout, "%d. %s (%s, priority %d, %d operations)\n", i+1, p.Name, p.ID, p.Priority, len(p.Operations))
	}
	return nil
}

func (a *App) newPluginsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored plugin with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.send(cmd.Context(), router.GetAllPluginsRequest{})
			if err != nil {
				return err
			}
			for _, d := range resp.Records {
				if d.ID() == args[0] {
					return writeJSON(a.stdout, d)
				}
			}
			return apperr.NotFound("plugin", args[0])
		},
	}
}

func (a *App) newPluginsSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save <file|->",
		Short: "Create or replace a plugin from a JSON document",
		Long: `Create or replace a plugin. A document whose id matches a stored plugin
replaces it and keeps its usage statistics; otherwise a new plugin is
created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readDocument(args[0])
			if err != nil {
				return err
			}
			p, err := plugin.Decode(data)
			if err != nil {
				return err
			}

			resp, err := a.send(cmd.Context(), router.SavePluginRequest{Plugin: p})
			if err != nil {
				return err
			}
			a.printStored("Saved", resp.Record)
			return nil
		},
	}
}

func (a *App) newPluginsImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import an exported plugin as a new plugin",
		Long: `Import a plugin document. The plugin is always stored as a new record;
an id that is already taken is replaced with a fresh one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readDocument(args[0])
			if err != nil {
				return err
			}

			resp, err := a.send(cmd.Context(), router.ImportPluginRequest{Document: string(data)})
			if err != nil {
				return err
			}
			a.printStored("Imported", resp.Record)
			return nil
		},
	}
}

func (a *App) newPluginsExportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a plugin as a shareable JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.send(cmd.Context(), router.ExportPluginRequest{PluginID: args[0]})
			if err != nil {
				return err
			}
			doc := []byte(resp.Document)

			if output == "" || output == "-" {
				_, err = fmt.Fprintln(a.stdout, string(doc))
				return err
			}
			if err := os.WriteFile(output, append(doc, '\n'), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintln(a.stdout, a.styles.success.Render("Exported "+args[0]+" to "+output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file instead of stdout")
	return cmd
}

func (a *App) newPluginsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a plugin",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.send(cmd.Context(), router.DeletePluginRequest{PluginID: args[0]}); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, a.styles.success.Render("Deleted "+args[0]))
			return nil
		},
	}
}

func (a *App) newPluginsToggleCommand(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.send(cmd.Context(), router.TogglePluginRequest{PluginID: args[0], Enabled: enabled})
			if err != nil {
				return err
			}
			a.printStored(strings.ToUpper(verb[:1])+verb[1:]+"d", resp.Record)
			return nil
		},
	}
}

func (a *App) newPluginsUsageCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "usage <id>",
		Short:  "Record that a plugin was applied to a page",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.send(cmd.Context(), router.RecordUsageRequest{PluginID: args[0]})
			return err
		},
	}
}

func (a *App) printStored(action string, d *plugin.PluginData) {
	if d == nil {
		fmt.Fprintln(a.stdout, a.styles.success.Render(action))
		return
	}
	state := a.styles.disabled.Render("disabled")
	if d.Enabled {
		state = a.styles.enabled.Render("enabled")
	}
	fmt.Fprintf(a.stdout, "%s %s (%s), %s\n", a.styles.success.Render(action), d.Plugin.Name, d.ID(), state)
}

// readDocument reads a file, or stdin when path is "-".
func (a *App) readDocument(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// nonNil keeps empty JSON output as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
