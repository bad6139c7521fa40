package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pagesmith.dev/engine/internal/application/router"
	"pagesmith.dev/engine/internal/core/security"
	"pagesmith.dev/engine/internal/core/settings"
)

// newSettingsCommand creates the settings command
func (a *App) newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change engine settings",
		Long: `Show and change the engine settings stored alongside the plugins.

Lowering the security level disables every enabled plugin the new level
no longer allows.`,
	}

	cmd.AddCommand(a.newSettingsShowCommand())
	cmd.AddCommand(a.newSettingsSetCommand())
	return cmd
}

func (a *App) newSettingsShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.send(cmd.Context(), router.GetSettingsRequest{})
			if err != nil {
				return err
			}
			current := *resp.Settings
			if asJSON {
				current.APIKey = current.MaskedAPIKey()
				return writeJSON(a.stdout, current)
			}
			a.printSettings(current)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	return cmd
}

func (a *App) printSettings(s settings.Settings) {
	fmt.Fprintln(a.stdout, a.styles.title.Render("Current Settings:"))
	fmt.Fprintf(a.stdout, "Security Level: %s\n", s.SecurityLevel)
	fmt.Fprintf(a.stdout, "Plugins Enabled: %t\n", s.PluginsEnabled)
	fmt.Fprintf(a.stdout, "Auto Apply Plugins: %t\n", s.AutoApplyPlugins)
	fmt.Fprintf(a.stdout, "API Key: %s\n", s.MaskedAPIKey())
}

func (a *App) newSettingsSetCommand() *cobra.Command {
	var (
		level          string
		pluginsEnabled bool
		autoApply      bool
		apiKey         string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more settings",
		Example: `  # Allow script execution
  pagesmith settings set --security-level advanced

  # Turn every plugin off
  pagesmith settings set --plugins-enabled=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !anyChanged(flags, "security-level", "plugins-enabled", "auto-apply", "api-key") {
				return fmt.Errorf("nothing to change; pass at least one setting flag")
			}

			// Updates replace the whole record, so start from what is stored.
			resp, err := a.send(cmd.Context(), router.GetSettingsRequest{})
			if err != nil {
				return err
			}
			updated := *resp.Settings
			if flags.Changed("security-level") {
				parsed, err := security.ParseLevel(level)
				if err != nil {
					return err
				}
				updated.SecurityLevel = parsed
			}
			if flags.Changed("plugins-enabled") {
				updated.PluginsEnabled = pluginsEnabled
			}
			if flags.Changed("auto-apply") {
				updated.AutoApplyPlugins = autoApply
			}
			if flags.Changed("api-key") {
				updated.APIKey = apiKey
			}

			resp, err = a.send(cmd.Context(), router.UpdateSettingsRequest{Settings: updated})
			if err != nil {
				return err
			}

			fmt.Fprintln(a.stdout, a.styles.success.Render("Settings updated"))
			for _, id := range resp.Disabled {
				fmt.Fprintln(a.stdout, a.styles.muted.Render("Disabled "+id+": not allowed at level "+updated.SecurityLevel.String()))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&level, "security-level", "", "Security level: safe, moderate or advanced")
	flags.BoolVar(&pluginsEnabled, "plugins-enabled", true, "Global plugin switch")
	flags.BoolVar(&autoApply, "auto-apply", false, "Enable new plugins on creation when allowed")
	flags.StringVar(&apiKey, "api-key", "", "API key (empty to clear)")
	return cmd
}

func anyChanged(flags *pflag.FlagSet, names ...string) bool {
	for _, name := range names {
		if flags.Changed(name) {
			return true
		}
	}
	return false
}
