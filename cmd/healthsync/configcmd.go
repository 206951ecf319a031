package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change the sync endpoint configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		settings := app.settings.Get()
		url, token := "(unset)", "(unset)"
		if settings.APIUrl != nil {
			url = *settings.APIUrl
		}
		if settings.APIToken != nil {
			token = "(set)"
		}
		fmt.Printf("api-url:              %s\n", url)
		fmt.Printf("api-token:            %s\n", token)
		fmt.Printf("storage-prefix:       %s\n", app.cfg.StoragePrefix)
		fmt.Printf("remote-loop-wait:     %s\n", app.cfg.RemoteLoopWait)
		fmt.Printf("pull-overlap:         %s\n", app.cfg.PullOverlapSeconds)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <api-url> <api-token>",
	Short: "Set the sync endpoint and token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		app.settings.SetEndpoint(args[0], args[1])
		fmt.Println("Endpoint configured.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
