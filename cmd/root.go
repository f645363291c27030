package cmd

import (
	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

var RootCmd = &cobra.Command{
	Use:   "browserauth",
	Short: "Browser automation authentication service",
	Long:  "HTTP service exposing long-running browser-driven login jobs with persisted session state.",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}
