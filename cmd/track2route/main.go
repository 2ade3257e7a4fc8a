package main

import (
	"fmt"
	"log"
	"os"

	"github.com/kass/track2route/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "track2route",
	Short: "Convert recorded GPS tracks into sparse routes",
	Long: `track2route reduces dense GPX tracks to routes by eliminating the points
that deviate least from the path of their neighbours, until every remaining
point deviates more than the tolerance or the route reaches the requested
number of points.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = c
		if verbose && configFile != "" {
			log.Printf("Loaded config from %s", configFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default "+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(convertCmd, reportCmd, benchCmd, storeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
