package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/frankli0324/go-xhr/internal/conf"
	"github.com/frankli0324/go-xhr/internal/log"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func newRootCmd() *cobra.Command {
	var cfgFile, logLevel string
	root := &cobra.Command{
		Use:           "xhr",
		Short:         "Send HTTP requests described by flags or YAML files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.Load(cfgFile); err != nil {
				return err
			}
			if logLevel != "" {
				return log.SetLevel(logLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./xhr.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "loglevel", "", "Log level, overrides the config file")
	root.AddCommand(newSendCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "xhr %s\n", Version)
			return err
		},
	}
}

func execute(args []string, out io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	return root.Execute()
}

func main() {
	if err := execute(os.Args[1:], os.Stdout); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
