package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd runs the server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "jmemcached",
	Short: "jmemcached - in-memory key/value cache speaking the memcached text protocol",
	Long: `jmemcached is a network-accessible in-memory key/value cache server
speaking the text memcached protocol over TCP.

The cache is strictly in-memory and non-persistent, bounded by a configured
maximum item count and byte budget, and evicts least-recently-used items.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

// runServer starts the cache server and blocks until a termination signal.
func runServer(cmd *cobra.Command, args []string) error {
	config, err := LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := config.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	initLogging(config)

	if config.Daemonize {
		logrus.Warn("daemonize is not supported, running in the foreground")
	}
	if config.Username != "" {
		logrus.Warn("username switching is not supported, ignoring")
	}
	if config.Pidfile != "" {
		if err := writePidfile(config.Pidfile); err != nil {
			return err
		}
		defer os.Remove(config.Pidfile)
	}

	server := NewServer(config)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		// Start only returns early on a bind failure
		return err
	case sig := <-sigChan:
		logrus.Infof("received %s, shutting down", sig)
		if err := server.Stop(); err != nil {
			logrus.WithError(err).Warn("errors during shutdown")
		}
		return nil
	}
}

func writePidfile(path string) error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0o644); err != nil {
		return errors.Wrap(err, "failed to write pidfile")
	}
	return nil
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jmemcached %s\n", Version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.PersistentFlags().IntP("tcp-port", "p", 11211, "TCP port number to listen on")
	rootCmd.PersistentFlags().StringP("interface", "I", "", "interface to listen on (default: all addresses)")
	rootCmd.PersistentFlags().Int64P("max-memory", "m", 64, "max memory to use for items in megabytes")
	rootCmd.PersistentFlags().Int64("max-items", 0, "max number of items to store (0 = unlimited)")
	rootCmd.PersistentFlags().BoolP("daemonize", "d", false, "accepted for compatibility; not supported, the server stays in the foreground")
	rootCmd.PersistentFlags().StringP("username", "u", "", "accepted for compatibility; identity switching is not supported and the value is ignored")
	rootCmd.PersistentFlags().StringP("pidfile", "P", "", "save PID in file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log errors and warnings")
	rootCmd.PersistentFlags().BoolP("very-verbose", "w", false, "also log client requests and responses")
	rootCmd.PersistentFlags().BoolP("extremely-verbose", "x", false, "also log internal state transitions")

	viper.BindPFlag("tcp_port", rootCmd.PersistentFlags().Lookup("tcp-port"))
	viper.BindPFlag("interface", rootCmd.PersistentFlags().Lookup("interface"))
	viper.BindPFlag("max_memory", rootCmd.PersistentFlags().Lookup("max-memory"))
	viper.BindPFlag("max_items", rootCmd.PersistentFlags().Lookup("max-items"))
	viper.BindPFlag("daemonize", rootCmd.PersistentFlags().Lookup("daemonize"))
	viper.BindPFlag("username", rootCmd.PersistentFlags().Lookup("username"))
	viper.BindPFlag("pidfile", rootCmd.PersistentFlags().Lookup("pidfile"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("very_verbose", rootCmd.PersistentFlags().Lookup("very-verbose"))
	viper.BindPFlag("extremely_verbose", rootCmd.PersistentFlags().Lookup("extremely-verbose"))

	rootCmd.AddCommand(versionCmd)
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
