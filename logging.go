package main

import (
	"net"
	"strings"

	"github.com/sirupsen/logrus"
)

// initLogging maps the verbosity flags onto logrus levels: -v logs errors
// and warnings, -w adds client requests and responses, -x adds internal
// state transitions. Without a flag only hard errors surface.
func initLogging(config *Config) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch {
	case config.ExtremelyVerbose:
		logrus.SetLevel(logrus.DebugLevel)
	case config.VeryVerbose:
		logrus.SetLevel(logrus.InfoLevel)
	case config.Verbose:
		logrus.SetLevel(logrus.WarnLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// escapeCRLF renders CR and LF in logged bytes as escape sequences.
func escapeCRLF(b []byte) string {
	s := strings.ReplaceAll(string(b), "\r", "\\r")
	return strings.ReplaceAll(s, "\n", "\\n")
}

// connLogger tags log lines with the connection id and peer address.
func connLogger(id string, remote net.Addr) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"conn":   id,
		"remote": remote.String(),
	})
}
