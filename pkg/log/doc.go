// Package log provides docket's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. It is backed by logrus, so entries
// carry logrus fields and can be captured in tests with logrus/hooks/test.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormat(log.FormatText),
//	)
//	l = l.With(log.Component("server"), log.Tenant("default"))
//	l.Info("server started", log.Str("http", ":8080"))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level, text or JSON
// format, stderr/stdout/null/file output).
//
// # Interop
//
// RedirectStdLog routes the standard library logger through a Logger so that
// Pebble's own messages share the process format.
package log
