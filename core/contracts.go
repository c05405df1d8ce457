package core

import (
	glog "github.com/goliatone/go-logger/glog"
)

// Logger is the structured logger carried by the client and the auth
// orchestrator.
type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// ResolveLogger returns a named logger, falling back to the library default
// when neither a provider nor a logger is supplied.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	resolvedProvider, resolved := glog.Resolve(name, provider, logger)
	return resolvedProvider, glog.Ensure(resolved)
}
