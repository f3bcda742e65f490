// Package logger provides structured logging for the ABI resolution and
// dispatch packages using zerolog.
//
// Loggers are component-scoped: the prober, resolver, finder and DLL path
// installer each log through logger.Get("<component>"). The default level is
// warn, so a healthy process prints nothing while a probe trail is available
// at debug.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("prober")
//	log.Debug("candidate rejected", logger.Fields(logger.FieldPath, path))
package logger
