// Package logging provides leveled logging for the gallery service.
//
// The log level is read once from the LOG_LEVEL environment variable
// (debug, info, warn, error) or forced to debug with DEBUG=true.
package logging
