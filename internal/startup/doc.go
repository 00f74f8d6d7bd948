// Package startup handles configuration loading and startup logging.
//
// Configuration comes entirely from environment variables; LoadConfig
// validates directories up front so later components can assume their
// working paths exist and are writable. The ffmpeg executable path is a
// configuration value rather than process-global state so tests and
// deployments can point the thumbnail generator at different binaries.
package startup
