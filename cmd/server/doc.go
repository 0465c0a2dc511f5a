// Command server runs the extension relay.
//
// Configuration comes from the environment (see internal/infrastructure/config)
// and the flags below override it:
//
//	-port     listen port (PORT)
//	-host     listen address (HOST)
//	-catalog  glob of YAML/TOML command files (CATALOG_FILES)
//	-dev      development logging (LOG_DEV)
//
// SIGINT or SIGTERM closes the peer session and drains in-flight requests
// within SHUTDOWN_TIMEOUT.
package main
