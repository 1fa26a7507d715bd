package app

import "github.com/spf13/pflag"

// RegisterFlags registers all server CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn or error")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	flags.Int("db-page-size", 0, "Default number of documents per search page")
	flags.Int("db-max-facet-values", 0, "Default number of values returned per facet")
	flags.Bool("metrics-enabled", false, "Serve Prometheus metrics at /metrics (sse only)")
	flags.Bool("metrics-public", false, "Serve /metrics without authentication")
	RegisterDBFlags(flags)
}

// RegisterDBFlags registers the flags that locate and tune the database. They
// are shared by the server and the offline subcommands.
func RegisterDBFlags(flags *pflag.FlagSet) {
	flags.StringP("db-dir", "d", "", "Database directory")
	flags.StringP("db-schema-file", "s", "", "JSON Schema file used to create the database")
	flags.Bool("db-in-memory", false, "Keep the database in memory (requires db-schema-file)")
	flags.Bool("db-ignore-hash", false, "Open the database even if its files changed since it was closed")
	flags.Duration("db-lock-timeout", 0, "How long to wait for the database lock")
	flags.Int("db-store-workers", 0, "Number of documents mapped in parallel when storing")
	flags.Int("db-expression-cache-size", 0, "Number of compiled path expressions kept in memory")
}
