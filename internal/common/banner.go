package common

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner to stderr.
func PrintBanner(config *Config, logger *Logger) {
	printBanner(os.Stderr, config)

	logger.Info().
		Str("version", GetVersion()).
		Str("build", GetBuild()).
		Str("commit", GetGitCommit()).
		Str("environment", config.Environment).
		Str("issuer", config.Issuer()).
		Str("storage", storageSummary(config)).
		Str("state", stateSummary(config)).
		Msg("Application started")
}

func printBanner(w io.Writer, config *Config) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 64
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	art := []string{
		`    _                    _       _                       `,
		`   /_\  __ _ ___ _ _  __| |_ __| |_ _ _  _ __ _ ___     `,
		`  / _ \/ _' / -_) ' \/ _' | '_|| | || / _' (_-<         `,
		` /_/ \_\__, \___|_||_\__,_|_|  \_,_\__, /__/            `,
		`       |___/                       |___/                 `,
	}

	fmt.Fprintf(w, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(w, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s  OAuth 2.1 + PKCE agent credentials%s\n\n", textColor, banner.ColorReset)
	fmt.Fprintf(w, "%s\n\n", hr)

	kvPad := 14
	kvLines := [][2]string{
		{"Version", GetVersion()},
		{"Build", GetBuild()},
		{"Commit", GetGitCommit()},
		{"Environment", config.Environment},
		{"Listen", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)},
		{"Issuer", config.Issuer()},
		{"Storage", storageSummary(config)},
		{"State", stateSummary(config)},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(w, "%s  %-*s %s%s\n", textColor, kvPad, kv[0], kv[1], banner.ColorReset)
	}

	fmt.Fprintf(w, "\n%s\n\n", hr)
}

func storageSummary(config *Config) string {
	if config.Storage.Backend == "surrealdb" {
		return "surrealdb " + config.Storage.Address
	}
	return config.Storage.Backend
}

func stateSummary(config *Config) string {
	if config.State.Backend == "redis" {
		return "redis " + config.State.Redis.Address
	}
	return config.State.Backend
}

// PrintShutdownBanner displays the application shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 42) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  AGENTDRUGS SHUTTING DOWN%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n\n", hr)

	logger.Info().Msg("Application shutting down")
}
