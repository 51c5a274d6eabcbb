package main

import (
	"os"

	"modstream/internal/errors"
	"modstream/internal/slogutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := slogutil.NewLogger(os.Stderr, slogutil.LevelFromVerbosity(verbosity, quiet))
		logger.Error("Command execution failed", "code", errors.CodeOf(err), "error", err)
		if !quiet {
			printSuggestedFixes(os.Stderr, err)
		}
		os.Exit(1)
	}
}
