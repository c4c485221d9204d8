package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookverse/apptrust-rollback/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "apptrust-rollback",
	Short: "Roll back an AppTrust application version out of PROD",
	Long: "apptrust-rollback rolls a released application version back out of the PROD stage, " +
		"quarantines it, and reassigns the 'latest' tag to the best remaining eligible version.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("apptrust-rollback v1.0.0")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})
}

// usageError marks command-line usage problems (missing or unknown
// flags). They map to exit code 2 like other configuration failures.
type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

// Exit codes: 0 success, 1 operation failure, 2 configuration or
// authentication failure.
func main() {
	os.Exit(run(os.Stderr))
}

// run executes the CLI and reports the exit code. Every fatal error
// produces a diagnostic on stderr before the non-zero exit.
func run(stderr io.Writer) int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, styleError.Render("ERROR: "+err.Error()))
		if isConfigError(err) {
			return 2
		}
		return 1
	}
	return 0
}

func isConfigError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue) ||
		errors.Is(err, config.ErrMissingBaseURL) ||
		errors.Is(err, config.ErrMissingToken)
}
