package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bookverse/apptrust-rollback/internal/apptrust"
	"github.com/bookverse/apptrust-rollback/internal/config"
	"github.com/bookverse/apptrust-rollback/internal/rollback"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back a version in PROD and reassign 'latest'",
	RunE:  runRollback,
}

func init() {
	rollbackCmd.Flags().String("app", "", "Application key (required)")
	rollbackCmd.Flags().String("version", "", "Target version to roll back, SemVer (required)")
	rollbackCmd.Flags().String("base-url", "", "AppTrust API base URL, e.g. https://host/apptrust/api/v1 (env: APPTRUST_BASE_URL, JFROG_URL)")
	rollbackCmd.Flags().String("token", "", "Access token (env: JF_OIDC_TOKEN)")
	rollbackCmd.Flags().Duration("timeout", 0, "Per-call registry timeout (default 600s)")
	rollbackCmd.Flags().Bool("dry-run", false, "Log intended changes without mutating")
	rollbackCmd.Flags().String("config", ".apptrust-rollback.yml", "Path to config file")

	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	appKey, _ := cmd.Flags().GetString("app")
	targetVersion, _ := cmd.Flags().GetString("version")
	if err := requireFlags(map[string]string{"--app": appKey, "--version": targetVersion}); err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render(fmt.Sprintf("warning: could not load config file: %v (using defaults)", err)))
		cfg = config.Default()
	}
	cfg = config.MergeFlags(config.MergeEnv(cfg), cmd.Flags())
	if err := cfg.Validate(); err != nil {
		return err
	}

	if normalized := normalizeAppKey(appKey); normalized != appKey {
		fmt.Fprintf(cmd.OutOrStdout(), "normalized application key: %s -> %s\n", appKey, normalized)
		appKey = normalized
	}

	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), styleInfo.Render("dry-run mode: no tags or properties will be changed"))
	}

	client := apptrust.NewClient(cfg.BaseURL, cfg.Token, cfg.RequestTimeout())
	orch := rollback.New(client, cmd.OutOrStdout())

	result, err := orch.Run(cmd.Context(), rollback.Options{
		AppKey:        appKey,
		TargetVersion: targetVersion,
		DryRun:        dryRun,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderReport(result))
	fmt.Fprintln(cmd.OutOrStdout(), styleSuccess.Render("rollback complete"))
	fmt.Fprintln(cmd.OutOrStdout(), styleDim.Render(fmt.Sprintf("done in %.2fs", result.Elapsed.Seconds())))
	return nil
}

// requireFlags reports every required flag whose value is empty.
func requireFlags(values map[string]string) error {
	var missing []string
	for _, name := range []string{"--app", "--version"} {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &usageError{err: fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))}
	}
	return nil
}

// normalizeAppKey collapses a doubled leading segment, e.g.
// "bookverse-bookverse-inventory" -> "bookverse-inventory". CI
// workflows sometimes re-prefix keys when deriving them from
// repository names.
func normalizeAppKey(key string) string {
	seg, rest, ok := strings.Cut(key, "-")
	if !ok {
		return key
	}
	if strings.HasPrefix(rest, seg+"-") {
		return rest
	}
	return key
}
