package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"a11ygraph/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionFormat string

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show a11ygraph build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch strings.ToLower(versionFormat) {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(versionPayload{
				Tool:      appName,
				Version:   version.Version,
				GitCommit: version.Commit(),
				BuildDate: version.BuildDate,
			})
		case "pretty", "":
			useColor, err := colorEnabled(cmd, os.Stdout)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, version.Line(useColor))
			return err
		}
		return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
	},
}
