package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pavanpakhare/javanotes/internal/version"
	"github.com/spf13/cobra"
)

var (
	versionFormat   string
	versionDetailed bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for javanotes including:

- Semantic version number
- Git commit hash
- Build timestamp
- Go version used for compilation
- Target platform (OS/architecture)

Examples:
  javanotes version               # Show short version
  javanotes version --detailed    # Show detailed version info
  javanotes version --format json # Output as JSON`,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().BoolVarP(&versionDetailed, "detailed", "d", false, "Show detailed build information")
}

func runVersion(cmd *cobra.Command, args []string) error {
	switch versionFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(version.GetBuildInfo())
	case "text":
		if versionDetailed {
			fmt.Println(version.GetDetailedVersion())
		} else {
			fmt.Printf("javanotes %s\n", version.GetShortVersion())
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (expected text or json)", versionFormat)
	}
}
