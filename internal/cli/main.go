package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "vcompose <job.json>",
		Short:        "Compose video segments into a single rendered clip",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("out", "out.mp4", "Output file")
	root.Flags().String("config", "vcompose.yaml", "Render config file")
	root.Flags().String("orientation", "", "Override job orientation (vertical|horizontal)")
	root.Flags().String("bgm", "", "Background music file name inside the assets dir")
	root.Flags().Float64("bgm-gain", 0, "Background music gain (0 uses the default)")
	root.Flags().BoolP("verbose", "v", false, "Debug logging")

	// Hidden tuning flag (internal)
	root.Flags().String("work-dir", "", "Scratch workspace base directory")
	_ = root.Flags().MarkHidden("work-dir")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
