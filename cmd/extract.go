package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/fitcheck/internal/extractor"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Print the text fitcheck reads from a PDF or DOCX file",
	Args: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list-strategies"); list {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		extract(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Bool("list-strategies", false, "list the configured extraction strategies and exit")
}

func extract(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, config := bootstrap()

	ex, err := newExtractor(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing text extraction", zap.Error(err))
	}

	if list, _ := cmd.Flags().GetBool("list-strategies"); list {
		printStrategies(cmd.OutOrStdout(), ex.Describe())
		return
	}

	path := args[0]

	result, err := readFileText(ctx, ex, path)
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		var failure *extractor.Failure
		if errors.As(err, &failure) {
			for _, attempt := range failure.Attempts {
				fields = append(fields, zap.NamedError(attempt.Strategy, attempt.Err))
			}
		}
		logger.Fatal(unreadableMessage(filepath.Base(path)), fields...)
	}

	logger.Info("text extracted",
		zap.String("filename", filepath.Base(path)),
		zap.String("strategy", result.Strategy),
		zap.Int("attempts", len(result.Attempts)),
	)

	fmt.Fprintln(cmd.OutOrStdout(), result.Text)
}

func printStrategies(w io.Writer, statuses []extractor.Status) {
	for _, st := range statuses {
		state := "enabled"
		if !st.Enabled {
			state = "disabled"
		}

		line := fmt.Sprintf("%-5s %-12s %s", st.Format, st.Name, state)
		if st.Reason != "" {
			line += " (" + st.Reason + ")"
		}
		fmt.Fprintln(w, line)
	}
}
