package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/fitcheck/internal/report"
)

var errExit = errors.New("exit requested")

var evaluateCmd = &cobra.Command{
	Use:     "evaluate",
	Aliases: []string{"run"},
	Short:   "Evaluate how well a resume fits a job description",
	Example: `  fitcheck evaluate --resume-file cv.pdf --job-file job.txt
  cat job.txt | fitcheck evaluate --resume-file cv.docx --job-stdin
  fitcheck evaluate -i`,
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("resume-file", "", "resume as a PDF or DOCX file")
	evaluateCmd.Flags().String("resume-text", "", "resume as plain text; used as a fallback when --resume-file cannot be read")
	evaluateCmd.Flags().Bool("resume-stdin", false, "read the resume text from stdin")
	evaluateCmd.Flags().String("job-file", "", "job description as a PDF, DOCX or plain text file")
	evaluateCmd.Flags().String("job-text", "", "job description as plain text")
	evaluateCmd.Flags().Bool("job-stdin", false, "read the job description from stdin")
	evaluateCmd.Flags().Bool("raw", false, "print the raw backend response after the report")
	evaluateCmd.Flags().StringP("output", "o", "", "report format: text or json")
	evaluateCmd.Flags().BoolP("interactive", "i", false, "ask for inputs with interactive menus")

	viper.BindPFlag("output.format", evaluateCmd.Flags().Lookup("output"))
	viper.BindPFlag("output.raw", evaluateCmd.Flags().Lookup("raw"))
}

// evaluate is the main command for the cli.
func evaluate(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := bootstrap()

	logger.Info("starting the fitcheck", zap.String("version", version), zap.String("backend", config.Backend.URL))

	ex, err := newExtractor(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing text extraction", zap.Error(err))
	}

	client := newClient(config, logger)

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		if err := runInteractive(ctx, newSession(cmd, config, logger, client, ex)); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	in := inputsFromFlags(cmd)

	req, err := buildRequest(ctx, ex, in, cmd.InOrStdin(), logger)
	if err != nil {
		logger.Fatal("reading inputs", zap.Error(err))
	}

	result, err := client.Evaluate(ctx, req)
	if err != nil {
		msg, fields := describeError(err)
		logger.Fatal(msg, fields...)
	}

	if err := report.Write(cmd.OutOrStdout(), result, reportOptions(config)); err != nil {
		logger.Fatal("printing the report", zap.Error(err))
	}
}

func inputsFromFlags(cmd *cobra.Command) inputs {
	flags := cmd.Flags()

	var in inputs
	in.ResumeFile, _ = flags.GetString("resume-file")
	in.ResumeText, _ = flags.GetString("resume-text")
	in.ResumeStdin, _ = flags.GetBool("resume-stdin")
	in.JobFile, _ = flags.GetString("job-file")
	in.JobText, _ = flags.GetString("job-text")
	in.JobStdin, _ = flags.GetBool("job-stdin")

	return in
}

func reportOptions(config *Config) report.Options {
	return report.Options{
		Format: config.Output.Format,
		Wrap:   config.Output.Wrap,
		Raw:    config.Output.Raw,
	}
}
