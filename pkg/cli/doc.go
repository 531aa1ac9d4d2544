/*
Package cli provides command-line helpers for the relay command.

Output Formatting:

Commands print results as text, JSON or CSV. Tabular results implement
Table so the text formatter can align them and the CSV formatter can
write them row by row:

	format, err := cli.ParseOutputFormat(flagFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "Checking providers")
	progress.Start(int64(len(names)))
	for i, name := range names {
		check(name)
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Exit Codes:

ExitCode maps a command error to the process exit status, distinguishing
configuration errors from runtime failures.
*/
package cli
