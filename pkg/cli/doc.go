/*
Package cli provides the reporting and process helpers used by the
dayamlchecker command.

Reporting:

A Reporter prints file outcomes in text or JSON:

	reporter := cli.NewReporter(os.Stdout, cli.FormatText, cli.ModeMinimal)
	reporter.Result(result)
	reporter.Finish(summary, true)

Text output has three modes. The default prints one line per file,
minimal prints a dot per clean file ("j" for templated files), and quiet
prints only files with errors.

Progress:

When stderr is a terminal, a progress bar can be drawn while files are
checked:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(len(files))

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
