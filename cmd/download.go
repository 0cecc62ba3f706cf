package cmd

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanq16/streamz/internal/output"
	"github.com/tanq16/streamz/internal/scheduler"
	"github.com/tanq16/streamz/internal/sink"
	"github.com/tanq16/streamz/internal/utils"
)

func newDownloadCmd() *cobra.Command {
	var outputDir string
	var format string
	var uploadTo string
	var profile string

	cmd := &cobra.Command{
		Use:     "download [URL] [--output DIR] [--format FORMAT] [--upload s3://BUCKET/PREFIX]",
		Short:   "Download every item behind a URL",
		Aliases: []string{"dl"},
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if outputDir == "" {
				outputDir = fileConfig.OutputDir
			}
			if uploadTo == "" {
				uploadTo = fileConfig.UploadTo
			}
			if profile == "" {
				profile = fileConfig.AWSProfile
			}
			job := utils.StreamJob{
				URL:       args[0],
				OutputDir: outputDir,
				Format:    format,
				UploadTo:  uploadTo,
			}
			jobs := []utils.StreamJob{job}
			log.Debug().Str("op", "cmd/download").Msgf("starting scheduler with %d jobs", len(jobs))
			runJobs(jobs, profile)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory")
	cmd.Flags().StringVar(&format, "format", "", "Format id like 137+140 (default picks each item's default)")
	cmd.Flags().StringVar(&uploadTo, "upload", "", "Upload finished files to s3://BUCKET/PREFIX/")
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile used for uploads")
	return cmd
}

// runJobs is shared by download and batch; it exits non-zero on any failure.
func runJobs(jobs []utils.StreamJob, profile string) {
	ctx, cancel := signalContext()
	defer cancel()
	cfg, err := locateHelper(ctx)
	if err != nil {
		fail("Error locating yt-dlp: %v", err)
	}
	opts := scheduler.Options{Workers: workers, Helper: cfg}
	if needsUpload(jobs) {
		uploader, err := sink.NewS3(ctx, profile)
		if err != nil {
			fail("Error creating S3 uploader: %v", err)
		}
		opts.Uploader = uploader
	}
	if output.IsInteractive() {
		if f, err := utils.LogToFile(utils.LogFile); err == nil {
			defer f.Close()
		}
	}
	_, err = scheduler.Run(ctx, jobs, opts)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fail("Interrupted")
	default:
		fail("Encountered failed operation(s)")
	}
}

func needsUpload(jobs []utils.StreamJob) bool {
	for _, job := range jobs {
		if job.UploadTo != "" {
			return true
		}
	}
	return false
}
