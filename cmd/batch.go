package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tanq16/streamz/internal/output"
	"github.com/tanq16/streamz/internal/utils"
)

type BatchFile struct {
	UploadTo string             `yaml:"upload"`
	Entries  []utils.BatchEntry `yaml:"downloads"`
}

func newBatchCmd() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE] [OPTIONS]",
		Short: "Process multiple downloads from a YAML file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			batch, err := readBatchFile(args[0])
			if err != nil {
				fail("%v", err)
			}
			jobs := buildJobsFromBatch(batch, fileConfig.OutputDir)
			if len(jobs) == 0 {
				fail("No valid jobs found in the batch file")
			}
			if profile == "" {
				profile = fileConfig.AWSProfile
			}
			runJobs(jobs, profile)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile used for uploads")
	return cmd
}

func readBatchFile(path string) (BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BatchFile{}, fmt.Errorf("error reading YAML file: %w", err)
	}
	var batch BatchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return BatchFile{}, fmt.Errorf("error parsing YAML file: %w", err)
	}
	return batch, nil
}

func buildJobsFromBatch(batch BatchFile, defaultDir string) []utils.StreamJob {
	var jobs []utils.StreamJob
	for _, entry := range batch.Entries {
		if entry.URL == "" {
			output.PrintWarning("Empty link found in batch file, skipping...")
			continue
		}
		dir := entry.OutputPath
		if dir == "" {
			dir = defaultDir
		}
		jobs = append(jobs, utils.StreamJob{
			URL:       entry.URL,
			OutputDir: filepath.Clean(dir),
			Format:    entry.Format,
			Referer:   entry.Referer,
			UploadTo:  batch.UploadTo,
		})
	}
	return jobs
}
