package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanq16/streamz/internal/helper"
	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/output"
	"github.com/tanq16/streamz/internal/process"
	"github.com/tanq16/streamz/internal/stream"
	"github.com/tanq16/streamz/internal/worker"
)

func newCleanCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean-cache",
		Short: "Remove the yt-dlp cache",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signalContext()
			defer cancel()
			cfg, err := locateHelper(ctx)
			if err != nil {
				fail("Error locating yt-dlp: %v", err)
			}
			l := loop.New()
			c := stream.NewCleanCache(l, process.ExecFactory, cfg)
			if err := stream.RunCleanCache(ctx, l, c); err != nil {
				fail("Error cleaning cache: %v", err)
			}
			output.PrintSuccess(fmt.Sprintf("Cache cleaned in %s", stream.CacheDir()))
		},
	}
}

func newUpgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Update yt-dlp to its latest release",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signalContext()
			defer cancel()
			cfg, err := locateHelper(ctx)
			if err != nil {
				fail("Error locating yt-dlp: %v", err)
			}
			l := loop.New()
			u := stream.NewUpgrader(l, process.ExecFactory, cfg)
			if err := stream.RunUpgrade(ctx, l, u); err != nil {
				fail("Error upgrading yt-dlp: %v", err)
			}
			output.PrintSuccess("yt-dlp is up to date")
		},
	}
}

func collectExtractors() ([]string, []string) {
	ctx, cancel := signalContext()
	defer cancel()
	cfg, err := locateHelper(ctx)
	if err != nil {
		fail("Error locating yt-dlp: %v", err)
	}
	l := loop.New()
	c := stream.NewExtractorListCollector(l, process.ExecFactory, cfg)
	names, descriptions, err := stream.CollectExtractors(ctx, l, c)
	if err != nil {
		fail("Error listing extractors: %v", err)
	}
	return names, descriptions
}

func newExtractorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extractors",
		Short: "List the sites yt-dlp can extract from",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			names, descriptions := collectExtractors()
			for i, name := range names {
				if name == "" {
					continue
				}
				line := output.FInfo(name)
				if i < len(descriptions) && descriptions[i] != "" {
					line += " " + output.FDebug(descriptions[i])
				}
				fmt.Println(line)
			}
		},
	}
}

func newSupportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supports [URL]",
		Short: "Check whether an extractor matches the URL's host",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			host := args[0]
			if parsed, err := url.Parse(args[0]); err == nil && parsed.Host != "" {
				host = parsed.Hostname()
			}
			names, _ := collectExtractors()
			var patterns []string
			for _, name := range names {
				if name = strings.TrimSpace(name); name != "" {
					patterns = append(patterns, name)
				}
			}
			if !stream.MatchesHost(host, patterns...) {
				fail("No extractor matches %s", host)
			}
			output.PrintSuccess(fmt.Sprintf("%s is supported", host))
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the streamz and yt-dlp versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signalContext()
			defer cancel()
			fmt.Printf("%s %s\n", output.FHeader("streamz"), StreamzVersion)
			cfg := globalHelper
			path, err := helper.Locate(ctx, cfg, false)
			if err != nil {
				fmt.Printf("%s %s\n", output.FHeader("yt-dlp"), output.FWarning("not installed"))
				return
			}
			cfg.Program = path
			pool := worker.NewPool(1)
			defer pool.Wait()
			versions := stream.NewVersionCache(cfg, pool, nil)
			version, err := versions.VersionAsync(ctx).Wait(ctx)
			if err != nil {
				fail("Interrupted")
			}
			fmt.Printf("%s %s %s\n", output.FHeader("yt-dlp"), version, output.FDebug(cfg.ProgramPath()))
			fmt.Printf("%s %s\n", output.FHeader("website"), stream.Website)
		},
	}
}
