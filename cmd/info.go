package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanq16/streamz/internal/loop"
	"github.com/tanq16/streamz/internal/output"
	"github.com/tanq16/streamz/internal/process"
	"github.com/tanq16/streamz/internal/stream"
)

func newInfoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info [URL] [--json]",
		Short: "List the items and formats behind a URL",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := signalContext()
			defer cancel()
			cfg, err := locateHelper(ctx)
			if err != nil {
				fail("Error locating yt-dlp: %v", err)
			}
			l := loop.New()
			d := stream.NewInfoDownloader(l, process.ExecFactory, cfg)
			infos, err := stream.CollectInfo(ctx, l, d, args[0])
			if err != nil {
				fail("Error collecting info: %v", err)
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(infos); err != nil {
					fail("Error encoding info: %v", err)
				}
				return
			}
			printInfos(infos)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the merged items as JSON")
	return cmd
}

func printInfos(infos []stream.Info) {
	for i := range infos {
		info := &infos[i]
		index := output.FDebug(fmt.Sprintf("%3d.", i+1))
		if !info.IsAvailable() {
			fmt.Printf("%s %s %s\n", index, output.FError(info.ID), output.FWarning(info.Error().String()))
			continue
		}
		fmt.Printf("%s %s %s\n", index, output.FInfo(info.ID), output.FHeader(info.Title()))
		fmt.Printf("     %s %s\n", output.FDetail("format"), info.FormatString())
		for _, f := range info.DefaultFormats() {
			fmt.Printf("     %s\n", output.FFormat(formatKind(f), f.String()))
		}
	}
}

func formatKind(f stream.Format) string {
	switch {
	case f.HasVideo() && f.HasAudio():
		return output.FormatMuxed
	case f.HasVideo():
		return output.FormatVideoOnly
	case f.HasAudio():
		return output.FormatAudioOnly
	default:
		return ""
	}
}
