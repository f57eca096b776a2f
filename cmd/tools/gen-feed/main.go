// Command gen-feed writes the synthetic body as a pose feed directory that
// bodysim -feed can replay.
package main

import (
	"flag"
	"log"

	"github.com/banshee-data/bodysim/internal/fsutil"
	"github.com/banshee-data/bodysim/internal/pose"
)

func main() {
	output := flag.String("o", "feed", "output directory")
	frames := flag.Int("n", 120, "number of frames")
	period := flag.Int("period", 0, "arm swing period in frames (0 keeps the default)")
	flag.Parse()

	body := pose.NewSynthetic(*frames)
	if *period > 0 {
		body.Period = *period
	}
	if err := pose.WriteFeed(fsutil.OSFileSystem{}, *output, body, body.Roster(), 1, *frames); err != nil {
		log.Fatalf("Failed to write feed: %v", err)
	}
	log.Printf("✓ Created: %s (%d frames, %d sensors)", *output, *frames, len(body.Roster()))
}
