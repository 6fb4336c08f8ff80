// Package main provides the remote control CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/plexplayer/internal/api/companion"
)

var (
	app     = kingpin.New("plexctl", "Remote control for plexplayer")
	server  = app.Flag("server", "Player companion API address").Default("http://localhost:32500").Envar("PLEXPLAYER_ADDR").String()
	token   = app.Flag("token", "Companion token (or set PLEXPLAYER_TOKEN env)").Envar("PLEXPLAYER_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("5s").Duration()

	statusCmd = app.Command("status", "Show what is playing")

	playCmd  = app.Command("play", "Resume playback")
	pauseCmd = app.Command("pause", "Pause playback")
	stopCmd  = app.Command("stop", "Stop playback")

	nextCmd     = app.Command("next", "Skip to the next item")
	previousCmd = app.Command("previous", "Skip to the previous item").Alias("prev")
	forwardCmd  = app.Command("forward", "Step forward 30 seconds")
	backCmd     = app.Command("back", "Step back 15 seconds")

	seekCmd    = app.Command("seek", "Seek to a position")
	seekOffset = seekCmd.Arg("position", "Position, e.g. 1m30s").Required().Duration()

	skipToCmd = app.Command("skip-to", "Jump to a queue position")
	skipToPos = skipToCmd.Arg("pos", "Zero-based queue position").Required().Int()

	mediaCmd       = app.Command("play-media", "Play a media key")
	mediaKey       = mediaCmd.Arg("key", "Media key or rating key").Required().String()
	mediaContainer = mediaCmd.Flag("container", "Play queue container key, e.g. /playQueues/9").String()
	mediaOffset    = mediaCmd.Flag("offset", "Start offset").Duration()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := companion.NewClient(nil, *server, *token)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case playCmd.FullCommand():
		err = report(client.Play(ctx), "Playing")
	case pauseCmd.FullCommand():
		err = report(client.Pause(ctx), "Paused")
	case stopCmd.FullCommand():
		err = report(client.Stop(ctx), "Stopped")
	case nextCmd.FullCommand():
		err = report(client.SkipNext(ctx), "Skipped to next")
	case previousCmd.FullCommand():
		err = report(client.SkipPrevious(ctx), "Skipped to previous")
	case forwardCmd.FullCommand():
		err = report(client.StepForward(ctx), "Stepped forward")
	case backCmd.FullCommand():
		err = report(client.StepBack(ctx), "Stepped back")
	case seekCmd.FullCommand():
		err = report(client.SeekTo(ctx, seekOffset.Milliseconds()), "Seeking to "+seekOffset.String())
	case skipToCmd.FullCommand():
		err = report(client.SkipTo(ctx, *skipToPos), fmt.Sprintf("Skipped to %d", *skipToPos))
	case mediaCmd.FullCommand():
		err = report(client.PlayMedia(ctx, *mediaKey, *mediaContainer, mediaOffset.Milliseconds()), "Playing "+*mediaKey)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func report(err error, message string) error {
	if err != nil {
		return err
	}
	fmt.Println(message)
	return nil
}

func status(ctx context.Context, client *companion.Client) error {
	s, err := client.Poll(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n=== PLAYER STATUS ===")
	fmt.Printf("State: %s\n", s.State)
	if s.RatingKey == "" {
		fmt.Println("\nNothing playing")
		fmt.Println()
		return nil
	}

	fmt.Printf("\nNow Playing (%s):\n", s.Kind)
	fmt.Printf("  Title: %s\n", s.Title)
	fmt.Printf("  Rating Key: %s\n", s.RatingKey)
	fmt.Printf("  Position: %s / %s\n", clock(s.TimeMs), clock(s.DurationMs))
	if s.Seeking != "no_seek" {
		fmt.Printf("  Seeking: %s (%s)\n", s.Seeking, s.Mode)
	}

	if len(s.Reported) > 0 {
		fmt.Println("\nLast Reported:")
		for _, r := range s.Reported {
			fmt.Printf("  %s: %s %s at %s\n", r.Kind, r.State, r.RatingKey, clock(r.TimeMs))
		}
	}
	fmt.Println()
	return nil
}

func clock(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Truncate(time.Second).String()
}
