// Package main provides the focus client CLI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/focusbox/internal/api/connect"
)

var (
	app    = kingpin.New("focusbox-usercli", "focusbox focus client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()

	// request command
	requestCmd = app.Command("request", "Request audio focus for the bridge")

	// abandon command
	abandonCmd = app.Command("abandon", "Abandon the bridge's audio focus")

	// state command
	stateCmd = app.Command("state", "Show bridge state").Alias("status")

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Subscribe to bridge events")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewFocusServiceClient(http.DefaultClient, *server)
	ctx := context.Background()

	switch command {
	case requestCmd.FullCommand():
		request(ctx, client)
	case abandonCmd.FullCommand():
		abandon(ctx, client)
	case stateCmd.FullCommand():
		state(ctx, client)
	case subscribeCmd.FullCommand():
		subscribe(ctx, client)
	}
}

func request(ctx context.Context, client *apiconnect.FocusServiceClient) {
	resp, err := client.RequestFocus(ctx, connect.NewRequest(&apiconnect.RequestFocusRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Request %s\n", resp.Msg.Result)
	printFlags(resp.Msg.State)
}

func abandon(ctx context.Context, client *apiconnect.FocusServiceClient) {
	resp, err := client.AbandonFocus(ctx, connect.NewRequest(&apiconnect.AbandonFocusRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Focus abandoned")
	printFlags(resp.Msg.State)
}

func state(ctx context.Context, client *apiconnect.FocusServiceClient) {
	resp, err := client.GetState(ctx, connect.NewRequest(&apiconnect.GetStateRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	s := resp.Msg
	fmt.Println("\n=== BRIDGE STATE ===")
	fmt.Printf("Phase: %s (since %s)\n", s.Phase, s.StartedAt.Format("15:04:05"))
	fmt.Printf("Request Style: %s\n", s.Style)
	fmt.Printf("Output: %s (volume %d, %s)\n", s.Output, s.Volume, s.Playback)
	fmt.Printf("Subscribers: %d\n", s.Subscribers)
	printFlags(s.State)

	fmt.Println("\nFocus Stack (bottom to top):")
	if len(s.Stack) == 0 {
		fmt.Println("  (empty)")
	}
	for _, e := range s.Stack {
		note := e.Loss
		if e.Parked {
			note = "parked"
		}
		if note == "" {
			note = "holding"
		}
		fmt.Printf("  %-16s gain=%-20s usage=%-20s %s\n", e.Client, e.Gain, e.Usage, note)
	}
	fmt.Println()
}

func subscribe(ctx context.Context, client *apiconnect.FocusServiceClient) {
	stream, err := client.SubscribeEvents(ctx, connect.NewRequest(&apiconnect.SubscribeEventsRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Subscribed to events. Press Ctrl+C to exit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		os.Exit(0)
	}()

	for stream.Receive() {
		printEvent(stream.Msg())
	}

	if err := stream.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printEvent(e *apiconnect.Event) {
	fmt.Printf("[%d] %s ", e.SequenceNo, e.Type)
	switch e.Type {
	case "volume", "duck":
		fmt.Printf("level=%d", e.Level)
	case "focus", apiconnect.EventTypeInitialState:
		if e.Signal != "" {
			fmt.Printf("signal=%s ", e.Signal)
		}
		if e.State != nil {
			fmt.Printf("authorized=%t resume=%t delayed=%t",
				e.State.PlaybackAuthorized, e.State.ResumeOnFocusGain, e.State.PlaybackDelayed)
		}
	}
	fmt.Println()
}

func printFlags(s apiconnect.FocusState) {
	fmt.Printf("  Authorized: %t\n", s.PlaybackAuthorized)
	fmt.Printf("  Resume On Gain: %t\n", s.ResumeOnFocusGain)
	fmt.Printf("  Delayed: %t\n", s.PlaybackDelayed)
}
