// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/focusbox/internal/api/connect"
)

var (
	app    = kingpin.New("focusbox-admincli", "focusbox host simulator admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// acquire command
	acquireCmd   = app.Command("acquire", "Make a simulated app request focus")
	acquireApp   = acquireCmd.Arg("app", "App name").Required().String()
	acquireGain  = acquireCmd.Flag("gain", "gain, transient, may_duck or exclusive").Default("gain").String()
	acquireUsage = acquireCmd.Flag("usage", "media, call, navigation, notification or assistant").Default("media").String()

	// release command
	releaseCmd = app.Command("release", "Release a simulated app's focus")
	releaseID  = releaseCmd.Arg("client-id", "Client ID (UUID)").Required().String()

	// clients command
	clientsCmd = app.Command("clients", "List simulated apps").Alias("list")

	// inject command
	injectCmd    = app.Command("inject", "Deliver a focus signal to the bridge")
	injectSignal = injectCmd.Arg("signal", "gained, lost, lost_transient or lost_transient_duck").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewHostServiceClient(http.DefaultClient, *server, apiconnect.WithAdminToken(*token))
	ctx := context.Background()

	switch command {
	case acquireCmd.FullCommand():
		acquire(ctx, client, *acquireApp, *acquireGain, *acquireUsage)
	case releaseCmd.FullCommand():
		release(ctx, client, *releaseID)
	case clientsCmd.FullCommand():
		listClients(ctx, client)
	case injectCmd.FullCommand():
		inject(ctx, client, *injectSignal)
	}
}

func acquire(ctx context.Context, client *apiconnect.HostServiceClient, app, gain, usage string) {
	resp, err := client.Acquire(ctx, connect.NewRequest(&apiconnect.AcquireRequest{
		App:   app,
		Gain:  gain,
		Usage: usage,
	}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	c := resp.Msg.Client
	fmt.Printf("%s: %s\n", c.App, c.Result)
	if c.ID != "" && c.Result != "failed" {
		fmt.Printf("Client ID: %s\n", c.ID)
	}
}

func release(ctx context.Context, client *apiconnect.HostServiceClient, id string) {
	if _, err := client.Release(ctx, connect.NewRequest(&apiconnect.ReleaseRequest{ID: id})); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Released")
}

func listClients(ctx context.Context, client *apiconnect.HostServiceClient) {
	resp, err := client.ListClients(ctx, connect.NewRequest(&apiconnect.ListClientsRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Msg.Clients) == 0 {
		fmt.Println("No simulated apps")
		return
	}

	fmt.Printf("Simulated apps (%d):\n", len(resp.Msg.Clients))
	for _, c := range resp.Msg.Clients {
		last := c.LastSignal
		if last == "" {
			last = "-"
		}
		fmt.Printf("  %s  %-12s gain=%-20s usage=%-20s result=%-8s last=%s since %s\n",
			c.ID, c.App, c.Gain, c.Usage, c.Result, last, c.AcquiredAt.Format("15:04:05"))
	}
}

func inject(ctx context.Context, client *apiconnect.HostServiceClient, signal string) {
	if _, err := client.InjectSignal(ctx, connect.NewRequest(&apiconnect.InjectSignalRequest{Signal: signal})); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signal %s queued\n", signal)
}
