// Package main provides the Spotify authentication tool.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/focusbox/internal/infra/spotify"
)

var (
	app          = kingpin.New("focusbox-auth", "Spotify authentication tool for the focusbox output")
	clientID     = app.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = app.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	port         = app.Flag("port", "Callback server port").Default("8888").Int()
	listDevices  = app.Flag("devices", "List Connect devices after authorizing").Default("true").Bool()

	auth  *spotifyauth.Authenticator
	ch    = make(chan *oauth2.Token)
	state = "focusbox-auth-state"
)

const donePage = `<!DOCTYPE html>
<html>
<head><title>focusbox - Authorization Complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 20vh">
  <h1>Authorization Complete</h1>
  <p>You can close this window and return to the terminal.</p>
</body>
</html>
`

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", *port)
	auth = spotifyauth.New(
		spotifyauth.WithRedirectURL(redirectURI),
		spotifyauth.WithClientID(*clientID),
		spotifyauth.WithClientSecret(*clientSecret),
		spotifyauth.WithScopes(spotify.Scopes...),
	)

	http.HandleFunc("/callback", completeAuth)
	server := &http.Server{Addr: fmt.Sprintf(":%d", *port)}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	fmt.Println("Please visit the following URL to authorize focusbox:")
	fmt.Println("")
	fmt.Println(auth.AuthURL(state))
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	token := <-ch

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown server: %v", err)
	}

	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")
	fmt.Println("")
	fmt.Println("Refresh Token:")
	fmt.Println(token.RefreshToken)
	fmt.Println("")
	fmt.Println("Set it as environment variable:")
	fmt.Printf("export SPOTIFY_REFRESH_TOKEN=\"%s\"\n", token.RefreshToken)

	if *listDevices {
		printDevices(token)
	}
}

// printDevices shows the Connect devices usable as output.settings.device_name.
func printDevices(token *oauth2.Token) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := spotifyapi.New(auth.Client(ctx, token))
	devices, err := client.PlayerDevices(ctx)
	if err != nil {
		log.Printf("Failed to list devices: %v", err)
		return
	}

	fmt.Println("")
	if len(devices) == 0 {
		fmt.Println("No Connect devices online. Open Spotify on the target device and retry.")
		return
	}
	fmt.Println("Connect devices (use as output.settings.device_name or device_id):")
	for _, d := range devices {
		active := ""
		if d.Active {
			active = " (active)"
		}
		fmt.Printf("  %-24s %-12s id=%s volume=%d%s\n", d.Name, d.Type, d.ID, int(d.Volume), active)
	}
}

func completeAuth(w http.ResponseWriter, r *http.Request) {
	token, err := auth.Token(r.Context(), state, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusForbidden)
		log.Printf("Failed to get token: %v", err)
		return
	}

	if st := r.FormValue("state"); st != state {
		http.Error(w, "State mismatch", http.StatusForbidden)
		log.Printf("State mismatch: %s != %s", st, state)
		return
	}

	fmt.Fprint(w, donePage)
	ch <- token
}
