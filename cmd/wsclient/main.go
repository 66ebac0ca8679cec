// Command wsclient listens on the notification socket and, optionally, records a game run
// every few seconds so quest and level up events can be watched end to end.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"timalaus_progression/pkg/auth"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type gameRun struct {
	Points int    `json:"points"`
	Mode   string `json:"mode"`
}

func main() {
	var (
		server = flag.String("server", "localhost:8080", "api host:port")
		token  = flag.String("token", os.Getenv("TIMALAUS_TOKEN"), "supabase access token")
		secret = flag.String("secret", os.Getenv("APP_AUTH_JWTSECRET"), "jwt secret used to mint a token when -token is empty")
		user   = flag.String("user", "", "user id for a minted token")
		play   = flag.Duration("play", 0, "record a random game run at this interval, 0 disables")
		mode   = flag.String("mode", "classic", "game mode for recorded runs")
	)
	flag.Parse()

	if *token == "" {
		if *secret == "" || *user == "" {
			log.Fatal("either -token or both -secret and -user are required")
		}
		id, err := uuid.Parse(*user)
		if err != nil {
			log.Fatalf("invalid -user: %v", err)
		}
		*token, err = auth.NewSupabaseAuth(auth.Config{JWTSecret: *secret}).IssueToken(id, "", time.Hour)
		if err != nil {
			log.Fatalf("failed to mint token: %v", err)
		}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+*token)

	url := fmt.Sprintf("ws://%s/api/v1/ws", *server)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	go func() {
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				os.Exit(1)
			}

			var event map[string]any
			if err := json.Unmarshal(p, &event); err != nil {
				log.Printf("Received:\n%s\n", p)
				continue
			}
			pretty, _ := json.MarshalIndent(event, "", "  ")
			log.Printf("Received:\n%s\n", pretty)
		}
	}()

	if *play <= 0 {
		select {}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	ticker := time.NewTicker(*play)
	defer ticker.Stop()

	for range ticker.C {
		run := gameRun{Points: rand.Intn(3000), Mode: *mode}
		body, err := json.Marshal(run)
		if err != nil {
			log.Println("json marshal error:", err)
			continue
		}

		req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://%s/api/v1/games", *server), bytes.NewReader(body))
		if err != nil {
			log.Println("request error:", err)
			continue
		}
		req.Header.Set("Authorization", "Bearer "+*token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			log.Println("post error:", err)
			continue
		}
		var result map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()

		pretty, _ := json.MarshalIndent(result, "", "  ")
		log.Printf("Sent run %d points (%s), status %d:\n%s\n", run.Points, run.Mode, resp.StatusCode, pretty)
	}
}
