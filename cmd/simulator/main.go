package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/gameplay"
	"github.com/joho/godotenv"
)

const awaitTimeout = 10 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}
	secret := os.Getenv("JWT_SECRET")

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "full":
		fullCmd(NewAPIClient(apiURL, mustSecret(secret)), args)
	case "populate":
		populateCmd(NewAPIClient(apiURL, mustSecret(secret)), args)
	case "watch":
		watchCmd(NewAPIClient(apiURL, mustSecret(secret)), args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Quiz Simulator - Development tool for populating quiz games

USAGE:
  simulator <command> [options]

COMMANDS:
  full      Upload the sample package, create a game, seat a showman and bot players
  populate  Seat bot players in an existing game
  watch     Join a game as a spectator and print every event
  help      Show this help message

ENVIRONMENT:
  API_URL     Backend API URL (default: http://localhost:8080)
  JWT_SECRET  Secret the server validates tokens with (required)

EXAMPLES:
  # Game with a bot showman and 3 bot players, started
  simulator full

  # Leave the showman seat and one slot for you
  simulator full --players=2 --no-showman --no-start

  # Add 2 bots to an existing game
  simulator populate --game=<id> --count=2`)
}

func mustSecret(secret string) string {
	if secret == "" {
		fmt.Println("Error: JWT_SECRET is required")
		os.Exit(1)
	}
	return secret
}

func fullCmd(client *APIClient, args []string) {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	players := fs.Int("players", 3, "Number of bot players")
	maxPlayers := fs.Int("max", 4, "Seats in the game")
	noShowman := fs.Bool("no-showman", false, "Leave the showman seat free")
	noStart := fs.Bool("no-start", false, "Do not start the game")
	verbose := fs.Bool("v", false, "Print every event the bots receive")
	fs.Parse(args)

	if *players < 0 || *players > *maxPlayers {
		fmt.Println("Error: --players must be between 0 and --max")
		os.Exit(1)
	}
	if *noShowman && !*noStart {
		fmt.Println("Error: starting requires the bot showman; pass --no-start")
		os.Exit(1)
	}

	fmt.Println("=== Quiz Simulator: Full Flow ===")
	fmt.Println()

	hostToken, err := client.Token(1)
	exitOn(err, "mint token")

	fmt.Print("Uploading sample package... ")
	pkg, err := client.CreatePackage(hostToken, samplePackage())
	exitOn(err, "upload package")
	fmt.Printf("OK (%s)\n", pkg.ID)

	fmt.Print("Creating game... ")
	created, err := client.CreateGame(hostToken, pkg.ID, *maxPlayers, false)
	exitOn(err, "create game")
	gameID := created.Game.ID
	fmt.Printf("OK (%s)\n", gameID)
	fmt.Println()

	var bots []*Bot
	defer func() {
		for _, b := range bots {
			b.Close()
		}
	}()

	var showman *Bot
	if !*noShowman {
		showman = seatBot(client, gameID, "Showman", 1, gameplay.JoinPayload{Role: domain.RoleShowman, Username: "Showman"}, !*verbose)
		bots = append(bots, showman)
		fmt.Println("  Showman joined")
	}
	for i := 0; i < *players; i++ {
		slot := i
		name := fmt.Sprintf("Bot%d", i+1)
		bots = append(bots, seatBot(client, gameID, name, 100+i, gameplay.JoinPayload{Role: domain.RolePlayer, Slot: &slot, Username: name}, !*verbose))
		fmt.Printf("  [%d/%d] %s joined slot %d\n", i+1, *players, name, slot)
	}

	if !*noStart {
		fmt.Print("\nStarting game... ")
		exitOn(showman.Send(engine.ActionStart, gameID, nil), "start")
		_, err := showman.Await(broadcast.EventGameStarted, awaitTimeout)
		exitOn(err, "start")
		fmt.Println("OK")
	}

	fmt.Println()
	fmt.Println("=========================================")
	fmt.Println("  GAME READY")
	fmt.Println("=========================================")
	fmt.Println()
	fmt.Printf("  Game ID:  %s\n", gameID)
	fmt.Printf("  Sockets:  %s\n", client.WebSocketURL("<token>"))
	fmt.Println()
	fmt.Println("  Bots stay connected until Ctrl-C.")

	waitForInterrupt()
}

func populateCmd(client *APIClient, args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	gameID := fs.String("game", "", "Game ID (required)")
	count := fs.Int("count", 2, "Number of bots to seat")
	firstUser := fs.Int("first-user", 200, "User id of the first bot")
	fs.Parse(args)

	if *gameID == "" {
		fmt.Println("Error: --game is required")
		fmt.Println("\nUsage: simulator populate --game=<id> [--count=2]")
		os.Exit(1)
	}

	fmt.Printf("Seating %d bots in game %s...\n\n", *count, *gameID)

	var bots []*Bot
	for i := 0; i < *count; i++ {
		name := fmt.Sprintf("Guest%d", i+1)
		b, err := Dial(wsURL(client, *firstUser+i), name, *firstUser+i, true)
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED to connect: %v\n", i+1, *count, err)
			continue
		}
		if err := join(b, *gameID, gameplay.JoinPayload{Role: domain.RolePlayer, Username: name}); err != nil {
			fmt.Printf("  [%d/%d] FAILED to join: %v\n", i+1, *count, err)
			b.Close()
			continue
		}
		bots = append(bots, b)
		fmt.Printf("  [%d/%d] %s joined\n", i+1, *count, name)
	}
	defer func() {
		for _, b := range bots {
			b.Close()
		}
	}()

	fmt.Println()
	fmt.Println("Bots stay connected until Ctrl-C.")
	waitForInterrupt()
}

func watchCmd(client *APIClient, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	gameID := fs.String("game", "", "Game ID (required)")
	userID := fs.Int("user", 999, "Spectator user id")
	fs.Parse(args)

	if *gameID == "" {
		fmt.Println("Error: --game is required")
		os.Exit(1)
	}

	b, err := Dial(wsURL(client, *userID), "watch", *userID, false)
	exitOn(err, "connect")
	defer b.Close()

	exitOn(b.Send(engine.ActionJoin, *gameID, gameplay.JoinPayload{Role: domain.RoleSpectator, Username: "watcher"}), "join")

	go func() {
		for range b.Events() {
		}
		fmt.Println("Connection closed")
		os.Exit(0)
	}()
	waitForInterrupt()
}

func seatBot(client *APIClient, gameID, name string, userID int, payload gameplay.JoinPayload, quiet bool) *Bot {
	b, err := Dial(wsURL(client, userID), name, userID, quiet)
	exitOn(err, "connect "+name)
	exitOn(join(b, gameID, payload), "join "+name)
	return b
}

func join(b *Bot, gameID string, payload gameplay.JoinPayload) error {
	if err := b.Send(engine.ActionJoin, gameID, payload); err != nil {
		return err
	}
	_, err := b.Await(broadcast.EventGameData, awaitTimeout)
	return err
}

func wsURL(client *APIClient, userID int) string {
	token, err := client.Token(userID)
	exitOn(err, "mint token")
	return client.WebSocketURL(token)
}

func exitOn(err error, step string) {
	if err != nil {
		fmt.Printf("FAILED\n  %s: %v\n", step, err)
		os.Exit(1)
	}
}

func waitForInterrupt() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}
