package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/medtrack/medtrack-server/internal/client/access"
	"github.com/medtrack/medtrack-server/internal/client/api"
	"github.com/medtrack/medtrack-server/internal/client/guard"
	"github.com/medtrack/medtrack-server/internal/client/session"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	client, err := api.NewClient(apiURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create client: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case "flow":
		flowCmd(client, args)
	case "demo":
		demoCmd(client)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// flowCmd walks the full access-screen lifecycle against a live server:
// guarded route redirect, register (or login), session probe, logout.
func flowCmd(client *api.Client, args []string) {
	fs := flag.NewFlagSet("flow", flag.ExitOnError)
	email := fs.String("email", fmt.Sprintf("user-%d@example.com", time.Now().UnixNano()%100000), "account email")
	password := fs.String("password", "StrongPass123!", "account password")
	login := fs.Bool("login", false, "log in instead of registering")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := session.NewStore(client)
	defer store.Close()
	routeGuard := guard.New(store)

	// Cold start: the guard must hold the dashboard back until the session
	// resolves.
	decision := routeGuard.Evaluate(access.DashboardRoute)
	fmt.Printf("guard before resolve: loading=%v\n", decision.Loading)

	store.Refresh(ctx)
	decision = routeGuard.Evaluate(access.DashboardRoute)
	if decision.RedirectTo != "" {
		fmt.Printf("guard redirects to %s\n", decision.RedirectTo)
	}

	screen := access.NewScreen(client, store)
	if !*login {
		screen.ToggleMode()
	}
	screen.SetEmail(*email)
	screen.SetPassword(*password)

	result := screen.Submit(ctx)
	if state := screen.Snapshot(); state.Err != nil {
		fmt.Fprintf(os.Stderr, "submit failed: %s (%s)\n", state.Err.Message, state.Err.Code)
		os.Exit(1)
	}
	fmt.Printf("authenticated, redirecting to %s\n", result.RedirectTo)

	profile, err := client.Me(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profile fetch failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("signed in as %s\n", profile.Identity)

	if err := client.Logout(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "logout failed: %v\n", err)
		os.Exit(1)
	}
	store.Reset()

	decision = routeGuard.Evaluate(access.DashboardRoute)
	fmt.Printf("after logout, guard redirects to %s\n", decision.RedirectTo)
}

func demoCmd(client *api.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Demo(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "demo session failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("demo session for %s expires %s\n", resp.User.Email, resp.Session.ExpiresAt.Format(time.RFC3339))
}

func printUsage() {
	fmt.Println(`Medical Tracker client - development tool for the auth API

USAGE:
  client <command> [options]

COMMANDS:
  flow      Register (or --login) and walk the guard/session/logout lifecycle
  demo      Start an unregistered demo session
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  # Register a fresh account and exercise the full flow
  client flow

  # Log in with existing credentials
  client flow --login --email=user@example.com --password=StrongPass123!`)
}
