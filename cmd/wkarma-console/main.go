package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lcalzada-xor/wkarma/internal/console/client"
	"github.com/lcalzada-xor/wkarma/internal/console/ui"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:8080", "Daemon API address")
		user     = flag.String("user", "operator", "Operator name")
		password = flag.String("password", os.Getenv("WKARMA_PASSWORD"), "Operator password (or WKARMA_PASSWORD)")
	)
	flag.Parse()

	feed := client.NewClient(*addr, *user, *password)
	model := ui.NewModel(feed)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running console: %v\n", err)
		os.Exit(1)
	}

	if err := feed.Close(); err != nil {
		log.Printf("Error closing WebSocket connection: %v", err)
	}
}
