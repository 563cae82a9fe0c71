package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	config "metrics-chat-api/configs"
	"metrics-chat-api/pkg/ollama"
	"metrics-chat-api/pkg/services"

	"github.com/joho/godotenv"
)

// Interactive terminal loop for chatting with the dataset.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.LoadConfig()

	llmClient := ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel, time.Duration(cfg.OllamaTimeout)*time.Second)

	store, err := services.NewMetricsStore(cfg.DataPath)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	graph, err := services.NewCausalGraph(cfg.CausalGraphPath)
	if err != nil {
		log.Fatalf("Failed to load causal graph: %v", err)
	}

	intentService := services.NewIntentService(llmClient)
	planner := services.NewQueryPlanner()
	engine := services.NewResponseEngine(store, graph, llmClient)
	sessions := services.NewSessionStore()
	chatService := services.NewChatService(intentService, planner, engine, store, sessions)

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Analytics Chatbot")
	fmt.Println("Ask questions about your metrics. Type 'exit' to quit.")
	fmt.Println(strings.Repeat("=", 60))

	const sessionID = "cli"
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if lower := strings.ToLower(input); lower == "exit" || lower == "quit" {
			fmt.Println("\nExiting chatbot. Goodbye!")
			break
		}

		result := chatService.Handle(context.Background(), sessionID, input)
		fmt.Printf("Intent: %s\n", result.Intent)
		fmt.Printf("\nBot: %s\n", result.Reply)

		if len(result.Followups) > 0 {
			fmt.Println("\nSuggested follow-ups:")
			for _, f := range result.Followups {
				fmt.Printf("  - %s\n", f)
			}
		}
	}
}
