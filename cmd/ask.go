/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/config"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/pipeline"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/provider"
	providertypes "github.com/Maris2112/tsunamibot-whatsapp/pkg/provider/types"

	"github.com/spf13/cobra"
)

var questionText string

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Send a question or start an interactive chat",
	Long:  "Loads the relay configuration, connects to the configured AI backend, and sends one question or starts an interactive chat with the same answer sanitation the webhook path applies.",
	Run: func(cmd *cobra.Command, args []string) {
		question := resolveQuestion(args)

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		client, err := provider.New(cfg)
		if err != nil {
			fmt.Printf("failed to initialize provider: %v\n", err)
			return
		}

		ctx := context.Background()
		if err := client.Health(ctx); err != nil {
			fmt.Printf("provider health check failed: %v\n", err)
			return
		}

		sanitizer := pipeline.NewSanitizer(cfg.Channels.GreenAPI.InstanceID, cfg.Pipeline.RepeatToken, cfg.Pipeline.RepeatLimit)

		if question != "" {
			runSingleQuestion(ctx, client, sanitizer, question)
			return
		}

		runInteractive(ctx, client, sanitizer)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&questionText, "question", "q", "", "question text to send")
}

func resolveQuestion(args []string) string {
	if value := strings.TrimSpace(questionText); value != "" {
		return value
	}

	if len(args) == 0 {
		return ""
	}

	value := strings.TrimSpace(strings.Join(args, " "))
	if value == "" {
		return ""
	}

	return value
}

func runSingleQuestion(ctx context.Context, client provider.Client, sanitizer *pipeline.Sanitizer, question string) {
	answer, err := askOnce(ctx, client, sanitizer, question, nil)
	if err != nil {
		fmt.Printf("question failed: %v\n", err)
		return
	}

	fmt.Println(answer)
}

func runInteractive(ctx context.Context, client provider.Client, sanitizer *pipeline.Sanitizer) {
	scanner := bufio.NewScanner(os.Stdin)
	var history []providertypes.Turn

	for {
		fmt.Print("👨🏻 ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				fmt.Printf("input error: %v\n", err)
			}
			return
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if isExitCommand(question) {
			return
		}

		answer, err := askOnce(ctx, client, sanitizer, question, history)
		if err != nil {
			fmt.Printf("question failed: %v\n", err)
			continue
		}

		history = append(history,
			providertypes.Turn{Role: "user", Content: question},
			providertypes.Turn{Role: "assistant", Content: answer},
		)

		printAssistantMessage(answer)
	}
}

// askOnce sends one question and runs the answer through the same sanitizer
// the webhook path uses, so the CLI shows what a chat user would receive.
func askOnce(ctx context.Context, client provider.Client, sanitizer *pipeline.Sanitizer, question string, history []providertypes.Turn) (string, error) {
	raw, err := client.Ask(ctx, question, history)
	if err != nil {
		return "", err
	}

	answer, reason := sanitizer.Sanitize(raw)
	if reason != "" {
		return "", fmt.Errorf("answer suppressed: %s", reason)
	}

	return answer, nil
}

func printAssistantMessage(message string) {
	lines := assistantLines(message)
	for _, line := range lines {
		fmt.Printf("🤖 %s\n", line)
	}
	if len(lines) > 0 {
		fmt.Println()
	}
}

func assistantLines(message string) []string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "\n")
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit", ":q":
		return true
	default:
		return false
	}
}
