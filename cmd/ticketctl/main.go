// Command ticketctl talks to a running TicketGPT server.
//
//	ticketctl chat "how many tickets are open?"
//	ticketctl speak question.mp3
//	ticketctl ws question.webm
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain"
)

func main() {
	server := flag.String("server", envOr("TICKETGPT_SERVER", "http://localhost:8080"), "server base URL")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	verbose := flag.Bool("v", false, "log progress")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 2 {
		usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	client := NewClient(*server, *timeout, logger)

	if err := run(client, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(client *Client, command string, args []string) error {
	switch command {
	case "chat":
		result, err := client.Chat(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printResult(result)

	case "speak":
		audio, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		result, err := client.Speak(audio, args[0])
		if err != nil {
			return err
		}
		printResult(result)

	case "ws":
		audio, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return client.Stream(audio, args[0], func(msg wsMessage) {
			switch msg.Type {
			case "transcript":
				if msg.NoSpeech {
					fmt.Println("No speech was detected in the recording.")
					return
				}
				fmt.Println("Transcript:", msg.Transcript)
			case "answer":
				fmt.Println(msg.Answer)
			}
		})

	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func printResult(result *domain.QueryResult) {
	if result.NoSpeech {
		fmt.Println("No speech was detected in the recording.")
		return
	}
	if result.Transcript != "" {
		fmt.Println("Transcript:", result.Transcript)
	}
	fmt.Println(result.Answer)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: ticketctl [flags] chat <question>\n")
	fmt.Fprintf(os.Stderr, "       ticketctl [flags] speak <audio file>\n")
	fmt.Fprintf(os.Stderr, "       ticketctl [flags] ws <audio file>\n")
	flag.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
