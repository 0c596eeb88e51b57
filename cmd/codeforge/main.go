// Command codeforge serves the code playground and manages saved snippets.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/codeforge-edu/codeforge/cmd/codeforge/commands"
)

const version = "0.1.0-dev"

func main() {
	// Secrets like DATABASE_URL and auth tokens commonly live in a .env file
	// during development; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "serve":
		err = commands.ServeCommand(args)
	case "init":
		err = commands.InitCommand(args)
	case "snippets":
		err = commands.SnippetsCommand(args)
	case "version":
		fmt.Printf("codeforge version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("codeforge - Browser code playground with saved snippets")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  codeforge serve [directory]               Start the playground server")
	fmt.Println("  codeforge init [directory]                Write a default codeforge.yaml")
	fmt.Println("  codeforge snippets <action> [flags]       Manage saved snippets")
	fmt.Println("  codeforge version                         Show version")
	fmt.Println("  codeforge help                            Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  codeforge serve                           # Serve current directory")
	fmt.Println("  codeforge serve ./classroom               # Serve a prepared directory")
	fmt.Println("  codeforge serve --port 3000 --watch       # Custom port with live reload")
	fmt.Println("  codeforge snippets list                   # List your saved snippets")
	fmt.Println("  codeforge snippets add --title=Demo --language=behavior --code='alert(1)'")
	fmt.Println("  codeforge snippets delete --id=abc123 -y  # Delete a snippet")
	fmt.Println()
	fmt.Println("Documentation: https://github.com/codeforge-edu/codeforge")
}
