package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/codeforge-edu/codeforge/internal/config"
	"github.com/codeforge-edu/codeforge/playground"
)

// defaultTimeout is the default context timeout for CLI operations
const defaultTimeout = 30 * time.Second

// SnippetsCommand implements CRUD operations on saved snippets from the
// command line. The operator identity scopes every operation, the same way a
// bearer token scopes API requests.
// Usage: codeforge snippets <action> [flags]
func SnippetsCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: codeforge snippets <action> [flags]\n\n" +
			"Actions:\n" +
			"  list      List your saved snippets\n" +
			"  add       Save a new snippet\n" +
			"  update    Update a snippet's title and code by ID\n" +
			"  delete    Delete a snippet by ID\n\n" +
			"Flags:\n" +
			"  --dir=<directory>          Served directory holding codeforge.yaml (default: .)\n" +
			"  --format=<table|json>      Output format for list (default: table)\n" +
			"  --title=<title>            Snippet title for add\n" +
			"  --language=<lang>          structure, presentation or behavior\n" +
			"  --code=<code>              Snippet content for add\n" +
			"  --id=<id>                  Snippet ID for delete\n" +
			"  --operator=<name>          Owner identity (default: $USER)\n" +
			"  -y, --yes                  Skip confirmation prompts\n\n" +
			"Examples:\n" +
			"  codeforge snippets list\n" +
			"  codeforge snippets list --format=json\n" +
			"  codeforge snippets add --title=Demo --language=behavior --code='alert(1)'\n" +
			"  codeforge snippets delete --id=abc123 -y")
	}

	action := args[0]
	opts := parseSnippetFlags(args[1:])

	config.SetOperator(opts.operator)
	owner := config.GetOperator()
	if owner == "" {
		return fmt.Errorf("no operator identity; set --operator or $USER")
	}

	cfg, err := config.LoadFromDir(opts.dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	switch action {
	case "list":
		return snippetsList(ctx, st, owner, opts)
	case "add":
		return snippetsAdd(ctx, st, owner, opts)
	case "update":
		return snippetsUpdate(ctx, st, owner, opts)
	case "delete":
		return snippetsDelete(ctx, st, owner, opts)
	default:
		return fmt.Errorf("unknown action: %s. Valid actions: list, add, update, delete", action)
	}
}

// snippetOptions holds parsed command-line flags
type snippetOptions struct {
	dir      string
	format   string
	title    string
	language string
	code     string
	id       string
	operator string
	yes      bool
}

func parseSnippetFlags(args []string) snippetOptions {
	opts := snippetOptions{dir: ".", format: "table"}

	for _, arg := range args {
		if arg == "-y" || arg == "--yes" {
			opts.yes = true
			continue
		}
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(arg, "--"), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "dir":
			opts.dir = parts[1]
		case "format":
			opts.format = parts[1]
		case "title":
			opts.title = parts[1]
		case "language":
			opts.language = parts[1]
		case "code":
			opts.code = parts[1]
		case "id":
			opts.id = parts[1]
		case "operator":
			opts.operator = parts[1]
		}
	}

	return opts
}

func snippetsList(ctx context.Context, st playground.Store, owner string, opts snippetOptions) error {
	snippets, err := st.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to list snippets: %w", err)
	}

	if len(snippets) == 0 {
		fmt.Println("No snippets found.")
		return nil
	}

	if opts.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snippets)
	}

	return snippetsTable(snippets)
}

func snippetsTable(snippets []playground.Snippet) error {
	const maxCodeWidth = 40

	rows := make([][]string, 0, len(snippets))
	for _, s := range snippets {
		code := s.Code
		if len(code) > maxCodeWidth {
			code = code[:maxCodeWidth-3] + "..."
		}
		code = strings.ReplaceAll(code, "\n", " ")
		rows = append(rows, []string{
			s.ID, s.Title, string(s.Language), code, s.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}

	headers := []string{"id", "title", "language", "code", "updated"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var header, separator strings.Builder
	for i, h := range headers {
		if i > 0 {
			header.WriteString(" | ")
			separator.WriteString("-+-")
		}
		header.WriteString(fmt.Sprintf("%-*s", widths[i], h))
		separator.WriteString(strings.Repeat("-", widths[i]))
	}
	fmt.Println(header.String())
	fmt.Println(separator.String())

	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i > 0 {
				line.WriteString(" | ")
			}
			line.WriteString(fmt.Sprintf("%-*s", widths[i], cell))
		}
		fmt.Println(line.String())
	}

	fmt.Printf("\n%d snippet(s)\n", len(rows))
	return nil
}

func snippetsAdd(ctx context.Context, st playground.Store, owner string, opts snippetOptions) error {
	if opts.title == "" {
		return fmt.Errorf("--title is required for add")
	}
	lang := playground.LangStructure
	if opts.language != "" {
		var err error
		lang, err = playground.ParseLanguage(opts.language)
		if err != nil {
			valid := []string{string(playground.LangStructure), string(playground.LangPresentation), string(playground.LangBehavior)}
			sort.Strings(valid)
			return fmt.Errorf("invalid --language %q. Valid languages: %s", opts.language, strings.Join(valid, ", "))
		}
	}

	snippet, err := st.Create(ctx, playground.SnippetFields{
		Title:    opts.title,
		Language: lang,
		Code:     opts.code,
		OwnerID:  owner,
	})
	if err != nil {
		return fmt.Errorf("failed to save snippet: %w", err)
	}

	fmt.Printf("Snippet %s saved.\n", snippet.ID)
	return nil
}

func snippetsUpdate(ctx context.Context, st playground.Store, owner string, opts snippetOptions) error {
	if opts.id == "" {
		return fmt.Errorf("--id is required for update")
	}
	if opts.title == "" {
		return fmt.Errorf("--title is required for update")
	}

	err := st.Update(ctx, opts.id, playground.SnippetFields{
		Title:   opts.title,
		Code:    opts.code,
		OwnerID: owner,
	})
	if err != nil {
		return fmt.Errorf("failed to update snippet: %w", err)
	}

	fmt.Printf("Snippet %s updated.\n", opts.id)
	return nil
}

func snippetsDelete(ctx context.Context, st playground.Store, owner string, opts snippetOptions) error {
	if opts.id == "" {
		return fmt.Errorf("--id is required for delete")
	}

	if !opts.yes {
		fmt.Printf("Are you sure you want to delete snippet %s? [y/N] ", opts.id)
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nDelete cancelled (failed to read input).")
			return nil
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Delete cancelled.")
			return nil
		}
	}

	if err := st.Delete(ctx, opts.id, owner); err != nil {
		if playground.IsNotFound(err) {
			// Already gone counts as done
			fmt.Printf("Snippet %s deleted.\n", opts.id)
			return nil
		}
		return fmt.Errorf("failed to delete snippet: %w", err)
	}

	fmt.Printf("Snippet %s deleted.\n", opts.id)
	return nil
}
