package commands

import (
	"context"
	"testing"

	"github.com/codeforge-edu/codeforge/internal/store"
	"github.com/codeforge-edu/codeforge/playground"
)

func TestParseSnippetFlags(t *testing.T) {
	opts := parseSnippetFlags([]string{
		"--title=My Demo",
		"--language=behavior",
		"--code=alert(1)",
		"--format=json",
		"--id=abc",
		"-y",
		"positional-is-ignored",
	})

	if opts.title != "My Demo" {
		t.Errorf("title = %q", opts.title)
	}
	if opts.language != "behavior" {
		t.Errorf("language = %q", opts.language)
	}
	if opts.code != "alert(1)" {
		t.Errorf("code = %q", opts.code)
	}
	if opts.format != "json" {
		t.Errorf("format = %q", opts.format)
	}
	if opts.id != "abc" {
		t.Errorf("id = %q", opts.id)
	}
	if !opts.yes {
		t.Error("yes flag not parsed")
	}
	if opts.dir != "." {
		t.Errorf("dir default = %q", opts.dir)
	}
}

func TestSnippetsAddAndDelete(t *testing.T) {
	st, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	err = snippetsAdd(ctx, st, "cli-user", snippetOptions{
		title: "From CLI", language: "presentation", code: "body { margin: 0 }",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	snippets, err := st.List(ctx, "cli-user")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snippets) != 1 {
		t.Fatalf("saved %d snippets", len(snippets))
	}
	if snippets[0].Language != playground.LangPresentation {
		t.Errorf("language = %q", snippets[0].Language)
	}

	err = snippetsDelete(ctx, st, "cli-user", snippetOptions{id: snippets[0].ID, yes: true})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	snippets, _ = st.List(ctx, "cli-user")
	if len(snippets) != 0 {
		t.Errorf("%d snippets remain after delete", len(snippets))
	}

	// Deleting a missing snippet is satisfied, not an error
	err = snippetsDelete(ctx, st, "cli-user", snippetOptions{id: "gone", yes: true})
	if err != nil {
		t.Errorf("double delete: %v", err)
	}
}

func TestSnippetsAddValidation(t *testing.T) {
	st, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	if err := snippetsAdd(ctx, st, "cli-user", snippetOptions{language: "behavior"}); err == nil {
		t.Error("add without title succeeded")
	}
	if err := snippetsAdd(ctx, st, "cli-user", snippetOptions{title: "x", language: "python"}); err == nil {
		t.Error("add with unknown language succeeded")
	}
}
