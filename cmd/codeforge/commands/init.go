package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeforge-edu/codeforge/internal/config"
)

// InitCommand writes a default codeforge.yaml into the target directory and
// creates the catalog content directory next to it.
func InitCommand(args []string) error {
	dir := "."
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			dir = arg
		}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	configPath := filepath.Join(absDir, "codeforge.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists: %s", configPath)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		return err
	}

	contentDir := filepath.Join(absDir, "content")
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return fmt.Errorf("failed to create content directory: %w", err)
	}

	welcome := filepath.Join(contentDir, "welcome.md")
	if _, err := os.Stat(welcome); os.IsNotExist(err) {
		md := `---
title: Welcome to CodeForge
level: beginner
summary: Getting started with the playground.
---

# Welcome

Open the playground, type some markup, styles and script, and press Run.
Save your work to build a personal snippet collection.
`
		if err := os.WriteFile(welcome, []byte(md), 0644); err != nil {
			return fmt.Errorf("failed to write welcome course: %w", err)
		}
	}

	fmt.Printf("✅ Created %s\n", configPath)
	fmt.Printf("✅ Created %s\n", contentDir)
	fmt.Printf("\nNext: codeforge serve %s\n", dir)
	return nil
}
