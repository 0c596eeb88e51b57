// Package catalog serves the course and challenge material surrounding the
// playground: markdown course pages rendered to HTML, challenge listings, and
// a points leaderboard aggregated from submissions. Everything here is
// read-mostly; the playground owns all snippet writes.
package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"github.com/codeforge-edu/codeforge/playground"
)

// Course is a rendered markdown course page.
type Course struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Level      string   `json:"level,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	HTML       string   `json:"html"`
	SourcePath string   `json:"-"`
}

// frontmatter is the YAML header at the top of a course markdown file.
type frontmatter struct {
	Title   string   `yaml:"title"`
	Level   string   `yaml:"level"`
	Tags    []string `yaml:"tags"`
	Summary string   `yaml:"summary"`
}

// Challenge is a scored exercise tied to a course.
type Challenge struct {
	ID         string `json:"id"`
	CourseSlug string `json:"course_slug"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	Points     int    `json:"points"`
}

// LeaderboardEntry aggregates one owner's accepted submissions.
type LeaderboardEntry struct {
	Owner  string `json:"owner"`
	Points int    `json:"points"`
	Solved int    `json:"solved"`
}

const catalogSchema = `
CREATE TABLE IF NOT EXISTS challenges (
	id          TEXT PRIMARY KEY,
	course_slug TEXT NOT NULL,
	title       TEXT NOT NULL,
	difficulty  TEXT NOT NULL,
	points      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS submissions (
	id           TEXT PRIMARY KEY,
	challenge_id TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	accepted     INTEGER NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions (user_id, accepted);
`

// Catalog renders course markdown and reads challenge data from the shared
// snippet database.
type Catalog struct {
	db *sql.DB
	md goldmark.Markdown

	mu      sync.RWMutex
	dir     string
	courses []Course // sorted by slug, rebuilt on Reload
}

// New builds a catalog over the content directory and the shared database.
// db may be nil when only markdown courses are served.
func New(dir string, db *sql.DB) (*Catalog, error) {
	c := &Catalog{
		db:  db,
		dir: dir,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}

	if db != nil {
		if _, err := db.Exec(catalogSchema); err != nil {
			return nil, fmt.Errorf("catalog: failed to create schema: %w", err)
		}
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-renders every course page from the content directory. The watcher
// calls this when a markdown file changes.
func (c *Catalog) Reload() error {
	c.mu.RLock()
	dir := c.dir
	c.mu.RUnlock()

	var courses []Course
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				entries = nil // No content dir is fine, the catalog is just empty
			} else {
				return fmt.Errorf("catalog: failed to read content dir: %w", err)
			}
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			course, err := c.renderCourse(path)
			if err != nil {
				return fmt.Errorf("catalog: %s: %w", e.Name(), err)
			}
			courses = append(courses, course)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Slug < courses[j].Slug })

	c.mu.Lock()
	c.courses = courses
	c.mu.Unlock()
	return nil
}

// renderCourse parses one markdown file into a rendered course page.
func (c *Catalog) renderCourse(path string) (Course, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Course{}, err
	}

	fm, body, err := extractFrontmatter(content)
	if err != nil {
		return Course{}, err
	}

	var htmlBuf bytes.Buffer
	if err := c.md.Convert(body, &htmlBuf); err != nil {
		return Course{}, fmt.Errorf("failed to render markdown: %w", err)
	}

	slug := strings.TrimSuffix(filepath.Base(path), ".md")
	title := fm.Title
	if title == "" {
		title = slug
	}
	return Course{
		Slug:       slug,
		Title:      title,
		Level:      fm.Level,
		Tags:       fm.Tags,
		Summary:    fm.Summary,
		HTML:       htmlBuf.String(),
		SourcePath: path,
	}, nil
}

// extractFrontmatter splits the YAML header from the markdown body.
// Files without a header get zero-value frontmatter.
func extractFrontmatter(content []byte) (frontmatter, []byte, error) {
	var fm frontmatter
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return fm, content, nil
	}

	endIdx := bytes.Index(content[4:], []byte("\n---\n"))
	if endIdx == -1 {
		return fm, nil, fmt.Errorf("unclosed frontmatter")
	}

	if err := yaml.Unmarshal(content[4:4+endIdx], &fm); err != nil {
		return fm, nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return fm, content[4+endIdx+5:], nil
}

// Courses returns all rendered course pages, sorted by slug.
func (c *Catalog) Courses() []Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Course returns one course page by slug.
func (c *Catalog) Course(slug string) (Course, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, course := range c.courses {
		if course.Slug == slug {
			return course, nil
		}
	}
	return Course{}, &playground.NotFoundError{ID: slug}
}

// Challenges lists the challenges for a course, hardest last.
func (c *Catalog) Challenges(ctx context.Context, courseSlug string) ([]Challenge, error) {
	if c.db == nil {
		return nil, nil
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, course_slug, title, difficulty, points
		 FROM challenges WHERE course_slug = ? ORDER BY points ASC`, courseSlug)
	if err != nil {
		return nil, &playground.TransportError{Op: "challenges", Err: err}
	}
	defer rows.Close()

	challenges := make([]Challenge, 0)
	for rows.Next() {
		var ch Challenge
		if err := rows.Scan(&ch.ID, &ch.CourseSlug, &ch.Title, &ch.Difficulty, &ch.Points); err != nil {
			return nil, &playground.TransportError{Op: "challenges", Err: err}
		}
		challenges = append(challenges, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, &playground.TransportError{Op: "challenges", Err: err}
	}
	return challenges, nil
}

// AddChallenge registers a challenge. Used by seeding and the CLI.
func (c *Catalog) AddChallenge(ctx context.Context, ch Challenge) error {
	if c.db == nil {
		return fmt.Errorf("catalog: no database configured")
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO challenges (id, course_slug, title, difficulty, points)
		 VALUES (?, ?, ?, ?, ?)`,
		ch.ID, ch.CourseSlug, ch.Title, ch.Difficulty, ch.Points)
	if err != nil {
		return &playground.TransportError{Op: "add challenge", Err: err}
	}
	return nil
}

// RecordSubmission stores a challenge submission for the leaderboard.
func (c *Catalog) RecordSubmission(ctx context.Context, id, challengeID, ownerID string, accepted bool) error {
	if c.db == nil {
		return fmt.Errorf("catalog: no database configured")
	}
	acceptedInt := 0
	if accepted {
		acceptedInt = 1
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO submissions (id, challenge_id, user_id, accepted, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, challengeID, ownerID, acceptedInt, time.Now().UTC())
	if err != nil {
		return &playground.TransportError{Op: "record submission", Err: err}
	}
	return nil
}

// Leaderboard aggregates accepted submissions per owner, highest score first.
// A challenge solved more than once counts its points once.
func (c *Catalog) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if c.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 25
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT s.user_id, SUM(ch.points) AS points, COUNT(ch.id) AS solved
		 FROM (SELECT DISTINCT user_id, challenge_id FROM submissions WHERE accepted = 1) s
		 JOIN challenges ch ON ch.id = s.challenge_id
		 GROUP BY s.user_id
		 ORDER BY points DESC, s.user_id ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, &playground.TransportError{Op: "leaderboard", Err: err}
	}
	defer rows.Close()

	entries := make([]LeaderboardEntry, 0)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Owner, &e.Points, &e.Solved); err != nil {
			return nil, &playground.TransportError{Op: "leaderboard", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &playground.TransportError{Op: "leaderboard", Err: err}
	}
	return entries, nil
}
