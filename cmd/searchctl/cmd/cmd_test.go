package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/fusion"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/searcher/session"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	now := time.Now().UTC()
	docs := []content.Document{
		{
			ID: "1", Title: "Arsenal beat Chelsea in London derby",
			Category: "Football", Subcategory: "Premier League",
			HomeTeam: "Arsenal", AwayTeam: "Chelsea",
			Excerpt:     "A late goal settled the derby.",
			PublishedAt: now.Add(-2 * time.Hour),
		},
		{
			ID: "2", Title: "Lakers edge Celtics in overtime",
			Category: "Basketball", Subcategory: "NBA",
			HomeTeam: "Lakers", AwayTeam: "Celtics",
			PublishedAt: now.Add(-72 * time.Hour),
		},
		{
			ID: "3", Title: "Arsenal injury update before Europa trip",
			Category: "Football", Subcategory: "Europa League",
			Excerpt:     "Arsenal face an injury crisis in midfield.",
			PublishedAt: now.Add(-30 * time.Minute),
			Status:      content.StatusLive,
		},
	}
	data, err := json.Marshal(docs)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: root command
	cmd := NewRootCmd()

	// When: listing subcommands
	names := make(map[string]bool)
	for _, sc := range cmd.Commands() {
		names[sc.Name()] = true
	}

	// Then: every command is registered
	for _, want := range []string{"search", "suggest", "stats", "repl", "seed", "keygen"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestSearchCmd_JSON(t *testing.T) {
	// Given: a corpus file with two Arsenal documents
	corpus := writeCorpus(t)

	// When: searching with JSON output
	out, err := execute(t, "--corpus", corpus, "search", "arsenal", "--format", "json")
	require.NoError(t, err)

	// Then: both Arsenal documents come back from the hybrid pass
	var res executor.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, executor.ModeHybrid, res.Mode)
	ids := make([]string, 0, len(res.Results))
	for _, r := range res.Results {
		ids = append(ids, r.Document.ID)
	}
	assert.ElementsMatch(t, []string{"1", "3"}, ids)
}

func TestSearchCmd_TextWithSuggestions(t *testing.T) {
	corpus := writeCorpus(t)

	out, err := execute(t, "--corpus", corpus, "search", "footbal")
	require.NoError(t, err)

	assert.Contains(t, out, "did you mean category: Football")
}

func TestSearchCmd_LimitCapsResults(t *testing.T) {
	corpus := writeCorpus(t)

	out, err := execute(t, "--corpus", corpus, "search", "arsenal", "-n", "1", "-f", "json")
	require.NoError(t, err)

	var res executor.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Results, 1)
}

func TestSearchCmd_MissingCorpusFails(t *testing.T) {
	_, err := execute(t, "--corpus", filepath.Join(t.TempDir(), "missing.json"), "search", "arsenal")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "building index")
}

func TestSuggestCmd(t *testing.T) {
	out, err := execute(t, "suggest", "basketbal")
	require.NoError(t, err)
	assert.Contains(t, out, "Basketball")

	out, err = execute(t, "suggest", "zzzzzz")
	require.NoError(t, err)
	assert.Contains(t, out, "no suggestions")
}

func TestStatsCmd(t *testing.T) {
	corpus := writeCorpus(t)

	out, err := execute(t, "--corpus", corpus, "stats", "--top", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "documents:      3")
	assert.Contains(t, out, "arsen")
}

func TestSeedCmd_ThenSearchFromSQLite(t *testing.T) {
	// Given: a corpus file and an empty SQLite path
	corpus := writeCorpus(t)
	dbPath := filepath.Join(t.TempDir(), "content.db")

	// When: seeding twice
	out, err := execute(t, "seed", corpus, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 document(s)")
	_, err = execute(t, "seed", corpus, "--db", dbPath)
	require.NoError(t, err)

	// Then: the store holds each document once
	t.Setenv("SP_INDEXER_SOURCE", "sqlite")
	t.Setenv("SP_SQLITE_PATH", dbPath)
	out, err = execute(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "documents:      3")
}

func TestReplCmd_SearchesLastLine(t *testing.T) {
	// Given: two queries typed faster than the debounce window
	corpus := writeCorpus(t)
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader("lakers\narsenal injury\n"))
	cmd.SetArgs([]string{"--corpus", corpus, "repl", "--debounce", "20ms"})

	// When: the input ends
	require.NoError(t, cmd.Execute())

	// Then: only the last query was searched
	assert.Contains(t, out.String(), `for "arsenal injury"`)
	assert.NotContains(t, out.String(), `for "lakers"`)
}

// lockedBuffer lets the test read output the repl listener is still writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReplCmd_SelectTakesDocumentID(t *testing.T) {
	help, err := execute(t, "repl", "--help")
	require.NoError(t, err)
	assert.Contains(t, help, ":select <id>")

	// Given: a repl whose search returns one document with id "3"
	searcher := session.SearcherFunc(func(_ context.Context, q string) (*executor.SearchResult, error) {
		return &executor.SearchResult{
			Query:     q,
			Mode:      executor.ModeHybrid,
			TotalHits: 1,
			Results: []fusion.RankedResult{
				{Document: content.Document{ID: "3", Title: "Arsenal injury update"}},
			},
		}, nil
	})
	in, typed := io.Pipe()
	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() { done <- runRepl(context.Background(), in, out, searcher, 10*time.Millisecond) }()

	_, err = io.WriteString(typed, "arsenal\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "id=3") }, time.Second, 5*time.Millisecond)

	// When: the id printed with the result is selected
	_, err = io.WriteString(typed, ":select 3\n")
	require.NoError(t, err)
	require.NoError(t, typed.Close())
	require.NoError(t, <-done)

	// Then: the repl resolves it to that document
	assert.Contains(t, out.String(), "selected 3: Arsenal injury update")
}

func TestKeygenCmd_PrintsDigestEntry(t *testing.T) {
	out, err := execute(t, "keygen", "--name", "ops")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.NotEmpty(t, lines)
	raw := strings.TrimPrefix(lines[0], "key: ")
	assert.Len(t, raw, 64)
	assert.Contains(t, out, "name: ops")
	assert.Contains(t, out, "key: sha256:"+apikey.HashKey(raw))
}
