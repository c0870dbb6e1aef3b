package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mx-space/comments/internal/config"
	"github.com/mx-space/comments/internal/database"
	"github.com/mx-space/comments/internal/models"
	"github.com/mx-space/comments/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "comments.db")
	path := filepath.Join(dir, "config.yml")
	content := "env: production\njwt_secret: cli-test\ndatabase:\n  driver: sqlite\n  path: " + dbPath + "\nsite:\n  base_url: https://example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path, dbPath
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestMemberAndToken(t *testing.T) {
	configPath, _ := writeConfig(t)

	out, err := run(t, configPath, "member", "add", "admin", "--admin", "--mail", "admin@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "created admin admin ("))

	_, err = run(t, configPath, "member", "add", "admin")
	assert.Error(t, err)

	out, err = run(t, configPath, "issue-token", "admin", "--ttl", "1h")
	require.NoError(t, err)
	claims, err := jwt.Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.True(t, claims.Admin)

	_, err = run(t, configPath, "issue-token", "nobody")
	assert.Error(t, err)
}

func TestWebhookCommands(t *testing.T) {
	configPath, _ := writeConfig(t)

	out, err := run(t, configPath, "webhook", "add", "https://hooks.example.com/comments", "--events", "comment_create", "--secret", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "for COMMENT_CREATE")
	assert.Contains(t, out, "secret: s3cret")

	_, err = run(t, configPath, "webhook", "add", "https://hooks.example.com/none", "--events", "NOPE")
	assert.Error(t, err)

	out, err = run(t, configPath, "webhook", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "enabled\thttps://hooks.example.com/comments\tCOMMENT_CREATE")
}

func TestPublishAndPurge(t *testing.T) {
	configPath, dbPath := writeConfig(t)

	db, err := database.Open(config.DriverSQLite, dbPath, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	held := models.CommentModel{Source: "tl_news", Parent: 1, Name: "Jane", Email: "jane@example.com", Comment: "Held"}
	require.NoError(t, db.Create(&held).Error)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	out, err := run(t, configPath, "publish", held.ID)
	require.NoError(t, err)
	assert.Equal(t, "published "+held.ID+" (tl_news/1)\n", out)

	_, err = run(t, configPath, "publish", "00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)

	out, err = run(t, configPath, "purge-subscriptions")
	require.NoError(t, err)
	assert.Equal(t, "purged 0 subscriptions, 0 opt-in tokens\n", out)
}
