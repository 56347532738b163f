package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// migrationTemplate is filled with the slug twice.
const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %s: statements for the storefront kv schema go here
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- %s: undo the statements above
-- +goose StatementEnd
`

// migrationSlug lower-cases name and joins its words with underscores.
func migrationSlug(name string) string {
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(slug, "_")
}

// CreateSQLMigration writes an empty goose migration named <version>_<slug>.sql into
// dir, stamped with the current UTC time.
func CreateSQLMigration(dir string, name string) (string, error) {
	return createSQLMigration(dir, name, time.Now().UTC())
}

func createSQLMigration(dir, name string, now time.Time) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("migrate: migrations dir is required")
	}
	slug := migrationSlug(name)
	if slug == "" {
		return "", fmt.Errorf("migrate: migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: creating %q: %w", dir, err)
	}

	path := filepath.Join(dir, now.Format(versionLayout)+"_"+slug+".sql")
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("migrate: %s already exists", path)
		}
		return "", fmt.Errorf("migrate: creating %q: %w", path, err)
	}
	if _, err := fmt.Fprintf(file, migrationTemplate, slug, slug); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("migrate: writing %q: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("migrate: closing %q: %w", path, err)
	}
	return path, nil
}
