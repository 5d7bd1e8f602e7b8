package migrate

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pressly/goose/v3"
	"go.uber.org/multierr"
)

var migrationFile = regexp.MustCompile(`^\d{14}_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir for a timestamped name, a unique
// version and well-formed goose annotations. All problems are reported
// together.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("migrations dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migrations dir: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}

	var problems error
	versions := make(map[int64]string, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		if !migrationFile.MatchString(name) {
			problems = multierr.Append(problems, fmt.Errorf("%s: want YYYYMMDDHHMMSS_snake_name.sql", name))
			continue
		}
		version, err := goose.NumericComponent(name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if first, dup := versions[version]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %d already used by %s", name, version, first))
			continue
		}
		versions[version] = name
		if err := checkAnnotations(path); err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
		}
	}
	return problems
}

// checkAnnotations requires an Up section followed by a Down section, with
// StatementBegin/End pairs closed inside each.
func checkAnnotations(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var up, down, open bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "-- +goose Up":
			if up {
				return errors.New("repeated -- +goose Up")
			}
			up = true
		case "-- +goose Down":
			if !up || down {
				return errors.New("-- +goose Down must follow a single Up")
			}
			if open {
				return errors.New("StatementBegin not closed before Down")
			}
			down = true
		case "-- +goose StatementBegin":
			if open {
				return errors.New("nested StatementBegin")
			}
			open = true
		case "-- +goose StatementEnd":
			if !open {
				return errors.New("StatementEnd without StatementBegin")
			}
			open = false
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case !up:
		return errors.New("missing -- +goose Up")
	case !down:
		return errors.New("missing -- +goose Down")
	case open:
		return errors.New("StatementBegin not closed")
	}
	return nil
}
