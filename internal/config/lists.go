package config

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/iamwavecut/swearbot/internal/errors"
)

// Lists holds the static inputs loaded once at startup. They are never
// mutated afterwards.
type Lists struct {
	EligibleUsers map[snowflake.ID]struct{}
	Patterns      []string
	Gifs          []string
}

// LoadLists reads the users, patterns and gifs files concurrently. The users
// file is required; the other two may be absent.
func LoadLists(ctx context.Context, cfg Config) (*Lists, error) {
	lists := &Lists{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		path, err := ResolvePath(cfg.DotPath, cfg.Moderation.UsersFile)
		if err != nil {
			return err
		}
		lines, err := readLines(path)
		if err != nil {
			return fmt.Errorf("%w: read eligible users: %w", apperrors.ErrStartupConfig, err)
		}
		lists.EligibleUsers = ParseUserIDs(lines)
		return nil
	})
	g.Go(func() error {
		patterns, err := readOptional(cfg.DotPath, cfg.Moderation.PatternsFile)
		lists.Patterns = patterns
		return err
	})
	g.Go(func() error {
		gifs, err := readOptional(cfg.DotPath, cfg.Reactor.GifsFile)
		lists.Gifs = gifs
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"eligible_users": len(lists.EligibleUsers),
		"patterns":       len(lists.Patterns),
		"gifs":           len(lists.Gifs),
	}).Info("loaded static lists")
	return lists, nil
}

// ParseUserIDs converts lines of unsigned integers into a set. Blank and
// malformed lines are skipped.
func ParseUserIDs(lines []string) map[snowflake.ID]struct{} {
	users := make(map[snowflake.ID]struct{}, len(lines))
	for _, line := range lines {
		id, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			log.WithField("line", line).Warn("skipping malformed user id")
			continue
		}
		users[snowflake.ID(id)] = struct{}{}
	}
	return users
}

// ResolvePath expands name relative to dotPath unless it is already absolute
// or home relative.
func ResolvePath(dotPath, name string) (string, error) {
	expanded, err := homedir.Expand(name)
	if err != nil {
		return "", fmt.Errorf("%w: expand %q: %w", apperrors.ErrStartupConfig, name, err)
	}
	if filepath.IsAbs(expanded) {
		return expanded, nil
	}
	return filepath.Join(dotPath, expanded), nil
}

func readOptional(dotPath, name string) ([]string, error) {
	if name == "" {
		return nil, nil
	}
	path, err := ResolvePath(dotPath, name)
	if err != nil {
		return nil, err
	}
	lines, err := readLines(path)
	if os.IsNotExist(err) {
		log.WithField("path", path).Warn("optional list not found, using empty list")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", apperrors.ErrStartupConfig, path, err)
	}
	return lines, nil
}

// readLines returns the trimmed non-empty lines of the file at path.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
