package git

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Refresh clones every remote missing from dir and pulls the rest, in the
// order given. Duplicate remotes are refreshed once. A failing remote does not
// stop the others; all failures are returned together.
func Refresh(ctx context.Context, client Client, remotes []string, dir string, out io.Writer, log *zap.Logger) error {
	var result *multierror.Error
	seen := make(map[string]bool, len(remotes))

	for _, url := range remotes {
		if seen[url] {
			continue
		}
		seen[url] = true

		fmt.Fprintf(out, "Refreshing %s\n", url)
		path := CachePath(dir, url)

		cloned, err := client.EnsureCloned(ctx, url, path)
		if err != nil {
			log.Warn("clone failed", zap.String("remote", url), zap.String("path", path), zap.Error(err))
			result = multierror.Append(result, fmt.Errorf("cloning %s: %w", url, err))
			continue
		}
		if cloned {
			log.Debug("cloned", zap.String("remote", url), zap.String("path", path))
			continue
		}
		if err := client.Pull(ctx, path); err != nil {
			log.Warn("pull failed", zap.String("remote", url), zap.String("path", path), zap.Error(err))
			result = multierror.Append(result, fmt.Errorf("pulling %s: %w", url, err))
			continue
		}
		log.Debug("pulled", zap.String("remote", url), zap.String("path", path))
	}

	return result.ErrorOrNil()
}
