package hebi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// AnyFamily matches every family when passed to Bind.
const AnyFamily = "*"

const pollInterval = 50 * time.Millisecond

// NotFoundError reports names that did not resolve within the discovery window.
type NotFoundError struct {
	Families []string
	Names    []string
	Missing  []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unable to find motors %v in families %v (missing %s)",
		e.Names, e.Families, strings.Join(e.Missing, ", "))
}

// Bind resolves names into a group. A single family applies to every name;
// otherwise families and names pair up by index. Bind waits up to window for
// the directory to show every name and returns *NotFoundError when it does not.
// Cancelling ctx returns its error instead.
func Bind(ctx context.Context, lookup Lookup, families, names []string, window time.Duration) (Group, error) {
	if len(names) == 0 {
		return nil, errors.New("no device names given")
	}
	if len(families) != 1 && len(families) != len(names) {
		return nil, errors.Errorf("got %d families for %d names", len(families), len(names))
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		entries, missing := Match(lookup.Entries(), families, names)
		if len(missing) == 0 {
			group, err := lookup.Open(ctx, entries)
			if err != nil {
				return nil, errors.Wrap(err, "open group")
			}
			return group, nil
		}

		select {
		case <-ctx.Done():
			if err := parent.Err(); err != nil {
				return nil, err
			}
			return nil, &NotFoundError{Families: families, Names: names, Missing: missing}
		case <-ticker.C:
		}
	}
}

// Match picks the directory entry for each name and returns the names with no entry.
func Match(directory []Entry, families, names []string) ([]Entry, []string) {
	var (
		entries = make([]Entry, 0, len(names))
		missing []string
	)
	for i, name := range names {
		family := families[0]
		if len(families) > 1 {
			family = families[i]
		}

		found := false
		for _, e := range directory {
			if e.Name == name && (family == AnyFamily || e.Family == family) {
				entries = append(entries, e)
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	return entries, missing
}
