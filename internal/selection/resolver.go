package selection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mwidera/plenum/internal/catalog"
	"github.com/mwidera/plenum/internal/progress"
	"github.com/mwidera/plenum/internal/services"
)

// Resolve turns a selection expression into the ordered list of identifiers
// to process. The result preserves catalog order and contains no duplicates.
//
// Recognized forms: comma lists of 1-based positions ("1,3,5"), inclusive
// ranges ("1-10", mixable with positions), "all", "pending", "recent:N", and
// "failed". An empty expression resolves to an empty list with no error; the
// caller treats that as "nothing to do". Any malformed or out-of-range token
// rejects the whole expression with ErrInvalidSelection rather than returning
// a partial work set.
func Resolve(items []catalog.Item, snapshot map[string]progress.Record, expr string, maxAttempts int) ([]string, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	if expr == "" {
		return nil, nil
	}

	switch {
	case expr == "all":
		return identifiers(items, func(catalog.Item) bool { return true }), nil
	case expr == "pending":
		return identifiers(items, func(item catalog.Item) bool {
			rec, ok := snapshot[item.Identifier]
			if !ok {
				return true
			}
			return rec.Status == progress.StatusPending || rec.Status.IsProcessing()
		}), nil
	case expr == "failed":
		return identifiers(items, func(item catalog.Item) bool {
			rec, ok := snapshot[item.Identifier]
			return ok && progress.IsRetryEligible(rec, maxAttempts)
		}), nil
	case strings.HasPrefix(expr, "recent:"):
		return resolveRecent(items, expr)
	default:
		return resolvePositions(items, expr)
	}
}

func identifiers(items []catalog.Item, keep func(catalog.Item) bool) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item.Identifier)
		}
	}
	return out
}

func resolveRecent(items []catalog.Item, expr string) ([]string, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(expr, "recent:"))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidSelection, "selection", "",
			fmt.Sprintf("recent wants a number, got %q", raw), nil)
	}
	if n <= 0 {
		return nil, services.Wrap(services.ErrInvalidSelection, "selection", "",
			fmt.Sprintf("recent:%d must request at least one item", n), nil)
	}
	if n > len(items) {
		n = len(items)
	}
	return identifiers(items[:n], func(catalog.Item) bool { return true }), nil
}

// resolvePositions handles comma lists mixing single positions and a-b
// ranges. Positions are 1-based and refer to displayed catalog order.
func resolvePositions(items []catalog.Item, expr string) ([]string, error) {
	seen := make(map[int]struct{})
	selected := make([]bool, len(items))

	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, services.Wrap(services.ErrInvalidSelection, "selection", "", "empty position in list", nil)
		}
		lo, hi, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > len(items) {
			return nil, services.Wrap(services.ErrInvalidSelection, "selection", "",
				fmt.Sprintf("position %q is out of range 1-%d", token, len(items)), nil)
		}
		for pos := lo; pos <= hi; pos++ {
			if _, dup := seen[pos]; dup {
				continue
			}
			seen[pos] = struct{}{}
			selected[pos-1] = true
		}
	}

	out := make([]string, 0, len(seen))
	for idx, ok := range selected {
		if ok {
			out = append(out, items[idx].Identifier)
		}
	}
	return out, nil
}

func parseToken(token string) (lo, hi int, err error) {
	if before, after, found := strings.Cut(token, "-"); found {
		lo, err = strconv.Atoi(strings.TrimSpace(before))
		if err == nil {
			hi, err = strconv.Atoi(strings.TrimSpace(after))
		}
		if err != nil {
			return 0, 0, services.Wrap(services.ErrInvalidSelection, "selection", "",
				fmt.Sprintf("malformed range %q", token), nil)
		}
		if lo > hi {
			return 0, 0, services.Wrap(services.ErrInvalidSelection, "selection", "",
				fmt.Sprintf("range %q runs backwards", token), nil)
		}
		return lo, hi, nil
	}

	pos, err := strconv.Atoi(token)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrInvalidSelection, "selection", "",
			fmt.Sprintf("malformed position %q", token), nil)
	}
	return pos, pos, nil
}
