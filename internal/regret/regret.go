package regret

// #region imports
import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/danielpatrickdp/zooid-trials/internal/ledger"
)

// #endregion

// #region types

// Item is one recorded failure retained for biased future replay.
// Hint is a short diagnostic excerpt lifted from the trial's metrics.
type Item struct {
	Family string `json:"family"`
	Hint   string `json:"hint"`
}

// maxHintLen bounds the stored excerpt so queue lines stay small enough
// for atomic appends.
const maxHintLen = 240

// #endregion types

// #region queue-struct

// Queue derives a backlog of recent failures from the ledger and offers
// probabilistic, non-destructive replay. The queue file is append-only
// NDJSON, separate from the ledger.
type Queue struct {
	ledger *ledger.Ledger
	path   string
	rng    *rand.Rand
}

// NewQueue creates a regret queue backed by the given ledger and queue
// file path. rng may be nil; a nil rng falls back to the global source.
func NewQueue(l *ledger.Ledger, path string, rng *rand.Rand) *Queue {
	return &Queue{ledger: l, path: path, rng: rng}
}

// #endregion queue-struct

// #region harvest

// Harvest scans the most recent window ledger records and extracts a
// regret item for every failure.
func (q *Queue) Harvest(window int) ([]Item, error) {
	records, err := q.ledger.ReadRecent(window)
	if err != nil {
		return nil, fmt.Errorf("harvest: %w", err)
	}
	var items []Item
	for _, rec := range records {
		if rec.Passed {
			continue
		}
		items = append(items, Item{
			Family: rec.Family,
			Hint:   extractHint(rec.Metrics),
		})
	}
	return items, nil
}

// extractHint pulls a truncated diagnostic from trial metrics, preferring
// a trace excerpt over a bare error string.
func extractHint(metrics map[string]any) string {
	for _, key := range []string{"trace", "error"} {
		if v, ok := metrics[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				if len(s) > maxHintLen {
					return s[:maxHintLen]
				}
				return s
			}
		}
	}
	return ""
}

// #endregion harvest

// #region enqueue

// Enqueue harvests the recent window and appends every item to the queue
// file, returning how many were added. Zero is a valid result when there
// are no recent failures.
func (q *Queue) Enqueue(window int) (int, error) {
	items, err := q.Harvest(window)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(q.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open regret queue: %w", err)
	}
	defer f.Close()

	added := 0
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return added, fmt.Errorf("marshal regret item: %w", err)
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return added, fmt.Errorf("append regret item: %w", err)
		}
		added++
	}
	return added, nil
}

// #endregion enqueue

// #region maybe-replay

// MaybeReplay returns, with probability p, one queued item chosen
// uniformly at random. Replay is non-destructive: the item stays queued.
// Returns nil when the dice miss, the queue file is absent, or it holds
// no valid items.
func (q *Queue) MaybeReplay(p float64) (*Item, error) {
	if q.roll() >= p {
		return nil, nil
	}
	items, err := q.readAll()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	item := items[q.intn(len(items))]
	return &item, nil
}

// readAll loads the full queue file. Missing file is an empty queue.
func (q *Queue) readAll() ([]Item, error) {
	f, err := os.Open(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open regret queue: %w", err)
	}
	defer f.Close()

	var items []Item
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item Item
		if err := json.Unmarshal(line, &item); err != nil {
			log.Printf("[REGRET] skipping malformed line: %v", err)
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan regret queue: %w", err)
	}
	return items, nil
}

func (q *Queue) roll() float64 {
	if q.rng != nil {
		return q.rng.Float64()
	}
	return rand.Float64()
}

func (q *Queue) intn(n int) int {
	if q.rng != nil {
		return q.rng.Intn(n)
	}
	return rand.Intn(n)
}

// #endregion maybe-replay
