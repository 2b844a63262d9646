// Command range-import bulk-loads products into a range's include set from
// gzip-compressed text files of SKU/UPC tokens separated by whitespace or
// punctuation. Files are
// scanned concurrently; identifiers are deduplicated with a bloom filter
// backed by an exact set, resolved against the catalog in batches, and added
// to the range. The tool reports how many products were newly added, how many
// were already in the range, and how many identifiers matched no product.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/offer-engine/internal/domain/catalog"
	"github.com/xenking/offer-engine/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	batchSize     = 1000
	progressEvery = 1_000_000
)

func main() {
	var (
		rangeID     string
		databaseURL string
	)

	flag.StringVar(&rangeID, "range-id", "", "range to add the products to")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if rangeID == "" {
		slog.Error("--range-id is required")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("at least one identifier file is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, rangeID, databaseURL, files); err != nil {
		slog.Error("range import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("range import completed successfully")
}

func run(ctx context.Context, rangeID, databaseURL string, files []string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("scanning identifier files", slog.Int("files", len(files)))

	identifiers, err := collectIdentifiers(ctx, files)
	if err != nil {
		return errors.Wrap(err, "collect identifiers")
	}

	slog.Info("unique identifiers found", slog.Int("count", len(identifiers)))

	if len(identifiers) == 0 {
		slog.Info("nothing to import")
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	catalogRepo := repository.NewCatalogRepository(pool)
	rangeRepo := repository.NewRangeRepository(pool)

	added, duplicate, unknown := 0, 0, 0
	for start := 0; start < len(identifiers); start += batchSize {
		end := min(start+batchSize, len(identifiers))
		batch := identifiers[start:end]

		products, err := catalogRepo.FindByIdentifiers(ctx, batch)
		if err != nil {
			return errors.Wrap(err, "resolve identifiers")
		}
		unknown += countUnresolved(batch, products)

		for _, p := range products {
			ok, err := rangeRepo.AddProduct(ctx, rangeID, p.ID)
			if err != nil {
				return errors.Wrapf(err, "add product %s", p.ID)
			}
			if ok {
				added++
			} else {
				duplicate++
			}
		}

		slog.Info("import progress",
			slog.Int("processed", end),
			slog.Int("total", len(identifiers)),
		)
	}

	slog.Info("import summary",
		slog.String("range", rangeID),
		slog.Int("added", added),
		slog.Int("already_present", duplicate),
		slog.Int("unknown", unknown),
	)
	return nil
}

// dedupSet deduplicates identifiers across all files. A bloom filter
// short-circuits the common case: a negative test means the identifier is
// definitely new, so the exact set is only consulted on bloom hits to rule
// out false positives.
type dedupSet struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

func newDedupSet() *dedupSet {
	return &dedupSet{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		exact:  make(map[string]struct{}),
	}
}

// add records the identifier and reports whether it was new.
func (s *dedupSet) add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.TestAndAddString(id) {
		if _, ok := s.exact[id]; ok {
			return false
		}
	}
	s.exact[id] = struct{}{}
	return true
}

func (s *dedupSet) identifiers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.exact))
	for id := range s.exact {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// collectIdentifiers streams all files concurrently and returns the sorted
// set of unique identifiers.
func collectIdentifiers(ctx context.Context, files []string) ([]string, error) {
	set := newDedupSet()

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(scanFile(ctx, i, f, set))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return set.identifiers(), nil
}

func scanFile(ctx context.Context, idx int, path string, set *dedupSet) func() error {
	return func() error {
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			for _, id := range splitIdentifiers(line) {
				set.add(id)
				count++
				if count%progressEvery == 0 {
					slog.Info("scan progress",
						slog.Int("file", idx+1),
						slog.Uint64("identifiers", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d", idx+1)
		}

		slog.Info("scan complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_identifiers", count),
		)
		return nil
	}
}

// countUnresolved reports how many identifiers in batch matched no product.
// Matched identifiers are collected explicitly: one product can match on both
// its SKU and its UPC, so comparing row counts would misstate the number.
func countUnresolved(batch []string, products []catalog.Product) int {
	resolved := make(map[string]struct{}, 2*len(products))
	for _, p := range products {
		if p.SKU != "" {
			resolved[p.SKU] = struct{}{}
		}
		if p.UPC != "" {
			resolved[p.UPC] = struct{}{}
		}
	}
	unresolved := 0
	for _, id := range batch {
		if _, ok := resolved[id]; !ok {
			unresolved++
		}
	}
	return unresolved
}

// splitIdentifiers extracts SKU/UPC tokens from a line. Tokens are runs of
// word characters plus ':', '.' and '-'; everything else separates them.
func splitIdentifiers(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return false
		case r == '_' || r == ':' || r == '.' || r == '-':
			return false
		}
		return true
	})
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(id string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
