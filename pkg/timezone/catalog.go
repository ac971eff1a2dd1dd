package timezone

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ZoneOption is one selectable zone in configuration surfaces.
type ZoneOption struct {
	Value string `json:"value"` // canonical identifier, e.g. "Europe/Berlin"
	Label string `json:"label"` // display label, e.g. "Berlin"
	Group string `json:"group"` // region, e.g. "Europe"
}

// regions are the canonical Region/City prefixes; everything else in the tz
// database (Etc, posix, right, legacy uppercase aliases) is excluded.
var regions = map[string]bool{
	"Africa":     true,
	"America":    true,
	"Antarctica": true,
	"Asia":       true,
	"Atlantic":   true,
	"Australia":  true,
	"Europe":     true,
	"Indian":     true,
	"Pacific":    true,
}

// zoneinfoDirs mirrors the search order of time.LoadLocation.
var zoneinfoDirs = []string{
	"/usr/share/zoneinfo",
	"/usr/share/lib/zoneinfo",
	"/usr/lib/locale/TZ",
	"/etc/zoneinfo",
}

var (
	catalogOnce sync.Once
	catalog     []ZoneOption
)

// Catalog enumerates the canonical IANA zone identifiers available on this
// system, grouped by region. The result is computed once and cached; it is
// empty if no tz database directory is present.
func Catalog() []ZoneOption {
	catalogOnce.Do(func() {
		for _, dir := range zoneinfoDirs {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				catalog = scanZoneDir(dir)
				break
			}
		}
	})
	return catalog
}

func scanZoneDir(root string) []ZoneOption {
	var opts []ZoneOption
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			// Only descend into canonical region directories.
			if rel != "." && !regions[strings.SplitN(rel, string(filepath.Separator), 2)[0]] {
				return filepath.SkipDir
			}
			return nil
		}
		name := filepath.ToSlash(rel)
		region, city, ok := strings.Cut(name, "/")
		if !ok || !regions[region] {
			return nil
		}
		opts = append(opts, ZoneOption{
			Value: name,
			Label: strings.ReplaceAll(strings.ReplaceAll(city, "_", " "), "/", " / "),
			Group: region,
		})
		return nil
	})
	sort.Slice(opts, func(i, j int) bool { return opts[i].Value < opts[j].Value })
	return opts
}
