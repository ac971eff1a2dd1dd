package timezone

import (
	"sort"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadZone(t *testing.T) {
	loc, err := LoadZone("Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())

	_, err = LoadZone("")
	assert.Error(t, err)

	_, err = LoadZone("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestLocalize(t *testing.T) {
	tokyo, err := LoadZone("Asia/Tokyo")
	require.NoError(t, err)
	newYork, err := LoadZone("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		utc  time.Time
		loc  *time.Location
		want LocalTime
	}{
		{
			name: "tokyo fixed offset",
			utc:  time.Date(2026, 3, 2, 0, 45, 0, 0, time.UTC), // Monday
			loc:  tokyo,
			want: LocalTime{DayOfWeek: 1, Hour: 9, Minute: 45},
		},
		{
			name: "tokyo crosses local midnight",
			utc:  time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC), // Monday UTC
			loc:  tokyo,
			want: LocalTime{DayOfWeek: 2, Hour: 1, Minute: 30}, // Tuesday JST
		},
		{
			name: "new york before DST",
			utc:  time.Date(2026, 3, 7, 14, 0, 0, 0, time.UTC), // Saturday, EST (-5)
			loc:  newYork,
			want: LocalTime{DayOfWeek: 6, Hour: 9, Minute: 0},
		},
		{
			name: "new york after DST",
			utc:  time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC), // Monday, EDT (-4)
			loc:  newYork,
			want: LocalTime{DayOfWeek: 1, Hour: 10, Minute: 0},
		},
		{
			name: "utc passthrough",
			utc:  time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC),
			loc:  time.UTC,
			want: LocalTime{DayOfWeek: 1, Hour: 23, Minute: 59},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Localize(tt.utc, tt.loc))
		})
	}
}

func TestLocalTimeValidate(t *testing.T) {
	assert.NoError(t, LocalTime{DayOfWeek: 0, Hour: 0, Minute: 0}.Validate())
	assert.NoError(t, LocalTime{DayOfWeek: 6, Hour: 23, Minute: 59}.Validate())
	assert.Error(t, LocalTime{DayOfWeek: 7}.Validate())
	assert.Error(t, LocalTime{DayOfWeek: -1}.Validate())
	assert.Error(t, LocalTime{Hour: 24}.Validate())
	assert.Error(t, LocalTime{Minute: 60}.Validate())
}

func TestMinuteOfDay(t *testing.T) {
	assert.Equal(t, 0, LocalTime{}.MinuteOfDay())
	assert.Equal(t, 585, LocalTime{Hour: 9, Minute: 45}.MinuteOfDay())
	assert.Equal(t, 1439, LocalTime{Hour: 23, Minute: 59}.MinuteOfDay())
}

func TestCatalog(t *testing.T) {
	zones := Catalog()
	if len(zones) == 0 {
		t.Skip("no tz database directory on this system")
	}

	seen := make(map[string]bool, len(zones))
	for _, z := range zones {
		assert.True(t, regions[z.Group], "unexpected region %q for %s", z.Group, z.Value)
		assert.True(t, strings.HasPrefix(z.Value, z.Group+"/"), "value %q not under group %q", z.Value, z.Group)
		assert.NotEmpty(t, z.Label)
		assert.False(t, seen[z.Value], "duplicate zone %s", z.Value)
		seen[z.Value] = true
	}

	// Grouped ordering: sorted by value, which clusters regions.
	assert.True(t, sort.SliceIsSorted(zones, func(i, j int) bool {
		return zones[i].Value < zones[j].Value
	}))
}
