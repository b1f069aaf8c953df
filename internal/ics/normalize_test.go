package ics

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func TestNormalizeWithoutParams(t *testing.T) {
	got, ok := Normalize("20240101T100000Z", nil)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got)
	require.Equal(t, time.UTC, got.Location())

	got, ok = Normalize("20240101T100000Z", map[string][]string{})
	require.True(t, ok)
	require.True(t, got.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))

	for _, v := range []string{"", "20240101T100000", "20240101", "2024-01-01T10:00:00Z", "garbage"} {
		_, ok := Normalize(v, nil)
		require.False(t, ok, "value %q", v)
	}
}

func TestNormalizeTZID(t *testing.T) {
	cases := []struct {
		zone  string
		value string
		want  time.Time
	}{
		{"Europe/Bucharest", "20240115T090000", time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)},
		{"Europe/Bucharest", "20240715T090000", time.Date(2024, 7, 15, 6, 0, 0, 0, time.UTC)},
		{"America/New_York", "20240701T090000", time.Date(2024, 7, 1, 13, 0, 0, 0, time.UTC)},
		{"Asia/Kolkata", "20240301T120000", time.Date(2024, 3, 1, 6, 30, 0, 0, time.UTC)},
		{"UTC", "20240301T120000", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.zone+"/"+tc.value, func(t *testing.T) {
			got, ok := Normalize(tc.value, map[string][]string{"TZID": {tc.zone}})
			require.True(t, ok)
			require.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
			require.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNormalizeTZIDRoundTrip(t *testing.T) {
	zones := []string{"Europe/Bucharest", "America/New_York", "Australia/Sydney", "Asia/Tokyo"}
	walls := []string{"20240105T000000", "20240320T083000", "20240615T235959", "20241201T120000"}

	for _, zone := range zones {
		loc, err := time.LoadLocation(zone)
		require.NoError(t, err)
		for _, wall := range walls {
			got, ok := Normalize(wall, map[string][]string{"TZID": {zone}})
			require.True(t, ok, "%s %s", zone, wall)
			require.Equal(t, wall, got.In(loc).Format("20060102T150405"), zone)
		}
	}
}

func TestNormalizeTZIDRejects(t *testing.T) {
	cases := map[string]struct {
		value  string
		params map[string][]string
	}{
		"unknown zone":        {"20240101T090000", map[string][]string{"TZID": {"Mars/Olympus_Mons"}}},
		"empty zone":          {"20240101T090000", map[string][]string{"TZID": {""}}},
		"local zone":          {"20240101T090000", map[string][]string{"TZID": {"Local"}}},
		"no zone values":      {"20240101T090000", map[string][]string{"TZID": nil}},
		"missing value":       {"", map[string][]string{"TZID": {"Europe/Bucharest"}}},
		"value already in Z":  {"20240101T090000Z", map[string][]string{"TZID": {"Europe/Bucharest"}}},
		"date only":           {"20240101", map[string][]string{"TZID": {"Europe/Bucharest"}}},
		"dst gap":             {"20240331T033000", map[string][]string{"TZID": {"Europe/Bucharest"}}},
		"dst fold":            {"20241027T033000", map[string][]string{"TZID": {"Europe/Bucharest"}}},
		"dst fold new york":   {"20241103T013000", map[string][]string{"TZID": {"America/New_York"}}},
		"dst gap new york":    {"20240310T023000", map[string][]string{"TZID": {"America/New_York"}}},
		"invalid wall clock":  {"20240230T090000", map[string][]string{"TZID": {"Europe/Bucharest"}}},
		"unsupported param":   {"20240101T090000Z", map[string][]string{"X-CUSTOM": {"1"}}},
		"language first":      {"20240101T090000", map[string][]string{"LANGUAGE": {"en"}, "TZID": {"Europe/Bucharest"}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := Normalize(tc.value, tc.params)
			require.False(t, ok)
		})
	}
}

func TestNormalizeTZIDNextToFold(t *testing.T) {
	// One hour before and after the repeated hour are unambiguous.
	got, ok := Normalize("20241027T020000", map[string][]string{"TZID": {"Europe/Bucharest"}})
	require.True(t, ok)
	require.True(t, got.Equal(time.Date(2024, 10, 26, 23, 0, 0, 0, time.UTC)))

	got, ok = Normalize("20241027T040000", map[string][]string{"TZID": {"Europe/Bucharest"}})
	require.True(t, ok)
	require.True(t, got.Equal(time.Date(2024, 10, 27, 2, 0, 0, 0, time.UTC)))
}

func TestNormalizeValueDate(t *testing.T) {
	got, ok := Normalize("20240315", map[string][]string{"VALUE": {"DATE"}})
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)

	_, ok = Normalize("20240315T090000Z", map[string][]string{"VALUE": {"DATE-TIME"}})
	require.False(t, ok)

	_, ok = Normalize("20240315", map[string][]string{"VALUE": {"date"}})
	require.False(t, ok)

	_, ok = Normalize("", map[string][]string{"VALUE": {"DATE"}})
	require.False(t, ok)

	_, ok = Normalize("20240315T090000", map[string][]string{"VALUE": {"DATE"}})
	require.False(t, ok)
}

func TestNormalizeUsesSingleParam(t *testing.T) {
	// TZID sorts before VALUE and X- names, so it is the one consulted.
	got, ok := Normalize("20240115T090000", map[string][]string{
		"TZID":     {"Europe/Bucharest"},
		"X-SOURCE": {"import"},
	})
	require.True(t, ok)
	require.True(t, got.Equal(time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)))

	got, ok = Normalize("20240115", map[string][]string{
		"VALUE":   {"DATE"},
		"X-EXTRA": {"1"},
	})
	require.True(t, ok)
	require.True(t, got.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestNormalizeParamOrderIsNotPreserved(t *testing.T) {
	// DTEND;VALUE=DATE;TZID=X:20240116 lists VALUE first, but only the sorted
	// name is consulted. TZID=X names no zone, so the value is rejected.
	_, ok := Normalize("20240116", map[string][]string{
		"VALUE": {"DATE"},
		"TZID":  {"X"},
	})
	require.False(t, ok)
}
