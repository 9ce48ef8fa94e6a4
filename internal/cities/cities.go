// Package cities holds the static city tables used to resolve where a
// station reports from. Tables are built once at startup and only read
// afterwards.
package cities

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type City struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var byID = map[int]string{
	1:  "Pereiaslav",
	2:  "Ivankiv",
	3:  "Irpin",
	4:  "Vyshneve",
	5:  "Boyarka",
	6:  "Obukhiv",
	7:  "Dymerka",
	8:  "Kaharlyk",
	9:  "Uzyn",
	10: "Boryspil",
	11: "Vyshhorod",
	12: "Vasylkiv",
	13: "Bohuslav",
	14: "Brovary",
	15: "Pidhirtsi",
	16: "Bila_Tserkva",
}

// Table answers id, name and station-code lookups. The zero value is not
// usable; build one with NewTable.
type Table struct {
	byID   map[int]string
	byName map[string]string
	byCode map[string]string
	list   []City
}

// NewTable builds the lookup table. codes maps station codes to city names
// and is used as the static fallback when no persisted mapping exists; codes
// are normalized and every city must be a known name.
func NewTable(codes map[string]string) (*Table, error) {
	t := &Table{
		byID:   make(map[int]string, len(byID)),
		byName: make(map[string]string, len(byID)),
		byCode: make(map[string]string, len(codes)),
	}
	for id, name := range byID {
		t.byID[id] = name
		t.byName[strings.ToLower(name)] = name
		t.list = append(t.list, City{ID: id, Name: name})
	}
	sort.Slice(t.list, func(i, j int) bool { return t.list[i].ID < t.list[j].ID })

	for code, city := range codes {
		normalized, ok := NormalizeStationCode(code)
		if !ok {
			return nil, fmt.Errorf("station code table: empty code for city %q", city)
		}
		name, ok := t.ByName(city)
		if !ok {
			return nil, fmt.Errorf("station code table: unknown city %q for code %q", city, code)
		}
		t.byCode[normalized] = name
	}
	return t, nil
}

// ByID returns the city name for a numeric id.
func (t *Table) ByID(id int) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// ByName matches a city name case-insensitively and returns its canonical
// spelling.
func (t *Table) ByName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	canonical, ok := t.byName[strings.ToLower(name)]
	return canonical, ok
}

// ByIDString parses s as an integer city id and looks it up.
func (t *Table) ByIDString(s string) (string, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return t.ByID(id)
}

// ByCode looks up the static station code fallback. code must already be
// normalized.
func (t *Table) ByCode(code string) (string, bool) {
	city, ok := t.byCode[code]
	return city, ok
}

// List returns the known cities ordered by id. The slice is a copy.
func (t *Table) List() []City {
	out := make([]City, len(t.list))
	copy(out, t.list)
	return out
}

// NormalizeStationCode trims and uppercases a station code. An empty result
// reports false.
func NormalizeStationCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", false
	}
	return code, true
}
