package model

import "time"

// Country fallbacks when a zone chain carries no country.
const (
	UnknownCountry = "Unknown"
	WorldFlag      = "WOR"
	worldZone      = "World"
)

// MapRef identifies a registry entry to fetch.
type MapRef struct {
	UID        string
	URL        string // registry URL, paging parameters stripped
	Name       string
	FetchOrder int
}

// Zone is a node of the API's geographic hierarchy, leaf first.
type Zone struct {
	Name   string `json:"name"`
	Flag   string `json:"flag"`
	Parent *Zone  `json:"parent,omitempty"`
}

// Country resolves the country of a zone chain. The country is the zone
// whose grandparent is "World", or the first non-World zone directly below
// "World" when the chain is shorter.
func (z *Zone) Country() (name, flag string) {
	name, flag = UnknownCountry, WorldFlag
	if z == nil {
		return name, flag
	}
	if z.Name != "" {
		name = z.Name
	}
	if z.Flag != "" {
		flag = z.Flag
	}
	for cur := z; cur != nil; cur = cur.Parent {
		parent := cur.Parent
		if parent == nil {
			if cur.Name != worldZone && cur.Name != "" {
				return pick(cur, name, flag)
			}
			break
		}
		if (parent.Parent != nil && parent.Parent.Name == worldZone) ||
			(parent.Name == worldZone && cur.Name != worldZone) {
			return pick(cur, name, flag)
		}
	}
	if z.Name == worldZone {
		return UnknownCountry, WorldFlag
	}
	return name, flag
}

func pick(z *Zone, name, flag string) (string, string) {
	if z.Name != "" {
		name = z.Name
	}
	if z.Flag != "" {
		flag = z.Flag
	}
	return name, flag
}

// Entry is one row of a fetched leaderboard.
type Entry struct {
	Rank       int
	PlayerID   string
	PlayerName string
	Country    string
	Flag       string
	TimeMS     int64
	Score      int64
	SetAt      time.Time
}

// Snapshot is a full leaderboard of one map as returned by the API.
type Snapshot struct {
	Map         MapRef
	PlayerCount int // as reported by the API
	Entries     []Entry
	FetchedAt   time.Time
	Dropped     int // entries without a player id or duplicated across pages
}
