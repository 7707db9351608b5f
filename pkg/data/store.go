package data

// StoreEntry is one configured store. Entries are unique by StoreID.
type StoreEntry struct {
	StoreID   string `json:"store_id"`
	StoreSlug string `json:"store_slug"`
}

func (s StoreEntry) String() string {
	return s.StoreID + "-" + s.StoreSlug
}
