package cardcache

// Shape is the tag of an Entry.
type Shape uint8

const (
	ShapeUnknown Shape = iota
	ShapeFlatList
	ShapePage
	ShapeDetail
)

func (s Shape) String() string {
	switch s {
	case ShapeFlatList:
		return "flat_list"
	case ShapePage:
		return "page"
	case ShapeDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Entry is the value stored under a Key. It is a closed union of *FlatList,
// *Page and *Detail. Entries are immutable once stored: patches build new values,
// so a pointer comparison tells whether anything changed.
type Entry interface {
	Shape() Shape
	sealed()
}

// FlatList is an ordered list of cards in fetch order.
type FlatList struct {
	Items []Card
}

// Page is one window of a paginated read. Total is nil when unknown.
type Page struct {
	Items   []Card
	Number  int
	Size    int
	Total   *int
	HasMore bool
}

// Detail is a single card.
type Detail struct {
	Card Card
}

func (*FlatList) Shape() Shape { return ShapeFlatList }
func (*Page) Shape() Shape     { return ShapePage }
func (*Detail) Shape() Shape   { return ShapeDetail }

func (*FlatList) sealed() {}
func (*Page) sealed()     {}
func (*Detail) sealed()   {}

// Find returns the card with id, if present.
func (l *FlatList) Find(id string) (Card, bool) { return find(l.Items, id) }

// Find returns the card with id, if present.
func (p *Page) Find(id string) (Card, bool) { return find(p.Items, id) }

// TotalOr returns Total or def when the total is unknown.
func (p *Page) TotalOr(def int) int {
	if p.Total == nil {
		return def
	}
	return *p.Total
}

// Contains reports whether e holds a card with id.
func Contains(e Entry, id string) bool {
	switch v := e.(type) {
	case *FlatList:
		_, ok := v.Find(id)
		return ok
	case *Page:
		_, ok := v.Find(id)
		return ok
	case *Detail:
		return v.Card.ID == id
	default:
		return false
	}
}

func isNilEntry(e Entry) bool {
	switch v := e.(type) {
	case *FlatList:
		return v == nil
	case *Page:
		return v == nil
	case *Detail:
		return v == nil
	default:
		return true
	}
}

// KeyedEntry pairs a key with the entry stored under it.
type KeyedEntry struct {
	Key   Key
	Entry Entry
}

func find(items []Card, id string) (Card, bool) {
	for _, c := range items {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

func indexOf(items []Card, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
