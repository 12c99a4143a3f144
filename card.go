package cardcache

// Card is one business listing as the cache sees it.
// Identity is by ID only; every other field may change.
type Card struct {
	ID            string `json:"id" cbor:"id" msgpack:"id"`
	Title         string `json:"title" cbor:"title" msgpack:"title"`
	Subtitle      string `json:"subtitle,omitempty" cbor:"subtitle,omitempty" msgpack:"subtitle,omitempty"`
	Description   string `json:"description,omitempty" cbor:"description,omitempty" msgpack:"description,omitempty"`
	Phone         string `json:"phone,omitempty" cbor:"phone,omitempty" msgpack:"phone,omitempty"`
	Email         string `json:"email,omitempty" cbor:"email,omitempty" msgpack:"email,omitempty"`
	Web           string `json:"web,omitempty" cbor:"web,omitempty" msgpack:"web,omitempty"`
	AddressText   string `json:"addressText,omitempty" cbor:"addressText,omitempty" msgpack:"addressText,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty" cbor:"imageUrl,omitempty" msgpack:"imageUrl,omitempty"`
	ImageAlt      string `json:"imageAlt,omitempty" cbor:"imageAlt,omitempty" msgpack:"imageAlt,omitempty"`
	BizNumber     int    `json:"bizNumber,omitempty" cbor:"bizNumber,omitempty" msgpack:"bizNumber,omitempty"`
	LikeCount     int    `json:"likeCount" cbor:"likeCount" msgpack:"likeCount"`
	LikedByViewer bool   `json:"likedByViewer" cbor:"likedByViewer" msgpack:"likedByViewer"`
	OwnerID       string `json:"ownerId,omitempty" cbor:"ownerId,omitempty" msgpack:"ownerId,omitempty"`
}

// Changes is a partial card update. Nil pointers leave the field unchanged.
type Changes struct {
	Title       *string `json:"title,omitempty"`
	Subtitle    *string `json:"subtitle,omitempty"`
	Description *string `json:"description,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Web         *string `json:"web,omitempty"`
	AddressText *string `json:"addressText,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	ImageAlt    *string `json:"imageAlt,omitempty"`
	BizNumber   *int    `json:"bizNumber,omitempty"`
}

// IsZero reports whether f carries no field at all.
func (f Changes) IsZero() bool {
	return f == Changes{}
}

// merge returns c with every non-nil field of f applied.
func (f Changes) merge(c Card) Card {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.Title, f.Title)
	set(&c.Subtitle, f.Subtitle)
	set(&c.Description, f.Description)
	set(&c.Phone, f.Phone)
	set(&c.Email, f.Email)
	set(&c.Web, f.Web)
	set(&c.AddressText, f.AddressText)
	set(&c.ImageURL, f.ImageURL)
	set(&c.ImageAlt, f.ImageAlt)
	if f.BizNumber != nil {
		c.BizNumber = *f.BizNumber
	}
	return c
}

// String returns a pointer to s; handy when building Changes.
func String(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }
