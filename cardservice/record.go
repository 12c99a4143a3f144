package cardservice

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/unkn0wn-root/cardcache"
)

// DefaultImageURL is used for cards stored without an image.
const DefaultImageURL = "/images/card-placeholder.png"

// cardRecord is a card as the Card Service stores it. Only json tags are declared;
// the CBOR and msgpack codecs read the same names.
type cardRecord struct {
	ID          string         `json:"_id"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle,omitempty"`
	Description string         `json:"description,omitempty"`
	Image       *imageRecord   `json:"image,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Email       string         `json:"email,omitempty"`
	Web         string         `json:"web,omitempty"`
	Address     *addressRecord `json:"address,omitempty"`
	BizNumber   int            `json:"bizNumber,omitempty"`
	Likes       []string       `json:"likes,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
}

type imageRecord struct {
	URL string `json:"url,omitempty"`
	Alt string `json:"alt,omitempty"`
}

type addressRecord struct {
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	Street  string `json:"street,omitempty"`
	// HouseNumber is a string or a number depending on who created the card.
	HouseNumber any `json:"houseNumber,omitempty"`
	Zip         any `json:"zip,omitempty"`
}

// text renders "street, houseNumber, city, country" skipping empty parts.
func (a *addressRecord) text() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, scalarText(a.HouseNumber), a.City, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func scalarText(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		if n == 0 {
			return ""
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s := fmt.Sprint(n)
		if s == "0" {
			return ""
		}
		return s
	default:
		return fmt.Sprint(n)
	}
}

// toCard maps a stored record to the cache's view of it for viewerID.
func (r cardRecord) toCard(viewerID string) cardcache.Card {
	c := cardcache.Card{
		ID:          r.ID,
		Title:       r.Title,
		Subtitle:    r.Subtitle,
		Description: r.Description,
		Phone:       r.Phone,
		Email:       r.Email,
		Web:         r.Web,
		AddressText: r.Address.text(),
		ImageURL:    DefaultImageURL,
		ImageAlt:    r.Title,
		BizNumber:   r.BizNumber,
		LikeCount:   len(r.Likes),
		OwnerID:     r.UserID,
	}
	if r.Image != nil {
		if r.Image.URL != "" {
			c.ImageURL = r.Image.URL
		}
		if r.Image.Alt != "" {
			c.ImageAlt = r.Image.Alt
		}
	}
	if c.ImageAlt == "" {
		c.ImageAlt = "card image"
	}
	if viewerID != "" {
		c.LikedByViewer = slices.Contains(r.Likes, viewerID)
	}
	return c
}

func toCards(rs []cardRecord, viewerID string) []cardcache.Card {
	out := make([]cardcache.Card, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.toCard(viewerID))
	}
	return out
}

// updateBody renders a partial update. Absent fields are omitted; the image is sent
// as the nested object the service stores.
func updateBody(ch cardcache.Changes) map[string]any {
	body := make(map[string]any, 8)
	put := func(name string, v *string) {
		if v != nil {
			body[name] = *v
		}
	}
	put("title", ch.Title)
	put("subtitle", ch.Subtitle)
	put("description", ch.Description)
	put("phone", ch.Phone)
	put("email", ch.Email)
	put("web", ch.Web)
	if ch.ImageURL != nil || ch.ImageAlt != nil {
		img := map[string]string{}
		if ch.ImageURL != nil {
			img["url"] = *ch.ImageURL
		}
		if ch.ImageAlt != nil {
			img["alt"] = *ch.ImageAlt
		}
		body["image"] = img
	}
	if ch.BizNumber != nil {
		body["bizNumber"] = *ch.BizNumber
	}
	return body
}
