package feed

import (
	"encoding/xml"
	"fmt"

	"github.com/pixivrss/pixivrss-server/internal/domain"
	"github.com/pixivrss/pixivrss-server/internal/pixiv"
)

const (
	rssVersion = "2.0"
	atomNS     = "http://www.w3.org/2005/Atom"

	// ArtworkURLPrefix is used for the link and guid of every item, novels included.
	ArtworkURLPrefix = "https://www.pixiv.net/artworks/"
)

// Item categories. The illustration spelling matches what existing
// subscribers already filter on.
const (
	CategoryIllustration = "Illustlation"
	CategoryManga        = "Manga"
	CategoryNovel        = "Novel"
)

// Channel is the feed-level metadata taken from the profile page.
type Channel struct {
	Title       string
	Link        string
	Description string
	ImageURL    string
}

// ChannelFromMeta builds channel metadata from the profile's page meta.
func ChannelFromMeta(meta pixiv.Meta) Channel {
	return Channel{
		Title:       meta.OGP.Title,
		Link:        meta.Canonical,
		Description: meta.OGP.Description,
		ImageURL:    meta.OGP.Image,
	}
}

// RenderOptions tunes rendering.
type RenderOptions struct {
	// NewestBuildDate takes lastBuildDate from the most recently updated
	// item instead of the oldest.
	NewestBuildDate bool
}

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	AtomNS  string     `xml:"xmlns:atom,attr"`
	Channel channelXML `xml:"channel"`
}

type channelXML struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Image         imageXML  `xml:"image"`
	Items         []itemXML `xml:"item"`
}

type imageXML struct {
	URL   string `xml:"url"`
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

type itemXML struct {
	Title       string        `xml:"title"`
	Description string        `xml:"description"`
	Link        string        `xml:"link"`
	GUID        string        `xml:"guid"`
	Category    string        `xml:"category"`
	PubDate     string        `xml:"pubDate"`
	Enclosure   *enclosureXML `xml:"enclosure"`
	Source      sourceXML     `xml:"source"`
}

type enclosureXML struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length string `xml:"length,attr"`
}

type sourceXML struct {
	URL   string `xml:"url,attr"`
	Value string `xml:",chardata"`
}

// Render serializes the channel and items, which must already be sorted
// oldest update first, as an RSS 2.0 document with an XML declaration.
// Identical input always yields identical bytes.
func Render(ch Channel, items []domain.FeedItem, opts RenderOptions) ([]byte, error) {
	out := rssXML{
		Version: rssVersion,
		AtomNS:  atomNS,
		Channel: channelXML{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			Image: imageXML{
				URL:   ch.ImageURL,
				Title: ch.Title,
				Link:  ch.Link,
			},
			Items: make([]itemXML, 0, len(items)),
		},
	}

	if len(items) > 0 {
		build := items[0].Work
		if opts.NewestBuildDate {
			build = items[len(items)-1].Work
		}
		out.Channel.LastBuildDate = HTTPDate(build.UpdatedAt)
	}

	for _, it := range items {
		out.Channel.Items = append(out.Channel.Items, toItemXML(ch, it))
	}

	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rss: %w", err)
	}

	doc := make([]byte, 0, len(xml.Header)+len(body)+1)
	doc = append(doc, xml.Header...)
	doc = append(doc, body...)
	doc = append(doc, '\n')
	return doc, nil
}

// ItemLink returns the public page URL used for a work's link and guid.
func ItemLink(id string) string {
	return ArtworkURLPrefix + id
}

// Category returns the item category for a work kind.
func Category(kind domain.WorkKind) string {
	switch kind {
	case domain.WorkKindManga:
		return CategoryManga
	case domain.WorkKindNovel:
		return CategoryNovel
	default:
		return CategoryIllustration
	}
}

func toItemXML(ch Channel, it domain.FeedItem) itemXML {
	w := it.Work
	item := itemXML{
		Title:       w.Title,
		Description: w.Description,
		Link:        ItemLink(w.ID),
		GUID:        ItemLink(w.ID),
		Category:    Category(w.Kind),
		PubDate:     HTTPDate(w.CreatedAt),
		Source: sourceXML{
			URL:   ch.Link,
			Value: ch.Title,
		},
	}
	if it.Enclosure != nil {
		item.Enclosure = &enclosureXML{
			URL:    it.Enclosure.URL,
			Type:   it.Enclosure.Type,
			Length: it.Enclosure.Length,
		}
	}
	return item
}
