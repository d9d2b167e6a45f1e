package client

import (
	"strings"

	"github.com/bluesky-social/indigo/api/bsky"
)

// Link ties a phrase in a post to a URL
type Link struct {
	Text string
	URL  string
}

// CreateLinkFacets creates a link facet over the first occurrence of each
// link's text. Byte offsets are used, as AT Protocol richtext facets require.
func CreateLinkFacets(text string, links []Link) []*bsky.RichtextFacet {
	var facets []*bsky.RichtextFacet

	for _, link := range links {
		if link.Text == "" || link.URL == "" {
			continue
		}

		startIndex := strings.Index(text, link.Text)
		if startIndex == -1 {
			continue
		}
		endIndex := startIndex + len(link.Text)

		facets = append(facets, &bsky.RichtextFacet{
			Index: &bsky.RichtextFacet_ByteSlice{
				ByteStart: int64(startIndex),
				ByteEnd:   int64(endIndex),
			},
			Features: []*bsky.RichtextFacet_Features_Elem{
				{
					RichtextFacet_Link: &bsky.RichtextFacet_Link{
						Uri: link.URL,
					},
				},
			},
		})
	}

	return facets
}

// FacetsWithin keeps the facets whose byte range lies inside a text of
// textLen bytes. A facet cut by truncation is dropped.
func FacetsWithin(facets []*bsky.RichtextFacet, textLen int) []*bsky.RichtextFacet {
	kept := make([]*bsky.RichtextFacet, 0, len(facets))
	for _, f := range facets {
		if f == nil || f.Index == nil || f.Index.ByteEnd > int64(textLen) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
