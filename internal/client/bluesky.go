package client

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/atproto/client"
	"github.com/bluesky-social/indigo/lex/util"
)

// MaxPostLength is the Bluesky post limit in characters
const MaxPostLength = 300

// Image is a PNG attached to a post
type Image struct {
	Data []byte
	Alt  string
}

type BlueskyClient struct {
	client   *client.APIClient
	handle   string
	password string
}

func New(handle, password string) *BlueskyClient {
	return &BlueskyClient{
		client:   client.NewAPIClient("https://bsky.social"),
		handle:   handle,
		password: password,
	}
}

func (c *BlueskyClient) Authenticate() error {
	ctx := context.Background()

	authClient, err := client.LoginWithPasswordHost(ctx, "https://bsky.social", c.handle, c.password, "", nil)
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	c.client = authClient
	return nil
}

// PostText posts a simple text message to Bluesky
func (c *BlueskyClient) PostText(ctx context.Context, text string) error {
	return c.PostWithFacets(ctx, text, nil)
}

func (c *BlueskyClient) PostWithFacets(ctx context.Context, text string, facets []*bsky.RichtextFacet) error {
	return c.post(ctx, text, facets, nil)
}

// PostWithImage uploads a chart image and posts it with text
func (c *BlueskyClient) PostWithImage(ctx context.Context, text string, imageData []byte, altText string) error {
	return c.PostWithImages(ctx, text, nil, Image{Data: imageData, Alt: altText})
}

// PostWithImages uploads each image as a blob and posts them embedded
// together. Bluesky allows up to four images per post.
func (c *BlueskyClient) PostWithImages(ctx context.Context, text string, facets []*bsky.RichtextFacet, images ...Image) error {
	if len(images) == 0 {
		return fmt.Errorf("no images to post")
	}
	if len(images) > 4 {
		return fmt.Errorf("too many images: %d (max 4)", len(images))
	}

	embedded := make([]*bsky.EmbedImages_Image, 0, len(images))
	for i, img := range images {
		blob, err := c.uploadBlob(ctx, img.Data)
		if err != nil {
			return fmt.Errorf("failed to upload image %d: %w", i+1, err)
		}
		embedded = append(embedded, &bsky.EmbedImages_Image{
			Alt:   img.Alt,
			Image: blob,
		})
	}

	return c.post(ctx, text, facets, &bsky.FeedPost_Embed{
		EmbedImages: &bsky.EmbedImages{Images: embedded},
	})
}

func (c *BlueskyClient) uploadBlob(ctx context.Context, data []byte) (*util.LexBlob, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	resp, err := atproto.RepoUploadBlob(ctx, c.client, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	log.Printf("Uploaded image blob (%d bytes)", len(data))
	return resp.Blob, nil
}

func (c *BlueskyClient) post(ctx context.Context, text string, facets []*bsky.RichtextFacet, embed *bsky.FeedPost_Embed) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	postRecord := &bsky.FeedPost{
		Text:      TruncateText(text, MaxPostLength),
		CreatedAt: time.Now().Format(time.RFC3339),
		Embed:     embed,
	}
	if facets != nil {
		postRecord.Facets = FacetsWithin(facets, len(postRecord.Text))
	}

	_, err := atproto.RepoCreateRecord(ctx, c.client, &atproto.RepoCreateRecord_Input{
		Repo:       c.handle,
		Collection: "app.bsky.feed.post",
		Record:     &util.LexiconTypeDecoder{Val: postRecord},
	})
	if err != nil {
		return fmt.Errorf("failed to post to Bluesky: %w", err)
	}

	log.Printf("Successfully posted to Bluesky: %s", preview(postRecord.Text, 50))
	return nil
}

// TruncateText shortens text to at most maxLength characters, ending it
// with an ellipsis when cut
func TruncateText(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength-3]) + "..."
}

// preview returns the first n characters of text for log lines
func preview(text string, n int) string {
	runes := []rune(text)
	return string(runes[:min(n, len(runes))])
}
