package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedEmbed is returned by BuildResource when an embed lacks one of
// title, description or url.
var ErrMalformedEmbed = errors.New("malformed embed")

const descriptionDelimiter = "|url: "

type Author struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Embed fields are pointers so that an absent field can be told apart from an
// empty one.
type Embed struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
}

// Message is the subset of a chat message needed to build a Resource.
type Message struct {
	ID        string  `json:"id,omitempty"`
	ChannelID string  `json:"channel_id"`
	Author    Author  `json:"author"`
	Embeds    []Embed `json:"embeds"`
}

func (e Embed) missingField() string {
	switch {
	case e.Title == nil:
		return "title"
	case e.Description == nil:
		return "description"
	case e.URL == nil:
		return "url"
	}
	return ""
}

// BuildResource folds the message embeds into a single Resource.
//
// Every embed contributes "|url: <url> + <title> + <description>" to the
// description in encounter order; only the last embed's url is kept. The
// description is lowercased and trimmed once all embeds are folded, then
// fingerprinted. A message without embeds yields empty url and description,
// which the store refuses to insert.
func BuildResource(msg Message) (Resource, error) {
	var url, description string

	for i, embed := range msg.Embeds {
		if field := embed.missingField(); field != "" {
			return Resource{}, fmt.Errorf("%w: embed %d has no %s", ErrMalformedEmbed, i, field)
		}

		url = strings.TrimSpace(strings.ToLower(*embed.URL))
		description = description + descriptionDelimiter + url + " + " + *embed.Title + " + " + *embed.Description
	}

	description = strings.TrimSpace(strings.ToLower(description))

	return Resource{
		UserID:      msg.Author.ID,
		ChannelID:   msg.ChannelID,
		URL:         url,
		Description: description,
		TypeID:      TypeLink,
		Shash:       Fingerprint(description),
	}, nil
}
