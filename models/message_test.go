package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func embed(url, title, description string) Embed {
	return Embed{Title: strp(title), Description: strp(description), URL: strp(url)}
}

func TestBuildResource(t *testing.T) {
	msg := Message{
		ChannelID: "42",
		Author:    Author{ID: "7"},
		Embeds: []Embed{
			embed(" HTTPS://Go.dev/Doc ", "Go Docs", "The Go Programming Language"),
			embed("https://pkg.go.dev/  ", "Packages", "Search Go packages"),
		},
	}

	r, err := BuildResource(msg)
	require.NoError(t, err)

	assert.Equal(t, "7", r.UserID)
	assert.Equal(t, "42", r.ChannelID)
	assert.Equal(t, "https://pkg.go.dev/", r.URL)
	assert.Equal(t,
		"|url: https://go.dev/doc + go docs + the go programming language|url: https://pkg.go.dev/ + packages + search go packages",
		r.Description)
	assert.Equal(t, int32(TypeLink), r.TypeID)
	assert.Equal(t, Fingerprint(r.Description), r.Shash)
	assert.True(t, r.Insertable())
}

func TestBuildResourceOrderMatters(t *testing.T) {
	a := embed("https://a.example", "A", "first")
	b := embed("https://b.example", "B", "second")

	ab, err := BuildResource(Message{Embeds: []Embed{a, b}})
	require.NoError(t, err)
	ba, err := BuildResource(Message{Embeds: []Embed{b, a}})
	require.NoError(t, err)

	assert.NotEqual(t, ab.Description, ba.Description)
	assert.Equal(t, "https://b.example", ab.URL)
	assert.Equal(t, "https://a.example", ba.URL)
}

func TestBuildResourceTrimsWholeDescription(t *testing.T) {
	r, err := BuildResource(Message{Embeds: []Embed{embed("https://x.example", "T", "Trailing  \n")}})
	require.NoError(t, err)
	assert.Equal(t, "|url: https://x.example + t + trailing", r.Description)
}

func TestBuildResourceNoEmbeds(t *testing.T) {
	r, err := BuildResource(Message{ChannelID: "1", Author: Author{ID: "2"}})
	require.NoError(t, err)

	assert.Empty(t, r.URL)
	assert.Empty(t, r.Description)
	assert.False(t, r.Insertable())
}

func TestBuildResourceMalformedEmbed(t *testing.T) {
	tests := []struct {
		name  string
		embed Embed
		field string
	}{
		{"no title", Embed{Description: strp("d"), URL: strp("u")}, "title"},
		{"no description", Embed{Title: strp("t"), URL: strp("u")}, "description"},
		{"no url", Embed{Title: strp("t"), Description: strp("d")}, "url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Message{Embeds: []Embed{embed("https://ok.example", "ok", "ok"), tt.embed}}

			_, err := BuildResource(msg)
			require.ErrorIs(t, err, ErrMalformedEmbed)
			assert.Contains(t, err.Error(), "embed 1 has no "+tt.field)
		})
	}
}

func TestBuildResourceFromJSON(t *testing.T) {
	raw := `{
		"id": "1001",
		"channel_id": "555",
		"author": {"id": "999", "username": "gopher"},
		"embeds": [{"title": "", "description": "", "url": "https://example.com"}]
	}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	r, err := BuildResource(msg)
	require.NoError(t, err)
	assert.Equal(t, "|url: https://example.com +  +", r.Description)
	assert.Equal(t, "999", r.UserID)
}

func TestFingerprintDeterministic(t *testing.T) {
	s := "|url: https://go.dev + go + docs"

	assert.Equal(t, Fingerprint(s), Fingerprint(s))
	assert.NotEqual(t, Fingerprint(s), Fingerprint(s+" "))
	assert.Regexp(t, `^[0-9]+$`, Fingerprint(s))
}
