package http

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"icried/internal/cloud"
	"icried/internal/core"
)

// Requests

type entryRequest struct {
	// Date defaults to now when omitted.
	Date    *time.Time `json:"date"`
	EmojiID *uuid.UUID `json:"emojiId"`
	TagID   *uuid.UUID `json:"tagId"`
	Note    string     `json:"note" validate:"max=2000"`
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type emojiRequest struct {
	Symbol   string   `json:"emoji" validate:"required,max=16"`
	ColorHex string   `json:"colorHex" validate:"required,hexcolor"`
	Opacity  *float64 `json:"opacity" validate:"required,gte=0,lte=1"`
}

type moveRequest struct {
	From []int `json:"from" validate:"required,min=1,dive,gte=0"`
	To   *int  `json:"to" validate:"required,gte=0"`
}

// Responses

type entryResponse struct {
	ID      uuid.UUID  `json:"id"`
	Date    time.Time  `json:"date"`
	EmojiID *uuid.UUID `json:"emojiId,omitempty"`
	TagID   *uuid.UUID `json:"tagId,omitempty"`
	Note    string     `json:"note"`
}

type tagResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Order int       `json:"order"`
}

type emojiResponse struct {
	ID       uuid.UUID `json:"id"`
	Symbol   string    `json:"emoji"`
	ColorHex string    `json:"colorHex"`
	Opacity  float64   `json:"opacity"`
	Order    int       `json:"order"`
	// Color is the CSS rgba() rendering of ColorHex and Opacity.
	Color string `json:"color"`
}

// entryView is an entry with its display intensity and tag resolved.
type entryView struct {
	entryResponse
	Emoji string `json:"emoji"`
	Color string `json:"color"`
	Tag   string `json:"tag,omitempty"`
}

type monthGroupResponse struct {
	Year    int         `json:"year"`
	Month   int         `json:"month"`
	Label   string      `json:"label"`
	Entries []entryView `json:"entries"`
}

type emojiCountResponse struct {
	EmojiID uuid.UUID `json:"emojiId"`
	Symbol  string    `json:"emoji"`
	Count   int       `json:"count"`
}

type tagCountResponse struct {
	TagID uuid.UUID `json:"tagId"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
}

type monthIntensityResponse struct {
	Month  string `json:"month"`
	Counts []int  `json:"counts"`
}

type statsResponse struct {
	Year    int                      `json:"year"`
	Total   int                      `json:"total"`
	Emojis  []emojiCountResponse     `json:"emojis"`
	Tags    []tagCountResponse       `json:"tags"`
	Monthly []monthIntensityResponse `json:"monthly"`
}

type syncStatusResponse struct {
	Account     string     `json:"account"`
	LastRefresh *time.Time `json:"lastRefresh,omitempty"`
}

func cssColor(c core.RGBA) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", c.R, c.G, c.B, c.A)
}

func toEntryResponse(e core.TearEntry) entryResponse {
	return entryResponse{ID: e.ID, Date: e.Date, EmojiID: e.EmojiID, TagID: e.TagID, Note: e.Note}
}

func toEntryResponses(entries []core.TearEntry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

func toTagResponse(t core.TagItem) tagResponse {
	return tagResponse{ID: t.ID, Name: t.Name, Order: t.Order}
}

func toTagResponses(tags []core.TagItem) []tagResponse {
	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	return out
}

func toEmojiResponse(e core.EmojiIntensity) emojiResponse {
	return emojiResponse{
		ID:       e.ID,
		Symbol:   e.Symbol,
		ColorHex: e.ColorHex,
		Opacity:  e.Opacity,
		Order:    e.Order,
		Color:    cssColor(e.Color()),
	}
}

func toEmojiResponses(emojis []core.EmojiIntensity) []emojiResponse {
	out := make([]emojiResponse, 0, len(emojis))
	for _, e := range emojis {
		out = append(out, toEmojiResponse(e))
	}
	return out
}

func toStatsResponse(s core.YearSummary) statsResponse {
	out := statsResponse{
		Year:    s.Year,
		Total:   s.Total,
		Emojis:  make([]emojiCountResponse, 0, len(s.Emojis)),
		Tags:    make([]tagCountResponse, 0, len(s.Tags)),
		Monthly: make([]monthIntensityResponse, 0, len(s.Monthly)),
	}
	for _, e := range s.Emojis {
		out.Emojis = append(out.Emojis, emojiCountResponse{EmojiID: e.EmojiID, Symbol: e.Symbol, Count: e.Count})
	}
	for _, t := range s.Tags {
		out.Tags = append(out.Tags, tagCountResponse{TagID: t.TagID, Name: t.Name, Count: t.Count})
	}
	for _, m := range s.Monthly {
		out.Monthly = append(out.Monthly, monthIntensityResponse{Month: m.Month.Format("2006-01"), Counts: m.Counts})
	}
	return out
}

func toSyncStatusResponse(st cloud.AccountStatus, last time.Time) syncStatusResponse {
	out := syncStatusResponse{Account: st.String()}
	if !last.IsZero() {
		out.LastRefresh = &last
	}
	return out
}
