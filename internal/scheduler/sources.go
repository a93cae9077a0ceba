package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/versefeed/versefeed/internal/model"
)

// Source is one external verse API. The three public sources disagree on
// response shape, so each carries its own parser normalizing the body into
// a model.Verse.
type Source struct {
	Name  string
	URL   string
	Parse func(body []byte) (model.Verse, error)
}

// DefaultSources returns the rotation in its fixed order.
func DefaultSources() []Source {
	return []Source{
		{Name: "bible-api", URL: "https://bible-api.com/?random=verse", Parse: parseBibleAPI},
		{Name: "labs-bible", URL: "https://labs.bible.org/api/?passage=random&type=json", Parse: parseLabsBible},
		{Name: "ourmanna", URL: "https://beta.ourmanna.com/api/v1/get?format=json", Parse: parseOurManna},
	}
}

// parseBibleAPI handles the single-object shape:
// {"reference": "...", "text": "...", "translation_name": "...",
//  "verses": [{"book_name": "..."}]}.
func parseBibleAPI(body []byte) (model.Verse, error) {
	var resp struct {
		Reference   string `json:"reference"`
		Text        string `json:"text"`
		Translation string `json:"translation_name"`
		Verses      []struct {
			BookName string `json:"book_name"`
		} `json:"verses"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Verse{}, err
	}
	if resp.Reference == "" || strings.TrimSpace(resp.Text) == "" {
		return model.Verse{}, fmt.Errorf("bible-api: missing reference or text")
	}
	v := model.Verse{
		Reference:   resp.Reference,
		Text:        strings.TrimSpace(resp.Text),
		Translation: resp.Translation,
		Source:      "bible-api",
	}
	if len(resp.Verses) > 0 {
		v.Book = resp.Verses[0].BookName
	}
	return v, nil
}

// parseLabsBible handles the array-of-objects shape:
// [{"bookname": "...", "chapter": "3", "verse": "16", "text": "..."}].
func parseLabsBible(body []byte) (model.Verse, error) {
	var resp []struct {
		BookName string `json:"bookname"`
		Chapter  string `json:"chapter"`
		Verse    string `json:"verse"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Verse{}, err
	}
	if len(resp) == 0 || strings.TrimSpace(resp[0].Text) == "" {
		return model.Verse{}, fmt.Errorf("labs-bible: empty response")
	}
	first := resp[0]
	return model.Verse{
		Reference:   fmt.Sprintf("%s %s:%s", first.BookName, first.Chapter, first.Verse),
		Text:        strings.TrimSpace(first.Text),
		Translation: "NET",
		Source:      "labs-bible",
		Book:        first.BookName,
	}, nil
}

// parseOurManna handles the nested-object shape:
// {"verse": {"details": {"text": "...", "reference": "...", "version": "..."}}}.
func parseOurManna(body []byte) (model.Verse, error) {
	var resp struct {
		Verse struct {
			Details struct {
				Text      string `json:"text"`
				Reference string `json:"reference"`
				Version   string `json:"version"`
			} `json:"details"`
		} `json:"verse"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Verse{}, err
	}
	d := resp.Verse.Details
	if d.Reference == "" || strings.TrimSpace(d.Text) == "" {
		return model.Verse{}, fmt.Errorf("ourmanna: missing reference or text")
	}
	return model.Verse{
		Reference:   d.Reference,
		Text:        strings.TrimSpace(d.Text),
		Translation: d.Version,
		Source:      "ourmanna",
		Book:        bookFromReference(d.Reference),
	}, nil
}

// bookFromReference strips the trailing chapter:verse part, e.g.
// "1 John 4:19" -> "1 John".
func bookFromReference(ref string) string {
	i := strings.LastIndexByte(ref, ' ')
	if i <= 0 {
		return ref
	}
	return ref[:i]
}
