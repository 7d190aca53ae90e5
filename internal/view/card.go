package view

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"teamdir.dev/internal/models"
)

// Display values a card can take
const (
	DisplayBlock = "block"
	DisplayNone  = "none"
)

// Style is the mutable presentation state of a card
type Style struct {
	Display    string  `json:"display"`
	Opacity    float64 `json:"opacity"`
	TranslateY int     `json:"translate_y"`
	Scale      float64 `json:"scale"`
}

func restingStyle() Style {
	return Style{Display: DisplayBlock, Opacity: 1, TranslateY: 0, Scale: 1}
}

// Visible reports whether the card occupies layout
func (s Style) Visible() bool {
	return s.Display != DisplayNone
}

// SocialLink is one of the fixed profile links on a card
type SocialLink struct {
	Network string `json:"network"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// Card is the rendered form of one collaborator
type Card struct {
	Index          int           `json:"index"`
	Name           string        `json:"name"`
	Role           string        `json:"role"`
	DataRole       string        `json:"data_role"`
	Bio            string        `json:"bio"`
	Avatar         string        `json:"avatar"`
	Skills         []string      `json:"skills"`
	Social         []SocialLink  `json:"social"`
	AnimationDelay time.Duration `json:"-"`
	Style          Style         `json:"style"`
}

type cardAlias Card

type cardJSON struct {
	cardAlias
	AnimationDelayMS int64 `json:"animation_delay_ms"`
}

// MarshalJSON encodes AnimationDelay as whole milliseconds
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{cardAlias: cardAlias(c), AnimationDelayMS: c.AnimationDelay.Milliseconds()})
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Card) UnmarshalJSON(data []byte) error {
	var aux cardJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Card(aux.cardAlias)
	c.AnimationDelay = time.Duration(aux.AnimationDelayMS) * time.Millisecond
	return nil
}

// NormalizeRole is the value stored in a card's data-role attribute
func NormalizeRole(role string) string {
	return strings.ToLower(role)
}

// newCard builds the card for the collaborator at index
func newCard(index int, collab models.Collaborator, staggerUnit time.Duration) Card {
	skills := make([]string, len(collab.Skills))
	copy(skills, collab.Skills)

	return Card{
		Index:    index,
		Name:     collab.Name,
		Role:     collab.Role,
		DataRole: NormalizeRole(collab.Role),
		Bio:      collab.Bio,
		Avatar:   collab.Avatar,
		Skills:   skills,
		Social: []SocialLink{
			{Network: "github", Title: "GitHub", URL: collab.Social.GitHub},
			{Network: "linkedin", Title: "LinkedIn", URL: collab.Social.LinkedIn},
			{Network: "twitter", Title: "Twitter", URL: collab.Social.Twitter},
		},
		AnimationDelay: time.Duration(index) * staggerUnit,
		Style:          restingStyle(),
	}
}

// clone returns a copy that shares no slices with c
func (c Card) clone() Card {
	out := c
	out.Skills = append([]string(nil), c.Skills...)
	out.Social = append([]SocialLink(nil), c.Social...)
	return out
}

// CSS renders the card's inline style attribute
func (c Card) CSS() template.CSS {
	transform := fmt.Sprintf("translateY(%dpx)", c.Style.TranslateY)
	if c.Style.Scale != 1 {
		transform += " scale(" + formatFloat(c.Style.Scale) + ")"
	}
	return template.CSS(fmt.Sprintf("display: %s; opacity: %s; transform: %s; animation-delay: %ss;",
		c.Style.Display, formatFloat(c.Style.Opacity), transform, formatFloat(c.AnimationDelay.Seconds())))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
