package view

import "teamdir.dev/internal/models"

// View is a point-in-time copy of a controller's state
type View struct {
	Status   Status          `json:"status"`
	Message  string          `json:"message,omitempty"`
	Project  models.Project  `json:"project"`
	Filter   string          `json:"filter"`
	Controls []FilterControl `json:"controls"`
	Cards    []Card          `json:"cards"`
	Anchors  []string        `json:"anchors"`
}

// Snapshot copies the current state for rendering
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	cards := make([]Card, len(c.cards))
	for i, cs := range c.cards {
		cards[i] = cs.card.clone()
	}

	return View{
		Status:   c.status,
		Message:  c.message,
		Project:  c.project,
		Filter:   c.filter,
		Controls: append([]FilterControl(nil), c.controls...),
		Cards:    cards,
		Anchors:  append([]string(nil), c.opts.Anchors...),
	}
}

// Dataset reads the rendered cards back into the dataset shape
func (v View) Dataset() models.Dataset {
	collaborators := make([]models.Collaborator, len(v.Cards))
	for i, card := range v.Cards {
		collaborators[i] = models.Collaborator{
			Name:   card.Name,
			Role:   card.Role,
			Bio:    card.Bio,
			Avatar: card.Avatar,
			Skills: append([]string(nil), card.Skills...),
			Social: models.Social{
				GitHub:   card.Social[0].URL,
				LinkedIn: card.Social[1].URL,
				Twitter:  card.Social[2].URL,
			},
		}
	}
	return models.Dataset{Project: v.Project, Collaborators: collaborators}
}

// VisibleCount returns how many cards currently occupy layout
func (v View) VisibleCount() int {
	n := 0
	for _, card := range v.Cards {
		if card.Style.Visible() {
			n++
		}
	}
	return n
}
