package models

// Project describes the team the directory belongs to
type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Social holds a collaborator's profile links
type Social struct {
	GitHub   string `json:"github"`
	LinkedIn string `json:"linkedin"`
	Twitter  string `json:"twitter"`
}

// Collaborator represents one team member. Identity is its position in the
// dataset; there is no id field.
type Collaborator struct {
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Bio    string   `json:"bio"`
	Avatar string   `json:"avatar"`
	Skills []string `json:"skills"`
	Social Social   `json:"social"`
}

// Dataset wraps the document served as data.json
type Dataset struct {
	Project       Project        `json:"project"`
	Collaborators []Collaborator `json:"collaborators"`
}
