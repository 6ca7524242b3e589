package dto

// IndicesRequest carries region indices for add/remove/selection.
type IndicesRequest struct {
	Indices []int `json:"indices"`
}

// RelabelRequest sets the label of one annotated region.
type RelabelRequest struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// ClickEvent is sent by surface clients; Button is "primary" or "secondary".
type ClickEvent struct {
	Button string `json:"button"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// ErrorResponse is the JSON body of failed API calls.
type ErrorResponse struct {
	Error string `json:"error"`
}
