package dto

// Point is an image coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RegionView describes one detected region and its display color.
type RegionView struct {
	Index     int     `json:"index"`
	Color     string  `json:"color"`
	Hue       int     `json:"hue"`
	Points    []Point `json:"points"`
	Annotated bool    `json:"annotated"`
}

// AnnotationView is one row of the annotation table.
type AnnotationView struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}
