// SessionState is the client view of the annotation session.
package dto

import "contours/internal/models"

type SessionState struct {
	Loaded       bool             `json:"loaded"`
	Image        string           `json:"image"`
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	Dirty        bool             `json:"dirty"`
	ShowContours bool             `json:"showContours"`
	Regions      []RegionView     `json:"regions"`
	Annotations  []AnnotationView `json:"annotations"`
	Selection    []int            `json:"selection"`
	// Stored entries whose index matched no detected region
	Orphans []models.AnnotationEntry `json:"orphans"`
}
