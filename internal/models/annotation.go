package models

import "sort"

// AnnotationEntry pairs a region index with its user-given label.
type AnnotationEntry struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// ImageAnnotations is the stored annotation set of one image.
type ImageAnnotations struct {
	ImageName string            `json:"image_name"`
	Contours  []AnnotationEntry `json:"contours"`
}

// AnnotationStats contains statistics about the annotation store.
type AnnotationStats struct {
	AnnotatedImages int            `json:"annotated_images"`
	TotalContours   int            `json:"total_contours"`
	LabelCounts     map[string]int `json:"label_counts"`
}

// EntriesFromMap flattens an index->label mapping into entries sorted by index.
func EntriesFromMap(m map[int]string) []AnnotationEntry {
	entries := make([]AnnotationEntry, 0, len(m))
	for number, name := range m {
		entries = append(entries, AnnotationEntry{Number: number, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Number < entries[j].Number
	})
	return entries
}
