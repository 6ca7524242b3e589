package sqlite

import (
	"encoding/json"
	"fmt"

	"contours/internal/models"
)

// encodeArrays splits an annotation set into the two parallel column values.
// Entries are ordered by contour number so equal sets always encode the same.
func encodeArrays(entries map[int]string) (numbers, names string, err error) {
	sorted := models.EntriesFromMap(entries)

	nums := make([]int, len(sorted))
	labels := make([]string, len(sorted))
	for i, e := range sorted {
		nums[i] = e.Number
		labels[i] = e.Name
	}

	n, err := json.Marshal(nums)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode contour numbers: %w", err)
	}
	l, err := json.Marshal(labels)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode contour names: %w", err)
	}
	return string(n), string(l), nil
}

// decodeArrays rebuilds the (number, name) pairs from the column values.
func decodeArrays(numbers, names string) ([]models.AnnotationEntry, error) {
	var nums []int
	if err := json.Unmarshal([]byte(numbers), &nums); err != nil {
		return nil, fmt.Errorf("failed to decode contour numbers: %w", err)
	}
	var labels []string
	if err := json.Unmarshal([]byte(names), &labels); err != nil {
		return nil, fmt.Errorf("failed to decode contour names: %w", err)
	}
	if len(nums) != len(labels) {
		return nil, fmt.Errorf("contour arrays differ in length: %d numbers, %d names", len(nums), len(labels))
	}

	entries := make([]models.AnnotationEntry, len(nums))
	for i := range nums {
		entries[i] = models.AnnotationEntry{Number: nums[i], Name: labels[i]}
	}
	return entries, nil
}
