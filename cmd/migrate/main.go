package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"contours/internal/models"
	"contours/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/contours.db", "Database path")
	importPath := flag.String("import", "", "JSON file of annotation sets to import")
	exportPath := flag.String("export", "", "Write all stored annotation sets to this JSON file")
	deleteName := flag.String("delete", "", "Remove the stored annotations of this image")
	flag.Parse()

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewAnnotationRepository(db)

	if *importPath != "" {
		sets, err := readSets(*importPath)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *importPath, err)
		}
		fmt.Printf("Importing %d annotation sets into %s...\n", len(sets), *dbPath)
		if err := repo.BulkPut(sets); err != nil {
			log.Fatalf("Failed to import annotations: %v", err)
		}
		fmt.Printf("✅ Imported %d annotation sets\n", len(sets))
	}

	if *deleteName != "" {
		if err := repo.Delete(*deleteName); err != nil {
			log.Fatalf("Failed to delete annotations for %s: %v", *deleteName, err)
		}
		fmt.Printf("🗑️  Deleted annotations for %s\n", *deleteName)
	}

	if *exportPath != "" {
		sets, err := repo.List()
		if err != nil {
			log.Fatalf("Failed to list annotations: %v", err)
		}
		if err := writeSets(*exportPath, sets); err != nil {
			log.Fatalf("Failed to write %s: %v", *exportPath, err)
		}
		fmt.Printf("✅ Exported %d annotation sets to %s\n", len(sets), *exportPath)
	}

	stats, err := repo.GetStats()
	if err != nil {
		log.Fatalf("Failed to read statistics: %v", err)
	}

	fmt.Printf("\n📊 Database Statistics:\n")
	fmt.Printf("   Annotated images: %d\n", stats.AnnotatedImages)
	fmt.Printf("   Annotated contours: %d\n", stats.TotalContours)
	if len(stats.LabelCounts) > 0 {
		labels := make([]string, 0, len(stats.LabelCounts))
		for label := range stats.LabelCounts {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		fmt.Printf("   Per label:\n")
		for _, label := range labels {
			fmt.Printf("      - %s: %d\n", label, stats.LabelCounts[label])
		}
	}
}

func readSets(path string) ([]models.ImageAnnotations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sets []models.ImageAnnotations
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("failed to parse annotation sets: %w", err)
	}
	for i, set := range sets {
		if set.ImageName == "" {
			return nil, fmt.Errorf("set %d has no image_name", i)
		}
	}
	return sets, nil
}

func writeSets(path string, sets []models.ImageAnnotations) error {
	if sets == nil {
		sets = []models.ImageAnnotations{}
	}
	data, err := json.MarshalIndent(sets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
