//go:build ignore

package main

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// generateSampleCoupons writes gzipped coupon import files in the
// CODE,COURSE_ID,PERCENT[,DESCRIPTION] format. Run scripts/seed_courses.go
// first so the courses exist when the files are imported.
//
// File 1 and file 2 both carry SAVE10; the import keeps one copy.
// File 3 holds a malformed row and a coupon for an unknown course, both skipped.
func main() {
	dataDir := "data/coupons"

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	coupons := map[string][][]string{
		"couponbase1.gz": {
			{"SAVE10", "course-v1:edX+DemoX+2026", "10", "Ten percent off the demo course"},
			{"SPRING25", "MITx/6.002x/2026", "25", "Spring promotion"},
			{"FREEDEMO", "course-v1:edX+DemoX+2026", "100"},
		},
		"couponbase2.gz": {
			{"SAVE10", "course-v1:edX+DemoX+2026", "10"},
			{"WINTER15", "MITx/6.002x/2026", "15"},
		},
		"couponbase3.gz": {
			{"BROKEN", "not a course key", "10"},
			{"GHOST50", "course-v1:None+Ghost+2026", "50"},
			{"HALF", "course-v1:edX+DemoX+2026", "50", "Half price"},
		},
	}

	for filename, rows := range coupons {
		filePath := filepath.Join(dataDir, filename)

		if err := createCouponFile(filePath, rows); err != nil {
			log.Fatalf("Failed to create %s: %v", filename, err)
		}

		fmt.Printf("Created %s with %d rows\n", filePath, len(rows))
	}

	fmt.Println("\nImport the files as staff:")
	fmt.Println(`  POST /shoppingcart/admin/coupons/import {"files": ["couponbase1.gz", "couponbase2.gz", "couponbase3.gz"]}`)
	fmt.Println("\nExpected: 5 coupons imported, SAVE10 once; BROKEN and GHOST50 skipped.")
}

func createCouponFile(filePath string, rows [][]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	w := csv.NewWriter(gzipWriter)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write coupons: %w", err)
	}

	return nil
}
