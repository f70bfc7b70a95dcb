// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agrovista/wheatsight/services/diagnosis"
)

// diagnoseImage and diagnoseText hold flag values for the diagnose command.
var (
	diagnoseImage string
	diagnoseText  string
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run one diagnosis from the command line",
	Long: "Diagnose a wheat leaf from an image file and/or a free-text symptom\n" +
		"description, printing the reasoning trace and the generated report.",
	Run: runDiagnoseCommand,
}

func init() {
	diagnoseCmd.Flags().StringVar(&diagnoseImage, "image", "", "path to a leaf photo")
	diagnoseCmd.Flags().StringVar(&diagnoseText, "text", "", "free-text symptom description")
}

func runDiagnoseCommand(_ *cobra.Command, _ []string) {
	if diagnoseImage == "" && diagnoseText == "" {
		log.Fatal("Error: provide --image and/or --text")
	}

	var imageB64 string
	if diagnoseImage != "" {
		raw, err := os.ReadFile(diagnoseImage)
		if err != nil {
			log.Fatalf("Error: read image: %v", err)
		}
		imageB64 = base64.StdEncoding.EncodeToString(raw)
	}

	service := buildService(diagnoseImage != "")

	d, err := service.Diagnose(context.Background(), diagnosis.Input{
		ImageB64:    imageB64,
		SymptomText: diagnoseText,
	})
	if err != nil {
		var notWheat *diagnosis.NotWheatError
		if errors.As(err, &notWheat) {
			log.Fatalf("Error: the image does not appear to show a wheat plant (wheat score %.2f)", notWheat.Score)
		}
		log.Fatalf("Error: %v", err)
	}

	if d.Label != "" {
		fmt.Printf("Diagnosis: %s (confidence %.2f, risk %s)\n", d.Label, d.Confidence, d.Reasoning.RiskLevel)
	} else {
		fmt.Println("Diagnosis: text-only analysis (no classifier verdict)")
	}
	if len(d.TextSymptoms) > 0 {
		fmt.Printf("Extracted symptoms: %s\n", strings.Join(d.TextSymptoms, "; "))
	}
	if len(d.Scores) > 0 {
		fmt.Println("\nCandidate scores:")
		for _, s := range d.Scores {
			fmt.Printf("  %-40s %.4f\n", s.Label, s.Score)
		}
	}
	if len(d.Reasoning.ExplanationTrace) > 0 {
		fmt.Println("\nReasoning trace:")
		for _, line := range d.Reasoning.ExplanationTrace {
			fmt.Printf("  - %s\n", line)
		}
	}
	fmt.Println("\n---")
	fmt.Println(d.Explanation)
	fmt.Printf("\n(report source: %s)\n", d.ExplanationSource)
}
