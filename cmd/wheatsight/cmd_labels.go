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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrovista/wheatsight/services/diagnosis"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Print the current candidate disease labels",
	Run:   runLabelsCommand,
}

func runLabelsCommand(_ *cobra.Command, _ []string) {
	service := diagnosis.NewService(loadStore(resolveKBPath()), nil, nil, nil)
	for _, label := range service.Labels() {
		fmt.Println(label)
	}
}
