// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symptoms

import (
	"reflect"
	"strings"
	"testing"
)

func TestLoadKeywords(t *testing.T) {
	kws, err := LoadKeywords()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kws) == 0 {
		t.Fatal("embedded keyword list is empty")
	}
	if kws[0] != "orange spots" {
		t.Errorf("first keyword = %q, want %q (order must be preserved)", kws[0], "orange spots")
	}
}

func TestExtract_KeywordsThenRawText(t *testing.T) {
	got := Extract("I see orange pustules and some yellowing on the leaves")

	want := []string{
		"orange pustules",
		"yellowing",
		"I see orange pustules and some yellowing on the leaves",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	if got := Extract(""); got != nil {
		t.Errorf("Extract(\"\") = %v, want nil", got)
	}
	if got := Extract("   \n "); got != nil {
		t.Errorf("whitespace input = %v, want nil", got)
	}
}

func TestExtract_CaseInsensitiveAndDeduplicated(t *testing.T) {
	got := ExtractWith([]string{"rust", "powdery"}, "RUST everywhere, rust rust")

	want := []string{"rust", "RUST everywhere, rust rust"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestExtract_TruncatesRawText(t *testing.T) {
	long := strings.Repeat("orange spots on every leaf, ", 10)
	got := ExtractWith([]string{"orange spots"}, long)

	if len(got) != 2 {
		t.Fatalf("got %d entries, want keyword + truncated text", len(got))
	}
	if len([]rune(got[1])) != 120 {
		t.Errorf("raw tail length = %d runes, want 120", len([]rune(got[1])))
	}
}

func TestExtract_RawEqualToKeywordNotDuplicated(t *testing.T) {
	got := ExtractWith([]string{"rust"}, "rust")

	if !reflect.DeepEqual(got, []string{"rust"}) {
		t.Errorf("Extract = %v, want single entry", got)
	}
}
