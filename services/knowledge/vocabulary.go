// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

// =============================================================================
// RDF Vocabulary
// =============================================================================

// WheatNS is the namespace every wheat disease entity and relation lives in.
// The backing Turtle file is hand-edited and shared with the offline
// kb-import tool, so these IRIs must not change.
const WheatNS = "http://example.org/wheat#"

// Well-known W3C predicates used by the backing file.
const (
	RDFType   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFSLabel = "http://www.w3.org/2000/01/rdf-schema#label"
)

// Entity type IRIs.
const (
	TypeDisease   = WheatNS + "Disease"
	TypeTreatment = WheatNS + "Treatment"
	TypePathogen  = WheatNS + "Pathogen"
)

// Relation IRIs connecting a disease to its attribute entities.
const (
	PredCausedBy         = WheatNS + "causedBy"
	PredHasSymptom       = WheatNS + "hasSymptom"
	PredHasTreatment     = WheatNS + "hasTreatment"
	PredDevelopsUnder    = WheatNS + "developsUnder"
	PredAffectsPlantPart = WheatNS + "affectsPlantPart"
	PredAffectsHost      = WheatNS + "affectsHost"
	PredHasNote          = WheatNS + "hasNote"
)
