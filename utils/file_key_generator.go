package utils

import (
	"path"
	"strings"
)

// ArtifactKind is the base name of a file produced by a pipeline step.
type ArtifactKind string

const (
	ArtifactExtracted     ArtifactKind = "extracted"
	ArtifactFastExtracted ArtifactKind = "fast_extracted"
	ArtifactClean         ArtifactKind = "clean"
	ArtifactSummary       ArtifactKind = "summary"
	ArtifactAnonymized    ArtifactKind = "anonymized"
	ArtifactTimeline      ArtifactKind = "timeline"
	ArtifactTranscript    ArtifactKind = "transcript"
	ArtifactSymptoms      ArtifactKind = "symptoms"
	ArtifactFinalCard     ArtifactKind = "final_card"
)

const (
	translatedSuffix = "_translated"
	artifactExt      = ".txt"

	// PatientSummaryFolder holds per-patient outputs inside the patient container.
	PatientSummaryFolder = "raitofile/summary"
)

// ArtifactName returns e.g. "summary.txt" or "summary_translated.txt".
// The translated file is always the working-language (English) version.
func ArtifactName(kind ArtifactKind, translated bool) string {
	if translated {
		return string(kind) + translatedSuffix + artifactExt
	}
	return string(kind) + artifactExt
}

// DocumentArtifactKey places an artifact next to the uploaded document.
func DocumentArtifactKey(docURL string, kind ArtifactKind, translated bool) string {
	dir := path.Dir(strings.TrimPrefix(docURL, "/"))
	if dir == "." {
		return ArtifactName(kind, translated)
	}
	return path.Join(dir, ArtifactName(kind, translated))
}

func DocumentFolder(docURL string) string {
	dir := path.Dir(strings.TrimPrefix(docURL, "/"))
	if dir == "." {
		return ""
	}
	return dir
}

func PatientCardKey(translated bool) string {
	return path.Join(PatientSummaryFolder, ArtifactName(ArtifactFinalCard, translated))
}

// IsDocumentSummaryKey reports whether key is a working-language document summary.
func IsDocumentSummaryKey(key string) bool {
	if strings.HasPrefix(key, PatientSummaryFolder+"/") {
		return false
	}
	return path.Base(key) == ArtifactName(ArtifactSummary, true)
}
