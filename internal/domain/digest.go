package domain

import "path/filepath"

// Request is the input document of a run.
type Request struct {
	Documents   []string `json:"documents"`
	Persona     string   `json:"persona"`
	JobToBeDone string   `json:"job_to_be_done"`
}

// Basenames returns the file names of all requested documents in input order.
func (r *Request) Basenames() []string {
	out := make([]string, len(r.Documents))
	for i, p := range r.Documents {
		out[i] = filepath.Base(p)
	}
	return out
}

// Metadata describes the run that produced a digest.
type Metadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
}

// ExtractedSection locates a ranked section.
type ExtractedSection struct {
	Document       string `json:"document"`
	PageNumber     int    `json:"page_number"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
}

// SubsectionAnalysis carries the refined excerpt of a ranked section.
type SubsectionAnalysis struct {
	Document     string `json:"document"`
	SectionTitle string `json:"section_title"`
	RefinedText  string `json:"refined_text"`
	PageNumber   int    `json:"page_number"`
}

// Digest is the output of a run. ExtractedSections and SubsectionAnalysis
// are index-aligned and ordered by importance rank.
type Digest struct {
	Metadata           Metadata             `json:"metadata"`
	ExtractedSections  []ExtractedSection   `json:"extracted_sections"`
	SubsectionAnalysis []SubsectionAnalysis `json:"subsection_analysis"`
}
