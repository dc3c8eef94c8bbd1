package bes

// Artifact is the unit of output the selection core produces: a target plus
// its associated output files, ready for downstream ingestion.
type Artifact struct {
	// Label identifies the target (or action owner) the files belong to.
	Label string `json:"label"`
	// Files is the ordered sequence of selected output files.
	Files []ArtifactFile `json:"files"`
}

// ArtifactFile is one selected output file. URI is an opaque pass-through
// content/location reference; reading it is a caller concern.
type ArtifactFile struct {
	Path string `json:"path"`
	URI  string `json:"uri,omitempty"`
}
