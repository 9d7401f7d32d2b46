package pipeline

import "fmt"

// FeatureExtractionError reports an input features could not be computed from. The whole run
// fails on the first one; entries are never skipped.
type FeatureExtractionError struct {
	Batch int
	Entry int
	Err   error
}

func (e *FeatureExtractionError) Error() string {
	return fmt.Sprintf("feature extraction failed for entry %d of batch %d: %v", e.Entry, e.Batch, e.Err)
}

func (e *FeatureExtractionError) Unwrap() error {
	return e.Err
}
