package engine

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned when the input file's extension maps to no
// known pipeline. No output is produced.
var ErrUnsupportedFormat = errors.New("engine: unsupported input format")

// Stage names the pipeline step a page failure occurred in.
type Stage string

const (
	StageParse    Stage = "parse"
	StageExtract  Stage = "extract"
	StageClassify Stage = "classify"
	StageOcr      Stage = "ocr"
	StageLocate   Stage = "locate"
	StageApply    Stage = "apply"
	StageWrite    Stage = "write"
)

// PageError reports a failure processing a single page. Any PageError aborts
// the whole run: partial output is never written.
type PageError struct {
	Page  int
	Stage Stage
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %s: %v", e.Page, e.Stage, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

func pageErr(page int, stage Stage, err error) error {
	return &PageError{Page: page, Stage: stage, Err: err}
}
