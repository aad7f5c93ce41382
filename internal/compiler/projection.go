// Package compiler turns CUE projection specs into listener
// projections. Uses the CUE SDK's Go API directly (not CLI subprocess).
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/uniflux/internal/listener"
)

// CompileProjections parses every projection declared under the
// top-level "projection" struct, e.g.:
//
//	projection: header: {
//	    description: "header bar fields"
//	    mapping: {
//	        counter: "persistent.counter"
//	        title:   "persistent.name"
//	    }
//	}
//
// Each mapping field maps a target view field (the label) to a dotted
// source path in the state tree. Projections are returned in
// declaration order.
func CompileProjections(v cue.Value) ([]listener.Projection, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	projVal := v.LookupPath(cue.ParsePath("projection"))
	if !projVal.Exists() {
		return nil, &CompileError{
			Field:   "projection",
			Message: "no projections declared",
			Pos:     v.Pos(),
		}
	}

	iter, err := projVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var projections []listener.Projection
	for iter.Next() {
		proj, err := compileProjection(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		projections = append(projections, proj)
	}

	if len(projections) == 0 {
		return nil, &CompileError{
			Field:   "projection",
			Message: "no projections declared",
			Pos:     projVal.Pos(),
		}
	}

	return projections, nil
}

// compileProjection parses one named projection struct.
func compileProjection(name string, v cue.Value) (listener.Projection, error) {
	proj := listener.Projection{Name: name}

	mappingVal := v.LookupPath(cue.ParsePath("mapping"))
	if !mappingVal.Exists() {
		return proj, &CompileError{
			Field:   fmt.Sprintf("projection.%s.mapping", name),
			Message: "mapping is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := mappingVal.Fields()
	if err != nil {
		return proj, formatCUEError(err)
	}

	for iter.Next() {
		target := iter.Label()
		source, err := iter.Value().String()
		if err != nil {
			return proj, &CompileError{
				Field:   fmt.Sprintf("projection.%s.mapping.%s", name, target),
				Message: "source path must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		proj.Mappings = append(proj.Mappings, listener.FieldMapping{
			SourcePath:  source,
			TargetField: target,
		})
	}

	if err := proj.Validate(); err != nil {
		return proj, &CompileError{
			Field:   fmt.Sprintf("projection.%s", name),
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}

	return proj, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
