// Package form implements the form processing pipeline.
//
// A Form owns a tree of fields. Each field carries ordered lists of stage
// processors (filters, constraints, inflators, validators, transformers).
// Form.Process reads a query.Query, builds a params tree from the names the
// form knows about, and runs the stages in a fixed order. The results are
// then read through the param accessors (Params, ParamValue, Valid, ...).
//
// Forms hold per-submission state and are not safe for concurrent use.
// Build a form once and Clone it per request.
package form
