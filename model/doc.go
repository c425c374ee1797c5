// Package model implements a layered graph of named computations for crash
// frequency prediction. A Builder registers references, validators, and
// elements grouped into ordered layers, then produces an immutable Model.
// Evaluation walks the layers in order, each element computing from the
// accumulated namespace of raw inputs and earlier layers' outputs.
package model
