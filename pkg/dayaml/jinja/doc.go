// Package jinja renders the template layer that interview files may opt into
// with a "# use jinja" first line.
//
// Rendering happens with an empty context: every name is Undefined, which
// prints as nothing, iterates as empty and absorbs attribute, index and call
// access. The checker only needs to know whether the template parses and runs.
package jinja
