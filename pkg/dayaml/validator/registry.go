package validator

import (
	"dayaml-tools/checker/pkg/dayaml/ast"
	"dayaml-tools/checker/pkg/dayaml/errors"
)

// Kind is the validator variant attached to a key.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindPython
	KindValidationCode
	KindMako
	KindMakoMarkdown
	KindObjects
	KindFields
	KindPythonVar
	KindPythonBool
)

var kindNames = map[Kind]string{
	KindNone:           "none",
	KindString:         "string",
	KindPython:         "python",
	KindValidationCode: "validation code",
	KindMako:           "mako",
	KindMakoMarkdown:   "mako markdown",
	KindObjects:        "objects",
	KindFields:         "fields",
	KindPythonVar:      "python var",
	KindPythonBool:     "python bool",
}

// String returns the variant name.
func (k Kind) String() string {
	return kindNames[k]
}

// Key is one document key that has a registered validator.
type Key string

const (
	KeyQuestion            Key = "question"
	KeySubquestion         Key = "subquestion"
	KeyMandatory           Key = "mandatory"
	KeyCode                Key = "code"
	KeyObjects             Key = "objects"
	KeyID                  Key = "id"
	KeyGAID                Key = "ga id"
	KeySegmentID           Key = "segment id"
	KeyFields              Key = "fields"
	KeyField               Key = "field"
	KeyValidationCode      Key = "validation code"
	KeyDef                 Key = "def"
	KeyMako                Key = "mako"
	KeyGenericObject       Key = "generic object"
	KeyContinueButtonLabel Key = "continue button label"
	KeyYesNo               Key = "yesno"
	KeyNoYes               Key = "noyes"
	KeyYesNoMaybe          Key = "yesnomaybe"
	KeyNoYesMaybe          Key = "noyesmaybe"
	KeyContinueButtonField Key = "continue button field"
)

// Entry binds a key to its validator variant.
type Entry struct {
	Key  Key
	Kind Kind
}

// Registry lists every key with a validator. Keys are matched exactly.
var Registry = []Entry{
	{KeyQuestion, KindMakoMarkdown},
	{KeySubquestion, KindMakoMarkdown},
	{KeyMandatory, KindPythonBool},
	{KeyCode, KindPython},
	{KeyObjects, KindObjects},
	{KeyID, KindString},
	{KeyGAID, KindString},
	{KeySegmentID, KindString},
	{KeyFields, KindFields},
	{KeyField, KindPythonVar},
	{KeyValidationCode, KindValidationCode},
	{KeyDef, KindPythonVar},
	{KeyMako, KindMako},
	{KeyGenericObject, KindPythonVar},
	{KeyContinueButtonLabel, KindString},
	{KeyYesNo, KindPythonVar},
	{KeyNoYes, KindPythonVar},
	{KeyYesNoMaybe, KindPythonVar},
	{KeyNoYesMaybe, KindPythonVar},
	{KeyContinueButtonField, KindPythonVar},
}

var registryIndex = func() map[Key]Kind {
	m := make(map[Key]Kind, len(Registry))
	for _, e := range Registry {
		m[e.Key] = e.Kind
	}
	return m
}()

// validatorFunc checks one value. Finding lines are relative to the value's
// first content line.
type validatorFunc func(n *ast.Node) []errors.Finding

var validators = map[Kind]validatorFunc{
	KindString:         validateString,
	KindPython:         validatePython,
	KindValidationCode: validateValidationCode,
	KindMako:           validateMako,
	KindMakoMarkdown:   validateMako,
	KindObjects:        validateObjects,
	KindFields:         validateFields,
	KindPythonVar:      validatePythonVar,
	KindPythonBool:     func(*ast.Node) []errors.Finding { return nil },
}

// Lookup returns the validator variant for a key.
func Lookup(key string) (Kind, bool) {
	k, ok := registryIndex[Key(key)]
	return k, ok
}

// Validate runs the validator registered for key against value. Keys without
// a validator produce no findings.
func Validate(key string, value *ast.Node) []errors.Finding {
	kind, ok := Lookup(key)
	if !ok {
		return nil
	}
	return validators[kind](value)
}
