package sqfls

import (
	"github.com/jward/sqfls/internal/project"
	"github.com/jward/sqfls/internal/sqf"
	"github.com/jward/sqfls/internal/store"
	"github.com/jward/sqfls/internal/text"
)

// Public type aliases for internal types used in the Session and
// QueryBuilder API. These are Go type aliases (=); no conversion is needed.

type Diagnostic = sqf.Diagnostic
type Severity = sqf.Severity
type Span = sqf.Span
type Origin = sqf.Origin
type Global = sqf.Global
type Signature = sqf.Signature
type ParameterHint = sqf.ParameterHint
type SemanticToken = sqf.SemanticToken
type Type = sqf.Type
type Project = project.Project
type Position = text.Position
type Range = text.Range
type Store = store.Store
