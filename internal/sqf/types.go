package sqf

import "strings"

// Type is the inferred type of an SQF value. The zero value TypeUnknown means
// "no type information" and is distinct from TypeAnything.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeAnything
	TypeNothing
	TypeBoolean
	TypeNumber
	TypeString
	TypeArray
	TypeCode
	TypeObject
	TypeSide
	TypeGroup
	TypeConfig
	TypeNamespace
	TypeControl
	TypeDisplay
	TypeScript
	TypeHashMap
	TypeIf
	TypeWhile
	TypeFor
	TypeSwitch
	TypeException
)

var typeNames = [...]string{
	TypeUnknown:   "",
	TypeAnything:  "Anything",
	TypeNothing:   "Nothing",
	TypeBoolean:   "Boolean",
	TypeNumber:    "Number",
	TypeString:    "String",
	TypeArray:     "Array",
	TypeCode:      "Code",
	TypeObject:    "Object",
	TypeSide:      "Side",
	TypeGroup:     "Group",
	TypeConfig:    "Config",
	TypeNamespace: "Namespace",
	TypeControl:   "Control",
	TypeDisplay:   "Display",
	TypeScript:    "Script",
	TypeHashMap:   "HashMap",
	TypeIf:        "If",
	TypeWhile:     "While",
	TypeFor:       "For",
	TypeSwitch:    "Switch",
	TypeException: "Exception",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(?)"
}

// Known reports whether t carries information beyond "anything goes".
func (t Type) Known() bool {
	return t != TypeUnknown && t != TypeAnything
}

// ParseType maps a type name (case-insensitive) back to a Type.
func ParseType(name string) Type {
	for i, n := range typeNames {
		if n != "" && strings.EqualFold(n, name) {
			return Type(i)
		}
	}
	return TypeUnknown
}

// accepts reports whether a value of type got satisfies a slot of type want.
func accepts(want, got Type) bool {
	return want == TypeAnything || !got.Known() || want == got
}

// Parameter is one declared function parameter.
type Parameter struct {
	Name string
	Type Type
}

// Signature is the exported shape of a function file: its params and the
// type of its final statement.
type Signature struct {
	Parameters []Parameter
	Returns    Type
}

func (s *Signature) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range s.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Type.Known() {
			b.WriteString(": ")
			b.WriteString(p.Type.String())
		}
	}
	b.WriteString("] -> ")
	if s.Returns == TypeUnknown {
		b.WriteString(TypeAnything.String())
	} else {
		b.WriteString(s.Returns.String())
	}
	return b.String()
}
