package sqf

import "sort"

// SemanticKind indexes the semantic token legend.
type SemanticKind uint32

const (
	SemFunction SemanticKind = iota
	SemVariable
	SemString
	SemComment
	SemNumber
	SemKeyword
	SemOperator
	SemParameter
	SemMacro
)

// Legend is the token type legend, indexed by SemanticKind.
var Legend = []string{
	"function",
	"variable",
	"string",
	"comment",
	"number",
	"keyword",
	"operator",
	"parameter",
	"macro",
}

func (k SemanticKind) String() string {
	if int(k) < len(Legend) {
		return Legend[k]
	}
	return "unknown"
}

// SemanticToken is one classified span of the original text.
type SemanticToken struct {
	Span Span
	Kind SemanticKind
}

// Highlight classifies the lexemes of a file, using the analysis to tell
// functions, parameters and variables apart. The result is sorted by start
// offset with at most one token per offset.
func Highlight(lexemes []Lexeme, a *Analysis) []SemanticToken {
	out := make([]SemanticToken, 0, len(lexemes))
	for _, l := range lexemes {
		var kind SemanticKind
		switch l.Kind {
		case LexComment:
			kind = SemComment
		case LexDirective, LexMacro:
			kind = SemMacro
		case LexInclude, LexString:
			kind = SemString
		case LexNumber:
			kind = SemNumber
		case LexPunct:
			if _, ok := LookupCommand(l.Text); !ok {
				continue
			}
			kind = SemOperator
		case LexIdent:
			if k, ok := a.kind(l.Span); ok {
				kind = k
			} else if _, ok := LookupCommand(l.Text); ok {
				kind = SemKeyword
			} else {
				kind = SemVariable
			}
		default:
			continue
		}
		if l.Span.Len() == 0 {
			continue
		}
		out = append(out, SemanticToken{Span: l.Span, Kind: kind})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Span.Start < out[j].Span.Start })
	dedup := out[:0]
	for _, t := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Span.Start == t.Span.Start {
			continue
		}
		dedup = append(dedup, t)
	}
	return dedup
}

func (a *Analysis) kind(span Span) (SemanticKind, bool) {
	if a == nil {
		return 0, false
	}
	k, ok := a.Kinds[span]
	return k, ok
}
