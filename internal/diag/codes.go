package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Разметка
	MkpInfo              Code = 1000
	MkpUnexpectedEndTag  Code = 1001
	MkpUnclosedElement   Code = 1002
	MkpDuplicateAttr     Code = 1003
	MkpMalformed         Code = 1004
	MkpEmptyRelationship Code = 1005

	// Скрипты
	ScrInfo            Code = 2000
	ScrSyntaxError     Code = 2001
	ScrMissingNode     Code = 2002
	ScrDynamicSelector Code = 2003

	// Стили
	StyInfo             Code = 3000
	StySyntaxError      Code = 3001
	StyComplexSelector  Code = 3002
	StyInvalidSelector  Code = 3003
	StyEmptyDeclaration Code = 3004

	// Ошибки I/O
	IOLoadFileError Code = 4001
	IOFileTooLarge  Code = 4002
	IOCacheError    Code = 4003

	// Фронтенды
	FeInfo               Code = 5000
	FeUnsupportedDialect Code = 5001
	FeParserPanic        Code = 5002
	FeParserFailed       Code = 5003

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:          "Unknown error",
		MkpInfo:              "Markup information",
		MkpUnexpectedEndTag:  "End tag without matching start tag",
		MkpUnclosedElement:   "Element is never closed",
		MkpDuplicateAttr:     "Duplicate attribute",
		MkpMalformed:         "Malformed markup",
		MkpEmptyRelationship: "Relationship attribute has no id tokens",
		ScrInfo:              "Script information",
		ScrSyntaxError:       "Script syntax error",
		ScrMissingNode:       "Script is missing an expected token",
		ScrDynamicSelector:   "Selector is computed at runtime",
		StyInfo:              "Style information",
		StySyntaxError:       "Style syntax error",
		StyComplexSelector:   "Selector with combinators is not matched",
		StyInvalidSelector:   "Selector could not be parsed",
		StyEmptyDeclaration:  "Declaration without value",
		IOLoadFileError:      "I/O load file error",
		IOFileTooLarge:       "File exceeds size limit",
		IOCacheError:         "Model cache error",
		FeInfo:               "Front end information",
		FeUnsupportedDialect: "No parser for dialect",
		FeParserPanic:        "Parser crashed",
		FeParserFailed:       "Parser failed",
		ObsInfo:              "Observability information",
		ObsTimings:           "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("MKP%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SCR%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("STY%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("FE%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Located reports whether diagnostics with this code carry a meaningful
// source span. I/O and observability diagnostics name their file in the
// message instead.
func (c Code) Located() bool {
	ic := int(c)
	return !(ic >= 4000 && ic < 5000) && !(ic >= 6000 && ic < 7000)
}
