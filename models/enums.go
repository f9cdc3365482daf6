package models

import (
	"errors"
	"strings"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleEmployee UserRole = "E"
)

func (r UserRole) IsValid() bool {
	return r == UserRoleAdmin || r == UserRoleEmployee
}

// DictionaryKind is the code family a dictionary entry labels.
type DictionaryKind string

const (
	DictionaryKindCategory       DictionaryKind = "category"
	DictionaryKindType           DictionaryKind = "type"
	DictionaryKindClassification DictionaryKind = "classification"
)

var DictionaryKinds = []DictionaryKind{DictionaryKindCategory, DictionaryKindType, DictionaryKindClassification}

func ParseDictionaryKind(s string) (DictionaryKind, error) {
	switch DictionaryKind(strings.ToLower(strings.TrimSpace(s))) {
	case DictionaryKindCategory, "categoria":
		return DictionaryKindCategory, nil
	case DictionaryKindType, "tipo":
		return DictionaryKindType, nil
	case DictionaryKindClassification, "clasificacion":
		return DictionaryKindClassification, nil
	}
	return "", errors.New("invalid dictionary kind")
}

type HistoryAction string

const (
	HistoryActionCreate  HistoryAction = "C"
	HistoryActionUpdate  HistoryAction = "U"
	HistoryActionDecide  HistoryAction = "DEC"
	HistoryActionApply   HistoryAction = "APL"
	HistoryActionReject  HistoryAction = "REJ"
	HistoryActionArchive HistoryAction = "ARC"
	HistoryActionImport  HistoryAction = "IMP"
)
