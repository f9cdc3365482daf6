package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var ErrorLockNotObtained = errors.New("another operation is running for this campaign, try again")

var ErrorUnauthorized = errors.New("unauthorized")

var ErrorForbidden = errors.New("forbidden")
